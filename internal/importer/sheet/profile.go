package sheet

// field is a shipment attribute a spreadsheet column can map to.
type field int

const (
	fieldDate field = iota
	fieldSerial
	fieldManufacturer
	fieldCustomer
	fieldProduct
	fieldRoute
	fieldPhone
	fieldNote
	fieldUnit
	fieldQuantity
	fieldUnitPrice
	fieldAmount
	fieldRebate
	fieldUnitWeight
	fieldUnitVolume
)

// Profile describes the column headers of one family of spreadsheet
// exports. Adding a new layout is just adding a Profile to profiles.
type Profile struct {
	Name    string
	Columns map[field][]string
}

// matches reports whether cols carries a date column plus a quantity or an
// amount column, and returns the resolved column index per field.
func (p Profile) matches(cols colIndex) (map[field]int, bool) {
	resolved := make(map[field]int, len(p.Columns))

	for f, aliases := range p.Columns {
		for _, name := range aliases {
			if idx, ok := cols[name]; ok {
				resolved[f] = idx
				break
			}
		}
	}

	_, hasDate := resolved[fieldDate]
	_, hasQty := resolved[fieldQuantity]
	_, hasAmount := resolved[fieldAmount]

	return resolved, hasDate && (hasQty || hasAmount)
}

// profiles is the ordered list of layouts tried during auto-detection.
var profiles = []Profile{
	{
		Name: "托运单",
		Columns: map[field][]string{
			fieldDate:         {"日期", "收货日期", "发货日期", "开单日期"},
			fieldSerial:       {"单号", "运单号", "托运单号", "票号"},
			fieldManufacturer: {"厂家", "发货人", "发货单位", "托运人"},
			fieldCustomer:     {"客户", "收货人", "收货单位"},
			fieldProduct:      {"品名", "货物", "货物名称", "货名"},
			fieldRoute:        {"到站", "线路", "目的地", "到达站"},
			fieldPhone:        {"电话", "收货人电话", "联系电话"},
			fieldNote:         {"备注", "说明"},
			fieldUnit:         {"单位", "计量单位", "计费方式"},
			fieldQuantity:     {"数量", "件数", "重量", "方数"},
			fieldUnitPrice:    {"单价", "运价"},
			fieldAmount:       {"运费", "金额", "合计"},
			fieldRebate:       {"回扣", "返利", "回款扣"},
			fieldUnitWeight:   {"单件重量", "单重"},
			fieldUnitVolume:   {"单件体积", "单方"},
		},
	},
	{
		Name: "english",
		Columns: map[field][]string{
			fieldDate:         {"date", "receive date", "receivedate", "ship date"},
			fieldSerial:       {"serial no", "serialno", "serial", "waybill no", "waybillno", "order no"},
			fieldManufacturer: {"manufacturer", "sender", "factory"},
			fieldCustomer:     {"customer", "receiver", "consignee"},
			fieldProduct:      {"product", "goods", "product name", "productname"},
			fieldRoute:        {"route", "destination", "station"},
			fieldPhone:        {"phone", "tel"},
			fieldNote:         {"note", "remark", "memo"},
			fieldUnit:         {"unit", "measure unit", "measureunit"},
			fieldQuantity:     {"quantity", "qty", "pieces"},
			fieldUnitPrice:    {"unit price", "unitprice", "price"},
			fieldAmount:       {"amount", "freight", "total"},
			fieldRebate:       {"rebate", "discount"},
			fieldUnitWeight:   {"unit weight", "unitweight"},
			fieldUnitVolume:   {"unit volume", "unitvolume"},
		},
	},
}
