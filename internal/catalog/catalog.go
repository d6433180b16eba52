package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

// Source tells where a profile came from.
type Source string

const (
	SourceBuiltin  Source = "builtin"
	SourceHistory  Source = "history"
	SourceOverride Source = "override"
)

// Profile is the auto-fill data for a manufacturer/customer/product
// combination.
type Profile struct {
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	MeasureUnit measure.Unit    `json:"measureUnit"`
	Route       string          `json:"route,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Source      Source          `json:"source"`
}

// Query identifies what the form has filled in so far.
type Query struct {
	Manufacturer string
	Customer     string
	Product      string
}

// Override is a profile pinned by the user. The fields that are set decide
// how specific it is: manufacturer and customer, customer only, or product
// only.
type Override struct {
	Manufacturer string          `json:"manufacturer,omitempty"`
	Customer     string          `json:"customer,omitempty"`
	Product      string          `json:"product"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	MeasureUnit  measure.Unit    `json:"measureUnit"`
	Route        string          `json:"route,omitempty"`
	Phone        string          `json:"phone,omitempty"`
}

func (o Override) profile() Profile {
	return Profile{
		UnitPrice:   o.UnitPrice,
		MeasureUnit: o.MeasureUnit.OrPiece(),
		Route:       o.Route,
		Phone:       o.Phone,
		Source:      SourceOverride,
	}
}

// builtin seeds common goods with the unit they are usually billed by.
var builtin = []struct {
	product string
	unit    measure.Unit
}{
	{"水泥", measure.UnitWeight},
	{"钢材", measure.UnitWeight},
	{"钢管", measure.UnitWeight},
	{"化肥", measure.UnitWeight},
	{"木材", measure.UnitVolume},
	{"泡沫", measure.UnitVolume},
	{"瓷砖", measure.UnitPiece},
	{"玻璃", measure.UnitPiece},
	{"家具", measure.UnitPiece},
	{"电器", measure.UnitPiece},
}

// NormalizeKey folds width and case and collapses whitespace so that
// "ＡＢＣ  水泥" and "abc 水泥" share a key.
func NormalizeKey(s string) string {
	s = width.Fold.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

type key struct {
	manufacturer, customer, product string
}

func newKey(manufacturer, customer, product string) key {
	return key{NormalizeKey(manufacturer), NormalizeKey(customer), NormalizeKey(product)}
}

// Index answers profile lookups at three levels of specificity.
type Index struct {
	full     map[key]Profile
	customer map[key]Profile
	product  map[key]Profile
}

func newIndex() *Index {
	return &Index{
		full:     make(map[key]Profile),
		customer: make(map[key]Profile),
		product:  make(map[key]Profile),
	}
}

func (ix *Index) put(manufacturer, customer, product string, p Profile) {
	k := newKey(manufacturer, customer, product)
	if k.product == "" {
		return
	}

	// Blank manufacturer and customer must not shadow the product level.
	if k.manufacturer != "" || k.customer != "" {
		ix.full[k] = p
	}

	if k.customer != "" {
		ix.customer[key{customer: k.customer, product: k.product}] = p
	}

	ix.product[key{product: k.product}] = p
}

func (ix *Index) putOverride(o Override) {
	k := newKey(o.Manufacturer, o.Customer, o.Product)
	if k.product == "" {
		return
	}

	p := o.profile()

	switch {
	case k.manufacturer != "" && k.customer != "":
		ix.full[k] = p
	case k.customer != "":
		ix.customer[key{customer: k.customer, product: k.product}] = p
	default:
		ix.product[key{product: k.product}] = p
	}
}

// Lookup returns the most specific profile for q: manufacturer, customer
// and product first, then customer and product, then product alone.
func (ix *Index) Lookup(q Query) (Profile, bool) {
	k := newKey(q.Manufacturer, q.Customer, q.Product)
	if k.product == "" {
		return Profile{}, false
	}

	if p, ok := ix.full[k]; ok {
		return p, true
	}

	if p, ok := ix.customer[key{customer: k.customer, product: k.product}]; ok {
		return p, true
	}

	p, ok := ix.product[key{product: k.product}]

	return p, ok
}
