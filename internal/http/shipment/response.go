package shipment

import (
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

type shipmentResponse struct {
	ledger.Shipment
	LoadState  string `json:"loadState"`
	HomeSettle bool   `json:"homeSettle"`
}

func toResponse(sh ledger.Shipment) shipmentResponse {
	return shipmentResponse{
		Shipment:   sh,
		LoadState:  ledger.LoadStateOf(sh).String(),
		HomeSettle: ledger.IsHomeSettleCandidate(sh),
	}
}

func toResponseList(shipments []ledger.Shipment) []shipmentResponse {
	resp := make([]shipmentResponse, len(shipments))
	for i, sh := range shipments {
		resp[i] = toResponse(sh)
	}

	return resp
}

type dispatchMetaDTO struct {
	Date        string `json:"dispatchDate"`
	TruckNo     string `json:"dispatchTruckNo"`
	PlateNo     string `json:"dispatchPlateNo"`
	Driver      string `json:"dispatchDriver"`
	ContactName string `json:"dispatchContactName"`
	Destination string `json:"dispatchDestination"`
}

func (d dispatchMetaDTO) meta() ledger.DispatchMeta {
	return ledger.DispatchMeta{
		Date:        d.Date,
		TruckNo:     d.TruckNo,
		PlateNo:     d.PlateNo,
		Driver:      d.Driver,
		ContactName: d.ContactName,
		Destination: d.Destination,
	}
}
