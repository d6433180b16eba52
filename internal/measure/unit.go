package measure

import (
	"strings"

	"golang.org/x/text/width"
)

// Unit is the normalized measurement unit of a cargo line.
type Unit string

const (
	UnitUnknown Unit = ""
	UnitPiece   Unit = "piece"
	UnitWeight  Unit = "weight"
	UnitVolume  Unit = "volume"
)

var unitAliases = map[string]Unit{
	"piece": UnitPiece,
	"pcs":   UnitPiece,
	"pc":    UnitPiece,
	"件":     UnitPiece,
	"个":     UnitPiece,
	"箱":     UnitPiece,
	"包":     UnitPiece,
	"袋":     UnitPiece,
	"台":     UnitPiece,
	"托":     UnitPiece,
	"卷":     UnitPiece,

	"weight": UnitWeight,
	"kg":     UnitWeight,
	"kgs":    UnitWeight,
	"公斤":     UnitWeight,
	"千克":     UnitWeight,
	"斤":      UnitWeight,
	"吨":      UnitWeight,
	"t":      UnitWeight,
	"重量":     UnitWeight,

	"volume": UnitVolume,
	"cbm":    UnitVolume,
	"m3":     UnitVolume,
	"m³":     UnitVolume,
	"方":      UnitVolume,
	"立方":     UnitVolume,
	"立方米":    UnitVolume,
	"体积":     UnitVolume,
}

// NormalizeUnit maps a free-text unit label to a Unit. Unrecognized input
// yields UnitUnknown.
func NormalizeUnit(s string) Unit {
	key := strings.ToLower(strings.TrimSpace(width.Narrow.String(s)))
	if key == "" {
		return UnitUnknown
	}

	if u, ok := unitAliases[key]; ok {
		return u
	}

	return UnitUnknown
}

// OrPiece returns u, or UnitPiece when u is unknown. Cargo lines without an
// explicit unit are counted in pieces.
func (u Unit) OrPiece() Unit {
	if u == UnitUnknown {
		return UnitPiece
	}

	return u
}

// Label is the short display label used in exports and the TUI.
func (u Unit) Label() string {
	switch u {
	case UnitPiece:
		return "件"
	case UnitWeight:
		return "公斤"
	case UnitVolume:
		return "方"
	}

	return ""
}
