package model

import "github.com/shopspring/decimal"

// discreteUnits are counted units: quantities carried in them must be
// integral. Weight and volume units stay continuous. The set mixes the
// Chinese measure words the household data actually uses with their
// common English equivalents.
var discreteUnits = map[string]struct{}{
	"个":      {},
	"只":      {},
	"颗":      {},
	"瓶":      {},
	"盒":      {},
	"袋":      {},
	"包":      {},
	"罐":      {},
	"根":      {},
	"条":      {},
	"块":      {},
	"pc":     {},
	"pcs":    {},
	"piece":  {},
	"pack":   {},
	"box":    {},
	"bottle": {},
	"can":    {},
	"bag":    {},
	"egg":    {},
}

// DiscreteUnit reports whether quantities in unit are counted rather
// than measured.
func DiscreteUnit(unit string) bool {
	_, ok := discreteUnits[unit]
	return ok
}

// IntegralQuantity reports whether q is a whole number.
func IntegralQuantity(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(0))
}
