package ewaybill

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

var zeroDistancePattern = regexp.MustCompile(`Distance between these two pincodes is (\d+)`)

// DistanceFromAlert returns the distance the portal computed when the
// document was submitted with a zero distance. ok is false when the alert
// carries no usable distance or the submitted distance was not zero.
func DistanceFromAlert(submitted decimal.Decimal, alert string) (decimal.Decimal, bool) {
	if !submitted.IsZero() || alert == "" {
		return decimal.Zero, false
	}
	match := zeroDistancePattern.FindStringSubmatch(alert)
	if match == nil {
		return decimal.Zero, false
	}
	km, err := strconv.Atoi(match[1])
	if err != nil || km <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(int64(km)), true
}
