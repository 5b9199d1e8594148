// Package fare computes travel fares from station positions. The
// calculation is pure: callers are responsible for resolving both
// stations (and verifying they belong to the same train) before asking
// for a fare.
package fare

import "github.com/shopspring/decimal"

// BaseFare is charged for every travel regardless of distance.
var BaseFare = decimal.NewFromInt(13)

// PerStationRate is charged per position crossed between departure and
// arrival.
var PerStationRate = decimal.RequireFromString("1.3")

// Calculate returns BaseFare + PerStationRate * |departure - arrival|.
// It is symmetric in its arguments; a travel between a station and
// itself costs exactly BaseFare.
func Calculate(departurePos, arrivalPos int64) decimal.Decimal {
	span := departurePos - arrivalPos
	if span < 0 {
		span = -span
	}
	return BaseFare.Add(PerStationRate.Mul(decimal.NewFromInt(span)))
}
