// README: Common value objects (ids, coordinates, money) shared across modules.
package types

import "fmt"

type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Money holds an amount in minor units (pence).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// MoneyFromMajor converts a major-unit amount such as 45.00 into Money.
func MoneyFromMajor(v float64, currency string) Money {
	if v < 0 {
		return Money{Amount: -int64(-v*100 + 0.5), Currency: currency}
	}
	return Money{Amount: int64(v*100 + 0.5), Currency: currency}
}
