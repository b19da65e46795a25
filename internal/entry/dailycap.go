package entry

import "github.com/shopspring/decimal"

// DailyCap bounds the total hours of all entries sharing a calendar day.
// Sums are exact decimals, so 0.1 added ten times is exactly 1.
type DailyCap struct {
	max decimal.Decimal
}

func NewDailyCap(max decimal.Decimal) DailyCap {
	return DailyCap{max: max}
}

func (c DailyCap) Max() decimal.Decimal {
	return c.max
}

// Check accepts hours on a day already holding sameDay unless the new total
// exceeds the cap. The entry with excludeID is left out of the sum so an update
// does not count its own previous hours; zero excludes nothing.
func (c DailyCap) Check(hours decimal.Decimal, sameDay []Entry, excludeID int) error {
	total := hours
	for _, e := range sameDay {
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		total = total.Add(e.Hours)
	}

	if total.GreaterThan(c.max) {
		return &DailyCapError{Max: c.max, Total: total}
	}
	return nil
}
