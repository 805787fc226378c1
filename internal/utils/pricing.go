package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"rentloop-backend/internal/domain"
)

const (
	DateLayout = "2006-01-02"

	day = 24 * time.Hour

	// MinRentalDays is the billable floor; a same-day rental is charged as one day.
	MinRentalDays = 1

	// MaxUnitPrice caps a day-rate or deposit so quotes stay well inside int64.
	MaxUnitPrice int64 = 1_000_000_000_000
)

// LinePrice is the per-item snapshot taken when a rental is created.
type LinePrice struct {
	ItemID        string
	PriceAtRental int64
	Subtotal      int64
	Deposit       int64
}

// RentalQuote is the full price computation for a rental request.
type RentalQuote struct {
	Days         int64
	Lines        []LinePrice
	TotalPrice   int64
	TotalDeposit int64
}

// ParseDate accepts a yyyy-mm-dd calendar date or an RFC 3339 timestamp and
// returns the UTC calendar date at midnight.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	}
	if t, err := time.ParseInLocation(DateLayout, value, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected yyyy-mm-dd", domain.ErrInvalidInput, value)
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// RentalDays returns ceil((end - start) / 1 day), floored at MinRentalDays.
// An end before the start is rejected.
func RentalDays(start, end time.Time) (int64, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("%w: end date must not be before start date", domain.ErrInvalidInput)
	}
	days := int64(math.Ceil(float64(end.Sub(start)) / float64(day)))
	if days < MinRentalDays {
		days = MinRentalDays
	}
	return days, nil
}

// QuoteRental snapshots each item's day-rate and sums subtotals and deposits.
// Items are priced in the order given. Negative prices and any total that
// would overflow int64 are rejected with ErrInvalidInput.
func QuoteRental(items []domain.Item, days int64) (RentalQuote, error) {
	if days < MinRentalDays {
		return RentalQuote{}, fmt.Errorf("%w: rental must last at least %d day", domain.ErrInvalidInput, MinRentalDays)
	}
	quote := RentalQuote{
		Days:  days,
		Lines: make([]LinePrice, 0, len(items)),
	}
	for _, item := range items {
		if item.PricePerDay < 0 || item.SecurityDeposit < 0 {
			return RentalQuote{}, fmt.Errorf("%w: item %s has a negative price", domain.ErrInvalidInput, item.ID)
		}
		if item.PricePerDay > 0 && days > math.MaxInt64/item.PricePerDay {
			return RentalQuote{}, fmt.Errorf("%w: price of item %s overflows", domain.ErrInvalidInput, item.ID)
		}
		line := LinePrice{
			ItemID:        item.ID,
			PriceAtRental: item.PricePerDay,
			Subtotal:      item.PricePerDay * days,
			Deposit:       item.SecurityDeposit,
		}
		var ok bool
		if quote.TotalPrice, ok = addMoney(quote.TotalPrice, line.Subtotal); !ok {
			return RentalQuote{}, fmt.Errorf("%w: rental total overflows", domain.ErrInvalidInput)
		}
		if quote.TotalDeposit, ok = addMoney(quote.TotalDeposit, line.Deposit); !ok {
			return RentalQuote{}, fmt.Errorf("%w: rental deposit overflows", domain.ErrInvalidInput)
		}
		quote.Lines = append(quote.Lines, line)
	}
	if _, ok := addMoney(quote.TotalPrice, quote.TotalDeposit); !ok {
		return RentalQuote{}, fmt.Errorf("%w: amount due overflows", domain.ErrInvalidInput)
	}
	return quote, nil
}

// addMoney adds two non-negative amounts, reporting false on overflow.
func addMoney(a, b int64) (int64, bool) {
	if b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}

// FormatDate renders a stored date as yyyy-mm-dd.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
