package movement

import (
	"strings"
	"time"
)

// Filter is a conjunction of optional predicates over the transaction set.
// Zero-value fields match everything.
type Filter struct {
	From     time.Time
	To       time.Time
	Item     string
	Location string
	Source   string
	User     string
}

// Apply keeps the transactions matching every set predicate. locationOf
// resolves an item id to the item's current location; a transaction whose
// item no longer resolves fails a location-filtered query.
func (f Filter) Apply(txs []Transaction, locationOf func(itemID string) (string, bool)) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if f.matches(tx, locationOf) {
			out = append(out, tx)
		}
	}
	return out
}

func (f Filter) matches(tx Transaction, locationOf func(itemID string) (string, bool)) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(endOfDay(f.To)) {
		return false
	}
	if f.Item != "" && !strings.EqualFold(f.Item, tx.Item) {
		return false
	}
	if f.Location != "" {
		if locationOf == nil {
			return false
		}
		location, ok := locationOf(tx.ItemID)
		if !ok || !strings.EqualFold(f.Location, location) {
			return false
		}
	}
	if f.Source != "" && !strings.EqualFold(f.Source, sourceOf(tx)) {
		return false
	}
	if f.User != "" && !strings.EqualFold(f.User, tx.User) {
		return false
	}
	return true
}

// ActiveCount reports how many filters are set; the date range counts once
// however many of its bounds are present.
func (f Filter) ActiveCount() int {
	count := 0
	if !f.From.IsZero() || !f.To.IsZero() {
		count++
	}
	for _, value := range []string{f.Item, f.Location, f.Source, f.User} {
		if value != "" {
			count++
		}
	}
	return count
}

// sourceOf is the provenance string the source filter matches against:
// supplier for stock-in, destination or reason for stock-out.
func sourceOf(tx Transaction) string {
	if tx.Type == TypeIn {
		return tx.Supplier
	}
	if tx.Destination != "" {
		return tx.Destination
	}
	return tx.Description
}

// endOfDay extends the upper bound through 23:59:59.999 of its calendar day.
func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
