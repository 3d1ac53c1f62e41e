package inventory

import "errors"

// Status is derived from the stock count and never set independently.
type Status string

const (
	// StatusInStock indicates stock at or above the low-stock threshold.
	StatusInStock Status = "In Stock"
	// StatusLowStock indicates a positive stock below the threshold.
	StatusLowStock Status = "Low Stock"
	// StatusOutOfStock indicates zero stock.
	StatusOutOfStock Status = "Out of Stock"
)

// LowStockThreshold is the fixed policy boundary: stock at or above it is
// In Stock, below it (but positive) is Low Stock.
const LowStockThreshold = 10

// PlaceholderImageURL is used when an item has no photo.
const PlaceholderImageURL = "https://placehold.co/100x100.png"

// Item is a stocked product at a warehouse bin location.
type Item struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	Status   Status `json:"status"`
	ImageURL string `json:"imageUrl"`
	Location string `json:"location"`
}

// DeriveStatus maps a stock count to its display status. Exactly one of the
// three labels applies to every non-negative count; the threshold itself is
// In Stock.
func DeriveStatus(stock int) Status {
	switch {
	case stock == 0:
		return StatusOutOfStock
	case stock < LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

var (
	// ErrNotFound indicates a missing item.
	ErrNotFound = errors.New("inventory: item not found")
	// ErrInsufficientStock occurs when a movement would take stock negative.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("inventory: invalid input")
)
