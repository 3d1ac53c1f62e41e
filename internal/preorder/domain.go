package preorder

import (
	"errors"
	"time"
)

// Status is a pre-order lifecycle state.
type Status string

const (
	// StatusAwaitingApproval is the initial state. Records stay here until an
	// operator submits them for approval.
	StatusAwaitingApproval Status = "Awaiting Approval"
	// StatusPending means submitted and waiting for a decision.
	StatusPending Status = "Pending"
	// StatusApproved is terminal.
	StatusApproved Status = "Approved"
	// StatusRejected is terminal.
	StatusRejected Status = "Rejected"
	// StatusFulfilled is terminal and carried only by historical data; no
	// transition leads into it.
	StatusFulfilled Status = "Fulfilled"
)

// Warehouse locations served by the pre-order flow.
const (
	LocationJakarta  = "Jakarta"
	LocationSurabaya = "Surabaya"
)

// ValidLocation reports whether loc names a served warehouse.
func ValidLocation(loc string) bool {
	return loc == LocationJakarta || loc == LocationSurabaya
}

// PreOrder is one line item of a customer order. Records sharing an OrderID
// form an order group and carry the same company, location and order date.
type PreOrder struct {
	ID        string    `json:"id,omitempty"`
	OrderID   string    `json:"orderId,omitempty"`
	Company   string    `json:"company"`
	Item      string    `json:"item"`
	ItemID    string    `json:"itemId"`
	Quantity  int       `json:"quantity"`
	OrderDate time.Time `json:"orderDate"`
	Status    Status    `json:"status"`
	Location  string    `json:"location"`
}

// Group summarizes the Pending members of one order for the approval queue.
type Group struct {
	OrderID   string    `json:"orderId"`
	Company   string    `json:"company"`
	Location  string    `json:"location"`
	OrderDate time.Time `json:"orderDate"`
	Items     []string  `json:"items"`
	Quantity  int       `json:"quantity"`
	MemberIDs []string  `json:"memberIds"`
}

// canTransition is the single source of truth for the lifecycle. Approved,
// Rejected and Fulfilled are terminal.
func canTransition(from, to Status) bool {
	switch from {
	case StatusAwaitingApproval:
		return to == StatusPending
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	default:
		return false
	}
}

var (
	// ErrNotFound is returned when a pre-order or order group does not exist.
	ErrNotFound = errors.New("preorder: not found")
	// ErrInvalidTransition is returned when a record is not in the state the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("preorder: invalid status transition")
	// ErrEmptySelection is returned by submission with no selected records.
	ErrEmptySelection = errors.New("preorder: empty selection")
	// ErrUnknownItemReference is returned when the referenced inventory item
	// does not exist.
	ErrUnknownItemReference = errors.New("preorder: unknown item reference")
	// ErrGroupConflict is returned when a new line item disagrees with its
	// order group, or the group has already left the draft state.
	ErrGroupConflict = errors.New("preorder: conflicting order group data")
	// ErrValidation marks rejected input.
	ErrValidation = errors.New("preorder: validation failed")
)
