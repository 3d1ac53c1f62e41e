package movement

import (
	"errors"
	"time"
)

// Type enumerates the two movement directions.
type Type string

const (
	// TypeIn is an inbound movement from a supplier.
	TypeIn Type = "IN"
	// TypeOut is an outbound movement to a destination.
	TypeOut Type = "OUT"
)

// ApprovalStatus is carried by outbound movements that go through approval.
// No transition logic exists for it; it is recorded as submitted.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// Transaction is one append-only movement record. Item holds the item name as
// it was at posting time; the snapshot is deliberate so the history reflects
// the movement, not later renames.
type Transaction struct {
	ID          string         `json:"id,omitempty"`
	Type        Type           `json:"type"`
	Item        string         `json:"item"`
	ItemID      string         `json:"itemId"`
	Quantity    int            `json:"quantity"`
	Date        time.Time      `json:"date"`
	User        string         `json:"user"`
	Status      ApprovalStatus `json:"status,omitempty"`
	Supplier    string         `json:"supplier,omitempty"`
	Destination string         `json:"destination,omitempty"`
	Description string         `json:"description,omitempty"`
}

var (
	// ErrUnknownItemReference occurs when the referenced item no longer exists.
	ErrUnknownItemReference = errors.New("movement: unknown item reference")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("movement: quantity must be positive")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("movement: invalid input")
)
