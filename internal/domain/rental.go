package domain

import "time"

type RentalStatus string

const (
	RentalStatusWaitingApproval RentalStatus = "WAITING_APPROVAL"
	RentalStatusApproved        RentalStatus = "APPROVED"
	RentalStatusRejected        RentalStatus = "REJECTED"
	RentalStatusCompleted       RentalStatus = "COMPLETED"
)

// rentalTransitions lists the only edges of the rental state machine.
var rentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusWaitingApproval: {RentalStatusApproved, RentalStatusRejected},
	RentalStatusApproved:        {RentalStatusCompleted},
}

// CanTransitionTo reports whether a rental in status s may move to next.
func (s RentalStatus) CanTransitionTo(next RentalStatus) bool {
	for _, allowed := range rentalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal is true for REJECTED and COMPLETED.
func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusRejected || s == RentalStatusCompleted
}

// HoldsItems is true while the rental keeps its items out of the pool.
func (s RentalStatus) HoldsItems() bool {
	return s == RentalStatusWaitingApproval || s == RentalStatusApproved
}

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusWaitingApproval, RentalStatusApproved, RentalStatusRejected, RentalStatusCompleted:
		return true
	}
	return false
}

type Rental struct {
	ID       string `json:"id"`
	LendeeID string `json:"lendee_id"`
	LenderID string `json:"lender_id"`
	Lendee   *User  `json:"lendee,omitempty"` // Populated on detail reads
	Lender   *User  `json:"lender,omitempty"`
	// Calendar dates, stored at UTC midnight.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	// Totals are fixed when the rental is created and never recomputed.
	TotalPrice      int64        `json:"total_price"`
	TotalDeposit    int64        `json:"total_deposit"`
	Status          RentalStatus `json:"status"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	Items           []RentalItem `json:"items"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// AmountDue is what the lendee pays at approval.
func (r *Rental) AmountDue() int64 {
	return r.TotalPrice + r.TotalDeposit
}

// ItemIDs returns the ids of every item referenced by the rental lines.
func (r *Rental) ItemIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, line := range r.Items {
		ids = append(ids, line.ItemID)
	}
	return ids
}

type RentalItem struct {
	ID            string `json:"id"`
	RentalID      string `json:"rental_id"`
	ItemID        string `json:"item_id"`
	Item          *Item  `json:"item,omitempty"`
	Quantity      int32  `json:"quantity"`
	PriceAtRental int64  `json:"price_at_rental"`
	Subtotal      int64  `json:"subtotal"`
}

// CreateRentalInput carries a rental request. TotalPrice and TotalDeposit are
// optional caller-side totals; when set they must match the computed ones.
type CreateRentalInput struct {
	LendeeID     string   `json:"lendee_id"`
	LenderID     string   `json:"lender_id"`
	ItemIDs      []string `json:"item_ids"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	TotalPrice   *int64   `json:"total_price,omitempty"`
	TotalDeposit *int64   `json:"total_deposit,omitempty"`
}

type RentalFilter struct {
	LenderID string
	LendeeID string
	// UserID matches rentals where the user is either lender or lendee.
	UserID   string
	Status   RentalStatus
	Page     int32
	PageSize int32
}
