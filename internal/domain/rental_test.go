package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRentalStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     RentalStatus
		to       RentalStatus
		expected bool
	}{
		{RentalStatusWaitingApproval, RentalStatusApproved, true},
		{RentalStatusWaitingApproval, RentalStatusRejected, true},
		{RentalStatusWaitingApproval, RentalStatusCompleted, false},
		{RentalStatusApproved, RentalStatusCompleted, true},
		{RentalStatusApproved, RentalStatusRejected, false},
		{RentalStatusApproved, RentalStatusApproved, false},
		{RentalStatusRejected, RentalStatusApproved, false},
		{RentalStatusCompleted, RentalStatusWaitingApproval, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRentalStatus_HoldsItems(t *testing.T) {
	assert.True(t, RentalStatusWaitingApproval.HoldsItems())
	assert.True(t, RentalStatusApproved.HoldsItems())
	assert.False(t, RentalStatusRejected.HoldsItems())
	assert.False(t, RentalStatusCompleted.HoldsItems())

	assert.True(t, RentalStatusRejected.IsTerminal())
	assert.True(t, RentalStatusCompleted.IsTerminal())
	assert.False(t, RentalStatus("PENDING").Valid())
}

func TestRental_AmountDueAndItemIDs(t *testing.T) {
	rt := &Rental{
		TotalPrice:   200000,
		TotalDeposit: 50000,
		Items: []RentalItem{
			{ItemID: "a"},
			{ItemID: "b"},
		},
	}
	assert.Equal(t, int64(250000), rt.AmountDue())
	assert.Equal(t, []string{"a", "b"}, rt.ItemIDs())
}
