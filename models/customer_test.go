// models/customer_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomerStatus_IsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusVerified.IsValid())
	assert.True(t, StatusRejected.IsValid())
	assert.True(t, StatusFlagged.IsValid())
	assert.False(t, CustomerStatus("ARCHIVED").IsValid())
	assert.False(t, CustomerStatus("").IsValid())
}

func TestCustomerStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from  CustomerStatus
		to    CustomerStatus
		allow bool
	}{
		{StatusPending, StatusVerified, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusFlagged, true},
		{StatusFlagged, StatusPending, true},
		{StatusFlagged, StatusRejected, true},
		{StatusFlagged, StatusVerified, false},
		{StatusRejected, StatusPending, true},
		{StatusRejected, StatusVerified, false},
		{StatusRejected, StatusFlagged, false},
		{StatusVerified, StatusPending, false},
		{StatusVerified, StatusRejected, false},
		{StatusVerified, StatusFlagged, false},
		{StatusPending, StatusPending, false},
		{StatusPending, CustomerStatus("ARCHIVED"), false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allow, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestCustomer_FullName(t *testing.T) {
	c := &Customer{FirstName: "John", LastName: "Mwangi"}
	assert.Equal(t, "John Mwangi", c.FullName())

	c.MiddleName = "Kamau"
	assert.Equal(t, "John Kamau Mwangi", c.FullName())
}
