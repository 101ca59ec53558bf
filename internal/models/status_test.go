package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketStatusTransitions(t *testing.T) {
	assert.True(t, TicketPending.CanTransitionTo(TicketBooked))
	assert.True(t, TicketPending.CanTransitionTo(TicketCancelled))
	assert.False(t, TicketBooked.CanTransitionTo(TicketPending))
	assert.False(t, TicketBooked.CanTransitionTo(TicketCancelled))
	assert.False(t, TicketCancelled.CanTransitionTo(TicketBooked))

	assert.False(t, TicketPending.Terminal())
	assert.True(t, TicketBooked.Terminal())
	assert.True(t, TicketCancelled.Terminal())
}

func TestOrderStatusTransitions(t *testing.T) {
	assert.True(t, OrderCreated.CanTransitionTo(OrderPaid))
	assert.True(t, OrderCreated.CanTransitionTo(OrderFailed))
	assert.False(t, OrderPaid.CanTransitionTo(OrderFailed))
	assert.False(t, OrderFailed.CanTransitionTo(OrderPaid))

	assert.False(t, OrderCreated.Terminal())
	assert.True(t, OrderPaid.Terminal())
	assert.True(t, OrderFailed.Terminal())
}

func TestSeatAvailable(t *testing.T) {
	now := time.Now()
	hold := 5 * time.Minute
	uid := int64(7)

	free := Seat{Code: "A1"}
	assert.True(t, free.Available(now, hold))

	booked := Seat{Code: "A1", Booked: true}
	assert.False(t, booked.Available(now, hold))

	fresh := now.Add(-time.Minute)
	held := Seat{Code: "A1", LockedBy: &uid, LockedAt: &fresh}
	assert.False(t, held.Available(now, hold))

	stale := now.Add(-6 * time.Minute)
	expired := Seat{Code: "A1", LockedBy: &uid, LockedAt: &stale}
	assert.True(t, expired.Available(now, hold))
}
