package models

// TicketStatus is the closed set of ticket lifecycle states.
// PENDING -> BOOKED and PENDING -> CANCELLED are the only transitions;
// both targets are terminal.
type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketBooked    TicketStatus = "BOOKED"
	TicketCancelled TicketStatus = "CANCELLED"
)

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketPending:   {TicketBooked, TicketCancelled},
	TicketBooked:    {},
	TicketCancelled: {},
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, t := range ticketTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s TicketStatus) Terminal() bool {
	return len(ticketTransitions[s]) == 0
}

// OrderStatus is the closed set of payment-order states.
// CREATED -> PAID and CREATED -> FAILED; both targets are terminal.
type OrderStatus string

const (
	OrderCreated OrderStatus = "CREATED"
	OrderPaid    OrderStatus = "PAID"
	OrderFailed  OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderCreated: {OrderPaid, OrderFailed},
	OrderPaid:    {},
	OrderFailed:  {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}
