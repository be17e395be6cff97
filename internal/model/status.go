package model

import "errors"

var ErrInvalidProductCode = errors.New("product code must contain only letters, digits and dashes")

// OrderStatus is the order lifecycle state. CANCELLED and COMPLETED are
// terminal.
type OrderStatus int

const (
	StatusUnknown           OrderStatus = -2
	StatusCancelled         OrderStatus = -1
	StatusNew               OrderStatus = 0
	StatusReady             OrderStatus = 1
	StatusPaymentAccepted   OrderStatus = 2
	StatusPaymentProcessing OrderStatus = 3
	StatusPaymentComplete   OrderStatus = 4
	StatusDispatched        OrderStatus = 5
	StatusCompleted         OrderStatus = 6
)

// OrderStatusOf maps a raw integer to its status; values outside the known
// range collapse to StatusUnknown.
func OrderStatusOf(v int) OrderStatus {
	s := OrderStatus(v)
	if s < StatusCancelled || s > StatusCompleted {
		return StatusUnknown
	}
	return s
}

func (s OrderStatus) String() string {
	switch s {
	case StatusCancelled:
		return "Cancelled"
	case StatusNew:
		return "New Order"
	case StatusReady:
		return "Ready for Payment"
	case StatusPaymentAccepted:
		return "Accepting Payment"
	case StatusPaymentProcessing:
		return "Processing Payment"
	case StatusPaymentComplete:
		return "Payment Completed"
	case StatusDispatched:
		return "Dispatched"
	case StatusCompleted:
		return "Completed"
	}
	return "Unknown"
}

// Milestone tags a PaymentEvent with the provider interaction it records.
type Milestone int

const (
	MilestoneUnknown   Milestone = -1
	MilestoneCreated   Milestone = 0
	MilestoneAccepted  Milestone = 1
	MilestoneCancelled Milestone = 2
	MilestoneConfirmed Milestone = 3
)

func MilestoneOf(v int) Milestone {
	m := Milestone(v)
	if m < MilestoneCreated || m > MilestoneConfirmed {
		return MilestoneUnknown
	}
	return m
}

func (m Milestone) String() string {
	switch m {
	case MilestoneCreated:
		return "created"
	case MilestoneAccepted:
		return "accepted"
	case MilestoneCancelled:
		return "cancelled"
	case MilestoneConfirmed:
		return "confirmed"
	}
	return "unknown"
}
