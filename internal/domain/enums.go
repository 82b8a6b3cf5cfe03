package domain

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	// PaymentMethodCOD - cash collected by the carrier at delivery
	PaymentMethodCOD PaymentMethod = "cod"
	// PaymentMethodCard - card charge through a payment intent
	PaymentMethodCard PaymentMethod = "card"
)

// IsValid checks if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard:
		return true
	default:
		return false
	}
}

// PaymentStatus represents the payment status of an order or suborder
type PaymentStatus string

const (
	// UNPAID - card order placed, no charge attempted yet
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PENDING - COD order, or a card charge not yet settled
	PaymentStatusPending PaymentStatus = "pending"
	// PROCESSING - gateway is still settling the charge
	PaymentStatusProcessing PaymentStatus = "processing"
	// PAID - charge succeeded and was recorded
	PaymentStatusPaid PaymentStatus = "paid"
	// FAILED - charge failed
	PaymentStatusFailed PaymentStatus = "failed"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid,
		PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusPaid,
		PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a payment status transition is valid.
// Payment status only moves forward; nothing leaves paid.
func (s PaymentStatus) CanTransitionTo(newStatus PaymentStatus) bool {
	switch s {
	case PaymentStatusUnpaid:
		return newStatus == PaymentStatusProcessing ||
			newStatus == PaymentStatusPaid ||
			newStatus == PaymentStatusFailed
	case PaymentStatusPending:
		return newStatus == PaymentStatusProcessing ||
			newStatus == PaymentStatusPaid ||
			newStatus == PaymentStatusFailed
	case PaymentStatusProcessing:
		return newStatus == PaymentStatusPaid ||
			newStatus == PaymentStatusFailed
	case PaymentStatusFailed:
		// a new card attempt on the same order
		return newStatus == PaymentStatusProcessing ||
			newStatus == PaymentStatusPaid
	case PaymentStatusPaid:
		return false // Terminal
	default:
		return false
	}
}

// InitialPaymentStatus returns the payment status an order starts with
func InitialPaymentStatus(method PaymentMethod) PaymentStatus {
	if method == PaymentMethodCard {
		return PaymentStatusUnpaid
	}
	return PaymentStatusPending
}

// DeliveryStatus represents the delivery status of an order or suborder
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusShipping   DeliveryStatus = "shipping"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusCancelled  DeliveryStatus = "cancelled"
)

// IsValid checks if the delivery status is valid
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending,
		DeliveryStatusProcessing,
		DeliveryStatusShipping,
		DeliveryStatusDelivered,
		DeliveryStatusCancelled:
		return true
	default:
		return false
	}
}
