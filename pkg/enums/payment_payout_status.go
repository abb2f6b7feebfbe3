package enums

import "fmt"

// PaymentPayoutStatus tracks whether a payment's store share has been
// batched into a payout yet.
type PaymentPayoutStatus string

const (
	PaymentPayoutStatusPending    PaymentPayoutStatus = "pending"
	PaymentPayoutStatusEligible   PaymentPayoutStatus = "eligible"
	PaymentPayoutStatusProcessing PaymentPayoutStatus = "processing"
	PaymentPayoutStatusCompleted  PaymentPayoutStatus = "completed"
	PaymentPayoutStatusCancelled  PaymentPayoutStatus = "cancelled"
)

var validPaymentPayoutStatuses = []PaymentPayoutStatus{
	PaymentPayoutStatusPending,
	PaymentPayoutStatusEligible,
	PaymentPayoutStatusProcessing,
	PaymentPayoutStatusCompleted,
	PaymentPayoutStatusCancelled,
}

// IsValid reports whether the value is a known PaymentPayoutStatus.
func (p PaymentPayoutStatus) IsValid() bool {
	for _, candidate := range validPaymentPayoutStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentPayoutStatus converts the raw string to PaymentPayoutStatus.
func ParsePaymentPayoutStatus(value string) (PaymentPayoutStatus, error) {
	for _, candidate := range validPaymentPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment payout status %q", value)
}
