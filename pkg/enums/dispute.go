package enums

import "fmt"

// DisputeStatus tracks a dispute through triage and resolution.
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusEscalated   DisputeStatus = "escalated"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusClosed      DisputeStatus = "closed"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusEscalated,
	DisputeStatusResolved,
	DisputeStatusClosed,
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeStatus converts the raw string to DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// DisputeResolution is the admin action that settles a dispute.
type DisputeResolution string

const (
	DisputeResolutionRefundFull    DisputeResolution = "refund_full"
	DisputeResolutionRefundPartial DisputeResolution = "refund_partial"
	DisputeResolutionStoreAction   DisputeResolution = "store_action"
	DisputeResolutionNoAction      DisputeResolution = "no_action"
	DisputeResolutionOther         DisputeResolution = "other"
)

var validDisputeResolutions = []DisputeResolution{
	DisputeResolutionRefundFull,
	DisputeResolutionRefundPartial,
	DisputeResolutionStoreAction,
	DisputeResolutionNoAction,
	DisputeResolutionOther,
}

// IsRefund reports whether the resolution triggers a payment refund.
func (d DisputeResolution) IsRefund() bool {
	return d == DisputeResolutionRefundFull || d == DisputeResolutionRefundPartial
}

// IsValid reports whether the value is a known DisputeResolution.
func (d DisputeResolution) IsValid() bool {
	for _, candidate := range validDisputeResolutions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeResolution converts the raw string to DisputeResolution.
func ParseDisputeResolution(value string) (DisputeResolution, error) {
	for _, candidate := range validDisputeResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute resolution %q", value)
}
