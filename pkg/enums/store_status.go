package enums

import "fmt"

// StoreStatus tracks a store through admin verification.
type StoreStatus string

const (
	StoreStatusPending   StoreStatus = "pending"
	StoreStatusApproved  StoreStatus = "approved"
	StoreStatusRejected  StoreStatus = "rejected"
	StoreStatusSuspended StoreStatus = "suspended"
)

var validStoreStatuses = []StoreStatus{
	StoreStatusPending,
	StoreStatusApproved,
	StoreStatusRejected,
	StoreStatusSuspended,
}

// String implements fmt.Stringer.
func (s StoreStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreStatus.
func (s StoreStatus) IsValid() bool {
	for _, candidate := range validStoreStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreStatus converts the raw string to StoreStatus.
func ParseStoreStatus(value string) (StoreStatus, error) {
	for _, candidate := range validStoreStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store status %q", value)
}
