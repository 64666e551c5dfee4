package enums

import "fmt"

// TravelChargesStatus tracks a vendor-initiated travel charges amendment.
// It moves independently of the booking status.
type TravelChargesStatus string

const (
	TravelChargesPending  TravelChargesStatus = "PENDING"
	TravelChargesApproved TravelChargesStatus = "APPROVED"
	TravelChargesRejected TravelChargesStatus = "REJECTED"
)

var validTravelChargesStatuses = []TravelChargesStatus{
	TravelChargesPending,
	TravelChargesApproved,
	TravelChargesRejected,
}

func (s TravelChargesStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TravelChargesStatus.
func (s TravelChargesStatus) IsValid() bool {
	for _, candidate := range validTravelChargesStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTravelChargesStatus converts raw input into a TravelChargesStatus.
func ParseTravelChargesStatus(value string) (TravelChargesStatus, error) {
	for _, candidate := range validTravelChargesStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid travel charges status %q", value)
}
