package enums

import "fmt"

// NotificationEvent is the wire-visible event label on a user notification.
type NotificationEvent string

const (
	NotifyBookingAssigned     NotificationEvent = "BOOKING_ASSIGNED"
	NotifyBookingAccepted     NotificationEvent = "BOOKING_ACCEPTED"
	NotifyBookingReassigned   NotificationEvent = "BOOKING_REASSIGNED"
	NotifyBookingFailed       NotificationEvent = "BOOKING_FAILED"
	NotifyBookingCancelled    NotificationEvent = "BOOKING_CANCELLED"
	NotifySiteVisited         NotificationEvent = "SITE_VISITED"
	NotifyReportUploaded      NotificationEvent = "REPORT_UPLOADED"
	NotifyPaymentReceived     NotificationEvent = "PAYMENT_RECEIVED"
	NotifyWalletCredited      NotificationEvent = "WALLET_CREDITED"
	NotifyTravelChargesUpdate NotificationEvent = "TRAVEL_CHARGES_UPDATE"
	NotifyBookingCompleted    NotificationEvent = "BOOKING_COMPLETED"
)

var validNotificationEvents = []NotificationEvent{
	NotifyBookingAssigned,
	NotifyBookingAccepted,
	NotifyBookingReassigned,
	NotifyBookingFailed,
	NotifyBookingCancelled,
	NotifySiteVisited,
	NotifyReportUploaded,
	NotifyPaymentReceived,
	NotifyWalletCredited,
	NotifyTravelChargesUpdate,
	NotifyBookingCompleted,
}

// IsValid reports whether the value is a known NotificationEvent.
func (n NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw input into a NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}

// RecipientKind distinguishes which party a notification addresses.
type RecipientKind string

const (
	RecipientCustomer RecipientKind = "customer"
	RecipientVendor   RecipientKind = "vendor"
	RecipientAdmin    RecipientKind = "admin"
)

// IsValid reports whether the value is a known RecipientKind.
func (r RecipientKind) IsValid() bool {
	switch r {
	case RecipientCustomer, RecipientVendor, RecipientAdmin:
		return true
	default:
		return false
	}
}
