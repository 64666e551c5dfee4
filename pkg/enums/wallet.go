package enums

import "fmt"

// WalletTransactionType classifies a vendor wallet ledger row.
type WalletTransactionType string

const (
	WalletTxSiteVisit       WalletTransactionType = "SITE_VISIT"
	WalletTxReportUpload    WalletTransactionType = "REPORT_UPLOAD"
	WalletTxTravelCharges   WalletTransactionType = "TRAVEL_CHARGES"
	WalletTxAdvanceRefund   WalletTransactionType = "ADVANCE_REFUND"
	WalletTxRemainingRefund WalletTransactionType = "REMAINING_REFUND"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTxSiteVisit,
	WalletTxReportUpload,
	WalletTxTravelCharges,
	WalletTxAdvanceRefund,
	WalletTxRemainingRefund,
}

func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDebit reports whether the transaction reduces the vendor balance.
func (t WalletTransactionType) IsDebit() bool {
	switch t {
	case WalletTxAdvanceRefund, WalletTxRemainingRefund:
		return true
	default:
		return false
	}
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

// WalletTransactionStatus tracks whether a ledger row settled.
type WalletTransactionStatus string

const (
	WalletTxStatusPending WalletTransactionStatus = "PENDING"
	WalletTxStatusSuccess WalletTransactionStatus = "SUCCESS"
	WalletTxStatusFailed  WalletTransactionStatus = "FAILED"
)

var validWalletTransactionStatuses = []WalletTransactionStatus{
	WalletTxStatusPending,
	WalletTxStatusSuccess,
	WalletTxStatusFailed,
}

func (s WalletTransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WalletTransactionStatus.
func (s WalletTransactionStatus) IsValid() bool {
	for _, candidate := range validWalletTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
