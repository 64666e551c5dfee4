package types

import "time"

// MediaRef points at a stored document or image returned by the storage
// adapter.
type MediaRef struct {
	URL      string `json:"url"`
	ObjectID string `json:"objectId"`
}

// SurveyReport is the vendor's findings after the site visit.
type SurveyReport struct {
	WaterFound      bool       `json:"waterFound"`
	DepthMeters     *float64   `json:"depthMeters,omitempty"`
	RecommendedSpot string     `json:"recommendedSpot,omitempty"`
	Remarks         string     `json:"remarks,omitempty"`
	Media           []MediaRef `json:"media,omitempty"`
	UploadedAt      *time.Time `json:"uploadedAt,omitempty"`
	Approved        bool       `json:"approved"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
}

// BorewellResult is the optional post-payment outcome the vendor records
// after the customer drills.
type BorewellResult struct {
	WaterStruck bool       `json:"waterStruck"`
	DepthMeters *float64   `json:"depthMeters,omitempty"`
	Remarks     string     `json:"remarks,omitempty"`
	Media       []MediaRef `json:"media,omitempty"`
	UploadedAt  *time.Time `json:"uploadedAt,omitempty"`
}
