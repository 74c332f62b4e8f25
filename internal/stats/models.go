package stats

import "time"

// CampaignStatsRequest scopes the aggregation. Since is optional: zero means
// all-time attempt counts.
type CampaignStatsRequest struct {
	CampaignID string    `json:"campaign_id"`
	Since      time.Time `json:"since,omitempty"`
}

// CampaignStats is the operator-facing snapshot of one campaign: where its
// enrollments stand and how deliveries have been going.
type CampaignStats struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Active       bool   `json:"active"`

	PendingEnrollments   int `json:"pending_enrollments"`
	ActiveEnrollments    int `json:"active_enrollments"`
	StoppedEnrollments   int `json:"stopped_enrollments"`
	CompletedEnrollments int `json:"completed_enrollments"`
	FailedEnrollments    int `json:"failed_enrollments"`
	TotalEnrollments     int `json:"total_enrollments"`

	SuccessfulSends int `json:"successful_sends"`
	TransientErrors int `json:"transient_errors"`
	FatalErrors     int `json:"fatal_errors"`
	TotalSendTries  int `json:"total_send_tries"`

	// DeliveryRate is successful sends over all physical tries.
	DeliveryRate float64 `json:"delivery_rate"`

	// CompletionRate is completed enrollments over all terminal ones.
	CompletionRate float64 `json:"completion_rate"`
}
