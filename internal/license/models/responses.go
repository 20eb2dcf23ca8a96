package models

// LicenseRef is the confirmation payload returned after a successful claim.
type LicenseRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// ClaimResponse is returned by both single-claim endpoints.
type ClaimResponse struct {
	Message string     `json:"message"`
	License LicenseRef `json:"license"`
}

// BatchItemResult reports the outcome for one license in a batch.
type BatchItemResult struct {
	LicenseID string `json:"licenseId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// BatchResponse aggregates per-item outcomes. Success is true only when every
// item succeeded; partial success is expected and reported, not an error.
type BatchResponse struct {
	Success      bool              `json:"success"`
	Results      []BatchItemResult `json:"results"`
	SuccessCount int               `json:"successCount"`
	ErrorCount   int               `json:"errorCount"`
}
