package models

// MaxBatchSize caps the number of licenses a single batch request may touch.
const MaxBatchSize = 100

// BatchAction selects what a batch request does to each validated license.
type BatchAction string

const (
	BatchActionClaim  BatchAction = "claim"
	BatchActionReject BatchAction = "reject"
)

// IsValid reports whether the action is one of the supported verbs.
func (a BatchAction) IsValid() bool {
	return a == BatchActionClaim || a == BatchActionReject
}

// ClaimCodeRequest is the body of POST /licenses/claim.
type ClaimCodeRequest struct {
	Code string `json:"code"`
}

// ClaimTokenRequest is the body of POST /licenses/claim-token.
type ClaimTokenRequest struct {
	Token string `json:"token"`
}

// BatchRequest is the body of POST /licenses/batch.
type BatchRequest struct {
	LicenseIDs []string    `json:"licenseIds"`
	Action     BatchAction `json:"action"`
}
