// Package models holds the license entity and the claim request/response
// shapes. Domain rules that are pure functions of the data (code
// normalization, format checks, state predicates) live here; everything
// involving I/O belongs to the store and service layers.
package models

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	id "kitclaim/pkg/domain"
)

// Status is the lifecycle state of a license. pending is the only state a
// claim can start from; all others are terminal for this service.
type Status string

const (
	StatusPending        Status = "pending"
	StatusClaimed        Status = "claimed"
	StatusClaimedByOther Status = "claimed_by_other"
	StatusRejected       Status = "rejected"
)

// IsTerminal reports whether no claim operation may move the license further.
func (s Status) IsTerminal() bool {
	return s == StatusClaimed || s == StatusClaimedByOther || s == StatusRejected
}

// License represents one redeemable entitlement to a product.
//
// Invariants maintained by the store layer:
//   - OwnerID is set iff Status is claimed or claimed_by_other.
//   - ClaimToken is cleared the moment the license leaves pending.
//   - pending -> terminal happens exactly once, atomically.
type License struct {
	ID             id.LicenseID
	Code           string // canonical form, see NormalizeCode
	ClaimToken     *string
	Status         Status
	OwnerID        *id.UserID
	PurchaserEmail string
	ProductID      id.ProductID
	ProductName    string
	ClaimedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ClaimCodeLength is the fixed length of a canonical claim code.
const ClaimCodeLength = 12

// NormalizeCode strips formatting characters users type or paste (hyphens,
// whitespace) and uppercases the rest, producing the canonical lookup form.
func NormalizeCode(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// ValidCode reports whether a canonical code matches the fixed-length
// alphanumeric pattern. Call NormalizeCode first.
func ValidCode(code string) bool {
	return len(code) == ClaimCodeLength && govalidator.IsAlphanumeric(code)
}

// ValidToken reports whether a raw claim token matches the expected URL-safe
// format. Tokens are never normalized; they are secrets compared verbatim.
func ValidToken(token string) bool {
	return govalidator.Matches(token, `^[A-Za-z0-9_-]{20,64}$`)
}
