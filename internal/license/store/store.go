// Package store defines the license persistence port. Implementations must
// provide atomic conditional claims: the store, not the service, is the
// serialization point for concurrent claim attempts.
package store

import (
	"context"
	"time"

	"kitclaim/internal/license/models"
	id "kitclaim/pkg/domain"
)

// Store is the license persistence port.
//
// The Claim*/Reject methods are conditional writes guarded by the
// pending-and-unowned predicate. When the predicate does not match any row
// they return sentinel.ErrNoRowsAffected and must not mutate anything; the
// service disambiguates by re-reading. Find methods return
// sentinel.ErrNotFound when no license matches.
type Store interface {
	// Create inserts a new pending license. Used by purchase/grant flows
	// outside this service and by tests.
	Create(ctx context.Context, lic *models.License) error

	// FindByCode looks up a license by canonical claim code.
	FindByCode(ctx context.Context, code string) (*models.License, error)

	// FindByToken looks up a license by claim token. Tokens are cleared on
	// claim, so a consumed token never resolves.
	FindByToken(ctx context.Context, token string) (*models.License, error)

	// FindByIDs fetches the subset of the given licenses that exist, in one
	// read. Missing IDs are simply absent from the result.
	FindByIDs(ctx context.Context, ids []id.LicenseID) ([]*models.License, error)

	// ClaimByCode atomically claims the pending, unowned license with the
	// given code for owner: sets owner_id and claimed_at, clears claim_token,
	// sets status to claimed, and returns the updated row.
	ClaimByCode(ctx context.Context, code string, owner id.UserID, now time.Time) (*models.License, error)

	// ClaimByToken atomically claims the pending, unowned license whose ID
	// and claim token both match. The outcome status is supplied by the
	// caller (claimed or claimed_by_other, per purchaser-email match).
	ClaimByToken(ctx context.Context, licenseID id.LicenseID, token string, owner id.UserID, outcome models.Status, now time.Time) (*models.License, error)

	// ClaimByID atomically claims the pending, unowned license with the given
	// ID. Used by the batch claim path after its validation read.
	ClaimByID(ctx context.Context, licenseID id.LicenseID, owner id.UserID, now time.Time) (*models.License, error)

	// RejectByID atomically moves the pending, unowned license with the given
	// ID to rejected and clears its claim token. No owner is assigned.
	RejectByID(ctx context.Context, licenseID id.LicenseID, now time.Time) error
}
