// Package domain defines typed identifiers shared across the service.
//
// Each ID is a distinct named type over uuid.UUID so the compiler rejects
// cross-assignment (a LicenseID can never be passed where a UserID is
// expected). Parse helpers enforce the invariant that IDs are valid,
// non-empty, non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "kitclaim/pkg/domain-errors"
)

type (
	// UserID identifies an authenticated requester.
	UserID uuid.UUID

	// LicenseID identifies a single redeemable license.
	LicenseID uuid.UUID

	// ProductID identifies the product a license entitles.
	ProductID uuid.UUID
)

// ParseUserID parses and validates a user ID string.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s, "user_id")
	return UserID(u), err
}

// ParseLicenseID parses and validates a license ID string.
func ParseLicenseID(s string) (LicenseID, error) {
	u, err := parse(s, "license_id")
	return LicenseID(u), err
}

// ParseProductID parses and validates a product ID string.
func ParseProductID(s string) (ProductID, error) {
	u, err := parse(s, "product_id")
	return ProductID(u), err
}

func parse(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id LicenseID) String() string { return uuid.UUID(id).String() }
func (id ProductID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id LicenseID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
