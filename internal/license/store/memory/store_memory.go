// Package memory provides an in-memory license store for unit and handler
// tests. Conditional-claim semantics match the PostgreSQL store: the mutex
// makes each claim check-and-set atomic, so concurrent claims on the same
// license still produce exactly one winner.
package memory

import (
	"context"
	"sync"
	"time"

	"kitclaim/internal/license/models"
	id "kitclaim/pkg/domain"
	"kitclaim/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	licenses map[id.LicenseID]*models.License
}

func New() *InMemoryStore {
	return &InMemoryStore{
		licenses: make(map[id.LicenseID]*models.License),
	}
}

func (s *InMemoryStore) Create(_ context.Context, lic *models.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.licenses[lic.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.licenses {
		if existing.Code == lic.Code {
			return sentinel.ErrConflict
		}
	}
	cp := *lic
	s.licenses[lic.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, lic := range s.licenses {
		if lic.Code == code {
			return copyLicense(lic), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByToken(_ context.Context, token string) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, lic := range s.licenses {
		if lic.ClaimToken != nil && *lic.ClaimToken == token {
			return copyLicense(lic), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByIDs(_ context.Context, ids []id.LicenseID) ([]*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.License, 0, len(ids))
	for _, licenseID := range ids {
		if lic, ok := s.licenses[licenseID]; ok {
			out = append(out, copyLicense(lic))
		}
	}
	return out, nil
}

func (s *InMemoryStore) ClaimByCode(_ context.Context, code string, owner id.UserID, now time.Time) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lic := range s.licenses {
		if lic.Code == code {
			if !claimable(lic) {
				return nil, sentinel.ErrNoRowsAffected
			}
			applyClaim(lic, owner, models.StatusClaimed, now)
			return copyLicense(lic), nil
		}
	}
	return nil, sentinel.ErrNoRowsAffected
}

func (s *InMemoryStore) ClaimByToken(_ context.Context, licenseID id.LicenseID, token string, owner id.UserID, outcome models.Status, now time.Time) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lic, ok := s.licenses[licenseID]
	if !ok || !claimable(lic) || lic.ClaimToken == nil || *lic.ClaimToken != token {
		return nil, sentinel.ErrNoRowsAffected
	}
	applyClaim(lic, owner, outcome, now)
	return copyLicense(lic), nil
}

func (s *InMemoryStore) ClaimByID(_ context.Context, licenseID id.LicenseID, owner id.UserID, now time.Time) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lic, ok := s.licenses[licenseID]
	if !ok || !claimable(lic) {
		return nil, sentinel.ErrNoRowsAffected
	}
	applyClaim(lic, owner, models.StatusClaimed, now)
	return copyLicense(lic), nil
}

func (s *InMemoryStore) RejectByID(_ context.Context, licenseID id.LicenseID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lic, ok := s.licenses[licenseID]
	if !ok || !claimable(lic) {
		return sentinel.ErrNoRowsAffected
	}
	lic.Status = models.StatusRejected
	lic.ClaimToken = nil
	lic.UpdatedAt = now
	return nil
}

// claimable is the in-memory equivalent of the SQL predicate
// "status = 'pending' AND owner_id IS NULL".
func claimable(lic *models.License) bool {
	return lic.Status == models.StatusPending && lic.OwnerID == nil
}

func applyClaim(lic *models.License, owner id.UserID, outcome models.Status, now time.Time) {
	ownerCopy := owner
	nowCopy := now
	lic.Status = outcome
	lic.OwnerID = &ownerCopy
	lic.ClaimedAt = &nowCopy
	lic.ClaimToken = nil
	lic.UpdatedAt = now
}

func copyLicense(lic *models.License) *models.License {
	cp := *lic
	if lic.OwnerID != nil {
		owner := *lic.OwnerID
		cp.OwnerID = &owner
	}
	if lic.ClaimToken != nil {
		token := *lic.ClaimToken
		cp.ClaimToken = &token
	}
	if lic.ClaimedAt != nil {
		claimedAt := *lic.ClaimedAt
		cp.ClaimedAt = &claimedAt
	}
	return &cp
}
