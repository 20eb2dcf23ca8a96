package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kitclaim/internal/license/models"
	id "kitclaim/pkg/domain"
	"kitclaim/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func newPendingLicense(code, token string) *models.License {
	now := time.Now()
	lic := &models.License{
		ID:             id.LicenseID(uuid.New()),
		Code:           code,
		Status:         models.StatusPending,
		PurchaserEmail: "buyer@example.com",
		ProductID:      id.ProductID(uuid.New()),
		ProductName:    "Starter Kit",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if token != "" {
		lic.ClaimToken = &token
	}
	return lic
}

func (s *InMemoryStoreSuite) TestClaimByCode() {
	s.Run("claims a pending license", func() {
		lic := newPendingLicense("AB12CD34EF56", "tok_1234567890abcdefGHIJ")
		s.Require().NoError(s.store.Create(s.ctx, lic))

		owner := id.UserID(uuid.New())
		now := time.Now()
		claimed, err := s.store.ClaimByCode(s.ctx, "AB12CD34EF56", owner, now)
		s.Require().NoError(err)
		s.Equal(models.StatusClaimed, claimed.Status)
		s.Require().NotNil(claimed.OwnerID)
		s.Equal(owner, *claimed.OwnerID)
		s.Nil(claimed.ClaimToken, "token must be cleared on claim")
		s.Require().NotNil(claimed.ClaimedAt)
	})

	s.Run("second claim fails with no rows affected", func() {
		lic := newPendingLicense("ZZ99YY88XX77", "")
		s.Require().NoError(s.store.Create(s.ctx, lic))

		_, err := s.store.ClaimByCode(s.ctx, "ZZ99YY88XX77", id.UserID(uuid.New()), time.Now())
		s.Require().NoError(err)

		_, err = s.store.ClaimByCode(s.ctx, "ZZ99YY88XX77", id.UserID(uuid.New()), time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)
	})

	s.Run("unknown code fails with no rows affected", func() {
		_, err := s.store.ClaimByCode(s.ctx, "NOSUCHCODE11", id.UserID(uuid.New()), time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)
	})
}

func (s *InMemoryStoreSuite) TestClaimByToken() {
	s.Run("consumes the token exactly once", func() {
		token := "tok_abcdefghij0123456789"
		lic := newPendingLicense("AA11BB22CC33", token)
		s.Require().NoError(s.store.Create(s.ctx, lic))

		owner := id.UserID(uuid.New())
		claimed, err := s.store.ClaimByToken(s.ctx, lic.ID, token, owner, models.StatusClaimedByOther, time.Now())
		s.Require().NoError(err)
		s.Equal(models.StatusClaimedByOther, claimed.Status)
		s.Nil(claimed.ClaimToken)

		// The consumed token no longer resolves, and the conditional claim
		// predicate no longer matches.
		_, err = s.store.FindByToken(s.ctx, token)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.ClaimByToken(s.ctx, lic.ID, token, id.UserID(uuid.New()), models.StatusClaimed, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)
	})

	s.Run("wrong token does not claim", func() {
		lic := newPendingLicense("DD44EE55FF66", "tok_rightrightrightright1")
		s.Require().NoError(s.store.Create(s.ctx, lic))

		_, err := s.store.ClaimByToken(s.ctx, lic.ID, "tok_wrongwrongwrongwrong1", id.UserID(uuid.New()), models.StatusClaimed, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)

		found, err := s.store.FindByCode(s.ctx, "DD44EE55FF66")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, found.Status)
		s.Nil(found.OwnerID)
	})
}

func (s *InMemoryStoreSuite) TestRejectByID() {
	lic := newPendingLicense("GG77HH88II99", "tok_tobecleareddddddddd1")
	s.Require().NoError(s.store.Create(s.ctx, lic))

	s.Require().NoError(s.store.RejectByID(s.ctx, lic.ID, time.Now()))

	found, err := s.store.FindByCode(s.ctx, "GG77HH88II99")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, found.Status)
	s.Nil(found.OwnerID, "reject assigns no owner")
	s.Nil(found.ClaimToken, "reject clears the token")

	// Terminal states stay terminal.
	s.Require().ErrorIs(s.store.RejectByID(s.ctx, lic.ID, time.Now()), sentinel.ErrNoRowsAffected)
	_, err = s.store.ClaimByID(s.ctx, lic.ID, id.UserID(uuid.New()), time.Now())
	s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)
}

func (s *InMemoryStoreSuite) TestFindByIDs() {
	a := newPendingLicense("AB12CD34EF56", "")
	b := newPendingLicense("ZZ99YY88XX77", "")
	s.Require().NoError(s.store.Create(s.ctx, a))
	s.Require().NoError(s.store.Create(s.ctx, b))

	got, err := s.store.FindByIDs(s.ctx, []id.LicenseID{a.ID, id.LicenseID(uuid.New()), b.ID})
	s.Require().NoError(err)
	s.Len(got, 2, "missing IDs are absent, not errors")
}

func (s *InMemoryStoreSuite) TestReturnedLicenseIsACopy() {
	lic := newPendingLicense("AB12CD34EF56", "")
	s.Require().NoError(s.store.Create(s.ctx, lic))

	found, err := s.store.FindByCode(s.ctx, "AB12CD34EF56")
	s.Require().NoError(err)
	found.Status = models.StatusRejected

	again, err := s.store.FindByCode(s.ctx, "AB12CD34EF56")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, again.Status, "mutating a returned license must not leak into the store")
}

// TestConcurrentClaimSingleWinner verifies the single-winner property: N
// concurrent claims on one pending license produce exactly one success.
func (s *InMemoryStoreSuite) TestConcurrentClaimSingleWinner() {
	lic := newPendingLicense("AB12CD34EF56", "")
	s.Require().NoError(s.store.Create(s.ctx, lic))

	const goroutines = 50
	var wg sync.WaitGroup
	var successCount, missCount atomic.Int32
	winners := make([]id.UserID, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			owner := id.UserID(uuid.New())
			claimed, err := s.store.ClaimByCode(s.ctx, "AB12CD34EF56", owner, time.Now())
			switch {
			case err == nil:
				successCount.Add(1)
				winners[n] = *claimed.OwnerID
			case errors.Is(err, sentinel.ErrNoRowsAffected):
				missCount.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one claim must win")
	s.Equal(int32(goroutines-1), missCount.Load())

	// The settled owner equals the single winner's identity.
	final, err := s.store.FindByCode(s.ctx, "AB12CD34EF56")
	s.Require().NoError(err)
	s.Require().NotNil(final.OwnerID)
	var winner id.UserID
	for _, w := range winners {
		if !w.IsNil() {
			winner = w
		}
	}
	s.Equal(winner, *final.OwnerID)
}
