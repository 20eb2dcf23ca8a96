//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kitclaim/internal/license/models"
	"kitclaim/internal/license/store/postgres"
	id "kitclaim/pkg/domain"
	"kitclaim/pkg/platform/sentinel"
	"kitclaim/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = postgres.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) TearDownSuite() {
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx))
}

func (s *PostgresStoreSuite) seedLicense(code string) *models.License {
	token := "tok_" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	lic := &models.License{
		ID:             id.LicenseID(uuid.New()),
		Code:           code,
		ClaimToken:     &token,
		Status:         models.StatusPending,
		PurchaserEmail: "buyer@example.com",
		ProductID:      id.ProductID(uuid.New()),
		ProductName:    "Starter Kit",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Require().NoError(s.store.Create(s.ctx, lic))
	return lic
}

func (s *PostgresStoreSuite) TestFindByCode() {
	lic := s.seedLicense("AB12CD34EF56")

	found, err := s.store.FindByCode(s.ctx, "AB12CD34EF56")
	s.Require().NoError(err)
	s.Equal(lic.ID, found.ID)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.OwnerID)
	s.NotNil(found.ClaimToken)

	_, err = s.store.FindByCode(s.ctx, "ZZZZZZZZZZZZ")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestClaimByCode() {
	s.seedLicense("AB12CD34EF56")
	owner := id.UserID(uuid.New())
	now := time.Now().UTC()

	lic, err := s.store.ClaimByCode(s.ctx, "AB12CD34EF56", owner, now)
	s.Require().NoError(err)
	s.Equal(models.StatusClaimed, lic.Status)
	s.Require().NotNil(lic.OwnerID)
	s.Equal(owner, *lic.OwnerID)
	s.Nil(lic.ClaimToken, "claim must consume the token")
	s.NotNil(lic.ClaimedAt)

	// Second claim fails the predicate.
	_, err = s.store.ClaimByCode(s.ctx, "AB12CD34EF56", id.UserID(uuid.New()), now)
	s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)
}

func (s *PostgresStoreSuite) TestClaimByToken() {
	lic := s.seedLicense("AB12CD34EF56")
	owner := id.UserID(uuid.New())
	now := time.Now().UTC()

	claimed, err := s.store.ClaimByToken(s.ctx, lic.ID, *lic.ClaimToken, owner, models.StatusClaimedByOther, now)
	s.Require().NoError(err)
	s.Equal(models.StatusClaimedByOther, claimed.Status)
	s.Nil(claimed.ClaimToken)

	// Token is single use: the consumed token no longer matches anything.
	_, err = s.store.FindByToken(s.ctx, *lic.ClaimToken)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestClaimByTokenWrongToken() {
	lic := s.seedLicense("AB12CD34EF56")

	_, err := s.store.ClaimByToken(s.ctx, lic.ID, "not-the-right-token-at-all", id.UserID(uuid.New()), models.StatusClaimed, time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)

	// The license is untouched.
	found, err := s.store.FindByCode(s.ctx, "AB12CD34EF56")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Nil(found.OwnerID)
}

func (s *PostgresStoreSuite) TestRejectByID() {
	lic := s.seedLicense("AB12CD34EF56")

	s.Require().NoError(s.store.RejectByID(s.ctx, lic.ID, time.Now().UTC()))

	found, err := s.store.FindByCode(s.ctx, "AB12CD34EF56")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, found.Status)
	s.Nil(found.ClaimToken)

	// Terminal: a second reject matches nothing.
	err = s.store.RejectByID(s.ctx, lic.ID, time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)
}

func (s *PostgresStoreSuite) TestFindByIDs() {
	a := s.seedLicense("AB12CD34EF56")
	b := s.seedLicense("CD34EF56AB12")

	found, err := s.store.FindByIDs(s.ctx, []id.LicenseID{a.ID, b.ID, id.LicenseID(uuid.New())})
	s.Require().NoError(err)
	s.Len(found, 2)
}

// TestConcurrentClaimSingleWinner drives real concurrent transactions at the
// database to prove the conditional UPDATE admits exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentClaimSingleWinner() {
	s.seedLicense("AB12CD34EF56")
	const goroutines = 50

	var wg sync.WaitGroup
	var wins atomic.Int32
	var misses atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.ClaimByCode(s.ctx, "AB12CD34EF56", id.UserID(uuid.New()), time.Now().UTC())
			switch {
			case err == nil:
				wins.Add(1)
			default:
				s.Require().ErrorIs(err, sentinel.ErrNoRowsAffected)
				misses.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), misses.Load())
}
