// Package service implements the license redemption workflow.
//
// The service owns validation and outcome disambiguation; atomicity lives in
// the store's conditional updates. Handlers stay transport-only, stores stay
// pure I/O.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kitclaim/internal/license/metrics"
	"kitclaim/internal/license/models"
	"kitclaim/internal/license/store"
	id "kitclaim/pkg/domain"
	dErrors "kitclaim/pkg/domain-errors"
	"kitclaim/pkg/email"
	"kitclaim/pkg/platform/sentinel"
)

// AchievementNotifier receives fire-and-forget notifications after successful
// claims. Implementations must not block: a slow or failing achievement
// pipeline never delays or rolls back a committed claim.
type AchievementNotifier interface {
	NotifyKitClaimed(userID id.UserID, productID id.ProductID, productName string)
}

type Service struct {
	store        store.Store
	achievements AchievementNotifier
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAchievements(notifier AchievementNotifier) Option {
	return func(s *Service) { s.achievements = notifier }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("license store is required")
	}

	svc := &Service{
		store:  st,
		logger: slog.Default(),
		tracer: otel.Tracer("kitclaim/license"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ClaimByCode redeems a license by its human-entered claim code.
func (s *Service) ClaimByCode(ctx context.Context, userID id.UserID, rawCode string) (*models.ClaimResponse, error) {
	ctx, span := s.tracer.Start(ctx, "license.ClaimByCode")
	defer span.End()
	defer s.timeOp("code")()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	code := models.NormalizeCode(rawCode)
	if !models.ValidCode(code) {
		s.observe("code", "invalid_format")
		return nil, dErrors.New(dErrors.CodeInvalidFormat,
			fmt.Sprintf("claim code must be %d alphanumeric characters", models.ClaimCodeLength))
	}
	span.SetAttributes(attribute.String("license.code", code))

	lic, err := s.store.ClaimByCode(ctx, code, userID, s.now())
	if err != nil {
		if errors.Is(err, sentinel.ErrNoRowsAffected) {
			outcome := s.disambiguateCode(ctx, code, userID)
			s.observe("code", string(dErrors.CodeOf(outcome)))
			return nil, outcome
		}
		s.logger.ErrorContext(ctx, "claim by code failed", "error", err, "code", code)
		s.observe("code", "internal_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim license")
	}

	s.observe("code", "claimed")
	s.notifyClaimed(ctx, userID, lic)

	return claimResponse(lic), nil
}

// ClaimByToken redeems a license via the single-use token embedded in the
// purchase email link. A requester whose email differs from the purchaser
// email recorded at sale time still receives the license, but the outcome
// status records the transfer as claimed_by_other.
func (s *Service) ClaimByToken(ctx context.Context, userID id.UserID, userEmail, rawToken string) (*models.ClaimResponse, error) {
	ctx, span := s.tracer.Start(ctx, "license.ClaimByToken")
	defer span.End()
	defer s.timeOp("token")()

	if userID.IsNil() || userEmail == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication with a verified email required")
	}

	if !models.ValidToken(rawToken) {
		s.observe("token", "invalid_format")
		return nil, dErrors.New(dErrors.CodeInvalidFormat, "claim token is malformed")
	}

	// Pre-read only computes the outcome status; it does not authorize the
	// write. The conditional update below re-checks everything that matters.
	pre, err := s.store.FindByToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.observe("token", "not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "claim link is invalid or has expired")
		}
		s.logger.ErrorContext(ctx, "token lookup failed", "error", err)
		s.observe("token", "internal_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim license")
	}

	outcome := models.StatusClaimed
	if !email.Equal(userEmail, pre.PurchaserEmail) {
		outcome = models.StatusClaimedByOther
	}
	span.SetAttributes(attribute.Bool("license.original_purchaser", outcome == models.StatusClaimed))

	lic, err := s.store.ClaimByToken(ctx, pre.ID, rawToken, userID, outcome, s.now())
	if err != nil {
		if errors.Is(err, sentinel.ErrNoRowsAffected) {
			result := s.disambiguateToken(ctx, pre.ID, userID)
			s.observe("token", string(dErrors.CodeOf(result)))
			return nil, result
		}
		s.logger.ErrorContext(ctx, "claim by token failed", "error", err, "license_id", pre.ID.String())
		s.observe("token", "internal_error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim license")
	}

	s.observe("token", string(outcome))
	s.notifyClaimed(ctx, userID, lic)

	return claimResponse(lic), nil
}

// disambiguateCode re-reads a license after a failed conditional claim to
// produce a precise error. The read is best-effort diagnostic only: it never
// mutates state and tolerates the license having changed again since the
// failed update.
func (s *Service) disambiguateCode(ctx context.Context, code string, userID id.UserID) error {
	lic, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no license found for this code")
		}
		// The diagnostic read failing must not mask the no-op result; degrade
		// to the generic retryable error.
		s.logger.ErrorContext(ctx, "disambiguation read failed", "error", err, "code", code)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim license")
	}

	if lic.OwnerID != nil && *lic.OwnerID == userID {
		return dErrors.New(dErrors.CodeAlreadyClaimedBySelf, "you already own this license")
	}

	switch lic.Status {
	case models.StatusClaimed, models.StatusClaimedByOther:
		return dErrors.New(dErrors.CodeAlreadyClaimed, "this license has already been claimed")
	case models.StatusRejected:
		return dErrors.New(dErrors.CodeRejected, "this license is not claimable")
	case models.StatusPending:
		// The row changed again between the failed update and this read.
		return dErrors.New(dErrors.CodeAlreadyClaimed, "this license has already been claimed")
	default:
		return dErrors.New(dErrors.CodeNotClaimable, "this license is not claimable")
	}
}

// disambiguateToken resolves a lost race on the token path. The pre-read
// already proved the license existed, so the interesting question is who owns
// it now.
func (s *Service) disambiguateToken(ctx context.Context, licenseID id.LicenseID, userID id.UserID) error {
	found, err := s.store.FindByIDs(ctx, []id.LicenseID{licenseID})
	if err != nil {
		// The diagnostic read failing must not mask the no-op result; degrade
		// to the generic retryable error.
		s.logger.ErrorContext(ctx, "disambiguation read failed", "error", err, "license_id", licenseID.String())
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim license")
	}
	if len(found) == 0 {
		return dErrors.New(dErrors.CodeNotFound, "claim link is invalid or has expired")
	}

	lic := found[0]
	if lic.OwnerID != nil && *lic.OwnerID == userID {
		return dErrors.New(dErrors.CodeAlreadyClaimedBySelf, "you already own this license")
	}
	return dErrors.New(dErrors.CodeAlreadyClaimedByOther, "license was claimed by another account")
}

// notifyClaimed hands the claim to the achievement pipeline. Fire-and-forget:
// failures are the pipeline's problem, never the caller's.
func (s *Service) notifyClaimed(ctx context.Context, userID id.UserID, lic *models.License) {
	if s.achievements == nil {
		return
	}
	s.achievements.NotifyKitClaimed(userID, lic.ProductID, lic.ProductName)
	s.logger.DebugContext(ctx, "achievement evaluation queued",
		"user_id", userID.String(),
		"product_id", lic.ProductID.String(),
	)
}

func (s *Service) observe(method, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveClaim(method, outcome)
	}
}

// timeOp returns a defer-able closure recording operation latency.
func (s *Service) timeOp(method string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.metrics.ObserveDuration(method, time.Since(start).Seconds())
	}
}

func claimResponse(lic *models.License) *models.ClaimResponse {
	return &models.ClaimResponse{
		Message: fmt.Sprintf("%s claimed successfully", lic.ProductName),
		License: models.LicenseRef{
			ID:   lic.ID.String(),
			Code: lic.Code,
		},
	}
}
