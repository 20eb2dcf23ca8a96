package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"kitclaim/internal/license/models"
	id "kitclaim/pkg/domain"
	dErrors "kitclaim/pkg/domain-errors"
	"kitclaim/pkg/email"
	"kitclaim/pkg/platform/sentinel"
)

// ClaimBatch claims or rejects up to MaxBatchSize licenses in one request.
//
// Format validation is wholesale: one malformed ID rejects the entire batch
// before any store access. Everything after that is per-item: a license that
// fails validation or loses its conditional update becomes a recorded item
// failure, never an abort. Each item's mutation is independently atomic;
// partial success across the batch is expected and reported.
func (s *Service) ClaimBatch(ctx context.Context, userID id.UserID, userEmail string, rawIDs []string, action models.BatchAction) (*models.BatchResponse, error) {
	ctx, span := s.tracer.Start(ctx, "license.ClaimBatch")
	defer span.End()
	defer s.timeOp("batch")()
	span.SetAttributes(
		attribute.Int("batch.size", len(rawIDs)),
		attribute.String("batch.action", string(action)),
	)

	if userID.IsNil() || userEmail == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication with a verified email required")
	}
	if !action.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "action must be claim or reject")
	}
	if len(rawIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "licenseIds must not be empty")
	}
	if len(rawIDs) > models.MaxBatchSize {
		return nil, dErrors.New(dErrors.CodeBatchTooLarge,
			fmt.Sprintf("batch exceeds the maximum of %d licenses", models.MaxBatchSize))
	}

	ids := make([]id.LicenseID, len(rawIDs))
	for i, raw := range rawIDs {
		parsed, err := id.ParseLicenseID(raw)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("licenseIds[%d] is not a valid license ID", i))
		}
		ids[i] = parsed
	}

	// One read for all candidates; per-item validation happens against this
	// snapshot, the conditional update re-checks at write time.
	found, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.ErrorContext(ctx, "batch read failed", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load licenses")
	}
	byID := make(map[id.LicenseID]*models.License, len(found))
	for _, lic := range found {
		byID[lic.ID] = lic
	}

	resp := &models.BatchResponse{Results: make([]models.BatchItemResult, 0, len(ids))}
	var claimedAny bool
	var lastClaimed *models.License

	for _, licenseID := range ids {
		result := s.processBatchItem(ctx, byID[licenseID], licenseID, userID, userEmail, action)
		if result.Success {
			resp.SuccessCount++
			if action == models.BatchActionClaim {
				claimedAny = true
				lastClaimed = byID[licenseID]
			}
		} else {
			resp.ErrorCount++
		}
		resp.Results = append(resp.Results, result)
	}
	resp.Success = resp.ErrorCount == 0

	if s.metrics != nil {
		s.metrics.ObserveBatch(string(action), len(ids), resp.SuccessCount)
	}

	// One achievement evaluation per batch, not one per license.
	if claimedAny && lastClaimed != nil {
		s.notifyClaimed(ctx, userID, lastClaimed)
	}

	return resp, nil
}

func (s *Service) processBatchItem(ctx context.Context, lic *models.License, licenseID id.LicenseID, userID id.UserID, userEmail string, action models.BatchAction) models.BatchItemResult {
	result := models.BatchItemResult{LicenseID: licenseID.String()}

	if lic == nil {
		result.Error = "license not found"
		return result
	}
	if !email.Equal(userEmail, lic.PurchaserEmail) {
		result.Error = "license was not purchased by this account"
		return result
	}
	if lic.Status != models.StatusPending {
		result.Error = "license is not pending"
		return result
	}

	var err error
	switch action {
	case models.BatchActionClaim:
		_, err = s.store.ClaimByID(ctx, licenseID, userID, s.now())
	case models.BatchActionReject:
		err = s.store.RejectByID(ctx, licenseID, s.now())
	}

	switch {
	case err == nil:
		result.Success = true
	case errors.Is(err, sentinel.ErrNoRowsAffected):
		// Another actor won the race since the batch read.
		result.Error = "license is no longer claimable"
	default:
		s.logger.ErrorContext(ctx, "batch item update failed",
			"error", err,
			"license_id", licenseID.String(),
			"action", string(action),
		)
		result.Error = "failed to update license"
	}
	return result
}
