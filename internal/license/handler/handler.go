// Package handler is the thin HTTP layer over the redemption service. It
// owns transport concerns only: decoding, surface-level validation, and
// response translation.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"kitclaim/internal/license/models"
	id "kitclaim/pkg/domain"
	dErrors "kitclaim/pkg/domain-errors"
	"kitclaim/pkg/platform/httputil"
	auth "kitclaim/pkg/platform/middleware/auth"
	request "kitclaim/pkg/platform/middleware/request"
)

// RedemptionService is the domain surface the handler delegates to.
type RedemptionService interface {
	ClaimByCode(ctx context.Context, userID id.UserID, rawCode string) (*models.ClaimResponse, error)
	ClaimByToken(ctx context.Context, userID id.UserID, userEmail, rawToken string) (*models.ClaimResponse, error)
	ClaimBatch(ctx context.Context, userID id.UserID, userEmail string, rawIDs []string, action models.BatchAction) (*models.BatchResponse, error)
}

type Handler struct {
	service RedemptionService
	logger  *slog.Logger
}

func New(service RedemptionService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the claim endpoints. The router is expected to have already
// applied auth and rate-limit middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/licenses/claim", h.ClaimByCode)
	r.Post("/licenses/claim-token", h.ClaimByToken)
	r.Post("/licenses/batch", h.ClaimBatch)
}

func (h *Handler) ClaimByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.GetUserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req models.ClaimCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Code, "1", "64") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "code is required"))
		return
	}

	resp, err := h.service.ClaimByCode(ctx, userID, req.Code)
	if err != nil {
		h.logOutcome(ctx, "claim by code", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ClaimByToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.GetUserID(ctx)
	userEmail := auth.GetEmail(ctx)
	if userID.IsNil() || userEmail == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication with a verified email required"))
		return
	}

	var req models.ClaimTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Token, "1", "128") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "token is required"))
		return
	}

	resp, err := h.service.ClaimByToken(ctx, userID, userEmail, req.Token)
	if err != nil {
		h.logOutcome(ctx, "claim by token", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ClaimBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.GetUserID(ctx)
	userEmail := auth.GetEmail(ctx)
	if userID.IsNil() || userEmail == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication with a verified email required"))
		return
	}

	var req models.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	resp, err := h.service.ClaimBatch(ctx, userID, userEmail, req.LicenseIDs, req.Action)
	if err != nil {
		h.logOutcome(ctx, "claim batch", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// logOutcome logs internal errors at error level and expected claim outcomes
// at debug. Store detail lands in the log, never in the response.
func (h *Handler) logOutcome(ctx context.Context, op string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		return
	}
	h.logger.DebugContext(ctx, op+" rejected",
		"code", string(code),
		"request_id", request.GetRequestID(ctx),
	)
}
