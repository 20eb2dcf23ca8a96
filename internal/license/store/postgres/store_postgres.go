// Package postgres persists licenses in PostgreSQL.
//
// Every claim is a single conditional UPDATE guarded by the pending-and-
// unowned predicate, evaluated by the database at write time. This is the
// serialization point for concurrent claims: of N racing requests exactly one
// UPDATE matches, and the rest observe zero rows. The store is pure I/O;
// outcome disambiguation belongs to the service.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kitclaim/internal/license/models"
	id "kitclaim/pkg/domain"
	"kitclaim/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed license store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const licenseColumns = `id, code, claim_token, status, owner_id, purchaser_email, product_id, product_name, claimed_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, lic *models.License) error {
	query := `
		INSERT INTO licenses (id, code, claim_token, status, owner_id, purchaser_email, product_id, product_name, claimed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var ownerID any
	if lic.OwnerID != nil {
		ownerID = uuid.UUID(*lic.OwnerID)
	}
	var claimToken any
	if lic.ClaimToken != nil {
		claimToken = *lic.ClaimToken
	}
	var claimedAt any
	if lic.ClaimedAt != nil {
		claimedAt = *lic.ClaimedAt
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(lic.ID),
		lic.Code,
		claimToken,
		string(lic.Status),
		ownerID,
		lic.PurchaserEmail,
		uuid.UUID(lic.ProductID),
		lic.ProductName,
		claimedAt,
		lic.CreatedAt,
		lic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE code = $1`
	lic, err := scanLicense(s.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find license by code: %w", err)
	}
	return lic, nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE claim_token = $1`
	lic, err := scanLicense(s.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find license by token: %w", err)
	}
	return lic, nil
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.LicenseID) ([]*models.License, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, licenseID := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = uuid.UUID(licenseID)
	}
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find licenses by ids: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*models.License
	for rows.Next() {
		lic, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		out = append(out, lic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate licenses: %w", err)
	}
	return out, nil
}

// ClaimByCode performs the atomic conditional claim keyed by code. The WHERE
// clause is the entire race-safety mechanism; do not split this into a read
// followed by a write.
func (s *PostgresStore) ClaimByCode(ctx context.Context, code string, owner id.UserID, now time.Time) (*models.License, error) {
	query := `
		UPDATE licenses
		SET status = $3, owner_id = $2, claimed_at = $4, claim_token = NULL, updated_at = $4
		WHERE code = $1 AND status = $5 AND owner_id IS NULL
		RETURNING ` + licenseColumns
	lic, err := scanLicense(s.db.QueryRowContext(ctx, query,
		code,
		uuid.UUID(owner),
		string(models.StatusClaimed),
		now,
		string(models.StatusPending),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNoRowsAffected
		}
		return nil, fmt.Errorf("claim license by code: %w", err)
	}
	return lic, nil
}

// ClaimByToken performs the atomic conditional claim keyed by ID and token.
// The token participates in the predicate so a consumed token can never
// authorize a second claim.
func (s *PostgresStore) ClaimByToken(ctx context.Context, licenseID id.LicenseID, token string, owner id.UserID, outcome models.Status, now time.Time) (*models.License, error) {
	query := `
		UPDATE licenses
		SET status = $4, owner_id = $3, claimed_at = $5, claim_token = NULL, updated_at = $5
		WHERE id = $1 AND claim_token = $2 AND status = $6 AND owner_id IS NULL
		RETURNING ` + licenseColumns
	lic, err := scanLicense(s.db.QueryRowContext(ctx, query,
		uuid.UUID(licenseID),
		token,
		uuid.UUID(owner),
		string(outcome),
		now,
		string(models.StatusPending),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNoRowsAffected
		}
		return nil, fmt.Errorf("claim license by token: %w", err)
	}
	return lic, nil
}

func (s *PostgresStore) ClaimByID(ctx context.Context, licenseID id.LicenseID, owner id.UserID, now time.Time) (*models.License, error) {
	query := `
		UPDATE licenses
		SET status = $3, owner_id = $2, claimed_at = $4, claim_token = NULL, updated_at = $4
		WHERE id = $1 AND status = $5 AND owner_id IS NULL
		RETURNING ` + licenseColumns
	lic, err := scanLicense(s.db.QueryRowContext(ctx, query,
		uuid.UUID(licenseID),
		uuid.UUID(owner),
		string(models.StatusClaimed),
		now,
		string(models.StatusPending),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNoRowsAffected
		}
		return nil, fmt.Errorf("claim license by id: %w", err)
	}
	return lic, nil
}

// RejectByID uses the same pending-and-unowned predicate as the claim paths.
// A license that has since gained an owner is not rejectable.
func (s *PostgresStore) RejectByID(ctx context.Context, licenseID id.LicenseID, now time.Time) error {
	query := `
		UPDATE licenses
		SET status = $2, claim_token = NULL, updated_at = $3
		WHERE id = $1 AND status = $4 AND owner_id IS NULL
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(licenseID),
		string(models.StatusRejected),
		now,
		string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("reject license: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject license rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

type licenseRow interface {
	Scan(dest ...any) error
}

func scanLicense(row licenseRow) (*models.License, error) {
	var lic models.License
	var licenseID, productID uuid.UUID
	var claimToken sql.NullString
	var ownerID uuid.NullUUID
	var status string
	var claimedAt sql.NullTime

	if err := row.Scan(
		&licenseID,
		&lic.Code,
		&claimToken,
		&status,
		&ownerID,
		&lic.PurchaserEmail,
		&productID,
		&lic.ProductName,
		&claimedAt,
		&lic.CreatedAt,
		&lic.UpdatedAt,
	); err != nil {
		return nil, err
	}

	lic.ID = id.LicenseID(licenseID)
	lic.ProductID = id.ProductID(productID)
	lic.Status = models.Status(status)
	if claimToken.Valid {
		lic.ClaimToken = &claimToken.String
	}
	if ownerID.Valid {
		owner := id.UserID(ownerID.UUID)
		lic.OwnerID = &owner
	}
	if claimedAt.Valid {
		lic.ClaimedAt = &claimedAt.Time
	}
	return &lic, nil
}
