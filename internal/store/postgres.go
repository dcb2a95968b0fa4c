package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const assignmentColumns = `assignment_id, requirement_id, vendor_id, slots,
	status, claimed_by, claimed_at,
	assigned_at, expires_at, score_snapshot`

// CreateAssignment relies on the partial unique index
// routing_assignments_active_pair_idx ON (requirement_id, vendor_id)
// WHERE status = 'active', so two concurrent creators for the same pair
// resolve inside the INSERT itself: the loser's insert is a no-op.
func (s *PostgresStore) CreateAssignment(ctx context.Context, a *RoutingAssignment) (bool, error) {
	slotsJSON, _ := json.Marshal(a.Slots)
	snapshotJSON, _ := json.Marshal(a.ScoreSnapshot)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO routing_assignments (requirement_id, vendor_id, slots,
			status, assigned_at, expires_at, score_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (requirement_id, vendor_id) WHERE status = 'active' DO NOTHING
		RETURNING assignment_id`,
		a.RequirementID, a.VendorID, slotsJSON,
		a.Status, a.AssignedAt, a.ExpiresAt, snapshotJSON,
	).Scan(&a.ID)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) GetAssignment(ctx context.Context, id uuid.UUID) (*RoutingAssignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM routing_assignments WHERE assignment_id = $1`, id)
	a, err := scanAssignment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *PostgresStore) GetActiveAssignment(ctx context.Context, requirementID, vendorID string) (*RoutingAssignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM routing_assignments
		WHERE requirement_id = $1 AND vendor_id = $2 AND status = 'active'`,
		requirementID, vendorID)
	a, err := scanAssignment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *PostgresStore) ListActiveAssignmentsForRequirements(ctx context.Context, requirementIDs []string) ([]*RoutingAssignment, error) {
	if len(requirementIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM routing_assignments
		WHERE requirement_id = ANY($1) AND status = 'active'`, requirementIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RoutingAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClaimAssignment is the single conditional write that decides the claim
// race. The expires_at guard makes the lazy-expiry check part of the same
// statement instead of a read-then-write.
func (s *PostgresStore) ClaimAssignment(ctx context.Context, id uuid.UUID, buyerID string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE routing_assignments
		SET status = 'claimed', claimed_by = $2, claimed_at = $3
		WHERE assignment_id = $1 AND status = 'active' AND expires_at > $3`,
		id, buyerID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ExpireAssignment(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE routing_assignments
		SET status = 'expired'
		WHERE assignment_id = $1 AND status = 'active' AND expires_at <= $2`,
		id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ExpireDueAssignments(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE routing_assignments
		SET status = 'expired'
		WHERE status = 'active' AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*AssignmentStats, error) {
	stats := &AssignmentStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'claimed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM offers WHERE attribution_status = 'active')
		FROM routing_assignments`,
	).Scan(&stats.TotalActive, &stats.TotalClaimed, &stats.TotalExpired, &stats.OffersActive)
	return stats, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*RoutingAssignment, error) {
	a := &RoutingAssignment{}
	var slotsJSON, snapshotJSON []byte
	var claimedBy sql.NullString
	err := row.Scan(
		&a.ID, &a.RequirementID, &a.VendorID, &slotsJSON,
		&a.Status, &claimedBy, &a.ClaimedAt,
		&a.AssignedAt, &a.ExpiresAt, &snapshotJSON,
	)
	if err != nil {
		return nil, err
	}
	if claimedBy.Valid {
		a.ClaimedBy = claimedBy.String
	}
	if slotsJSON != nil {
		_ = json.Unmarshal(slotsJSON, &a.Slots)
	}
	if snapshotJSON != nil {
		_ = json.Unmarshal(snapshotJSON, &a.ScoreSnapshot)
	}
	return a, nil
}
