package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const offerColumns = `offer_id, vendor_id, attribution_status,
	expires_at, reconfirmed_at, reconfirm_count, created_at`

func (s *PostgresStore) CreateOffer(ctx context.Context, o *Offer) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO offers (vendor_id, attribution_status, expires_at)
		VALUES ($1, $2, $3)
		RETURNING offer_id, reconfirm_count, created_at`,
		o.VendorID, o.AttributionStatus, o.ExpiresAt,
	).Scan(&o.ID, &o.ReconfirmCount, &o.CreatedAt)
}

func (s *PostgresStore) GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error) {
	o := &Offer{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+offerColumns+`
		FROM offers WHERE offer_id = $1`, id,
	).Scan(
		&o.ID, &o.VendorID, &o.AttributionStatus,
		&o.ExpiresAt, &o.ReconfirmedAt, &o.ReconfirmCount, &o.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ReconfirmOffer extends the attribution window in one statement. The
// status guard keeps converted offers untouchable; expired offers are
// deliberately revivable.
func (s *PostgresStore) ReconfirmOffer(ctx context.Context, id uuid.UUID, now, until time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE offers
		SET attribution_status = 'active',
			reconfirmed_at = $2,
			expires_at = $3,
			reconfirm_count = reconfirm_count + 1
		WHERE offer_id = $1 AND attribution_status <> 'converted'`,
		id, now, until)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ExpireDueOffers(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE offers
		SET attribution_status = 'expired'
		WHERE attribution_status = 'active'
			AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
