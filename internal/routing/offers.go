package routing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sourcemesh/router/internal/events"
	"github.com/sourcemesh/router/internal/store"
)

// TrackOffer registers a freshly sent offer for attribution. The offer
// starts active with the full attribution window ahead of it.
func (e *Engine) TrackOffer(ctx context.Context, vendorID string) (*store.Offer, error) {
	now := time.Now()
	until := now.Add(e.cfg.AttributionWindow())
	o := &store.Offer{
		VendorID:          vendorID,
		AttributionStatus: store.OfferActive,
		ExpiresAt:         &until,
		CreatedAt:         now,
	}
	if err := e.store.CreateOffer(ctx, o); err != nil {
		return nil, err
	}
	e.logger.Info("offer tracked", "offer_id", o.ID, "vendor_id", vendorID, "expires_at", until)
	return o, nil
}

// Reconfirm extends an offer's attribution window. Reconfirming an
// expired offer revives it; a converted offer is terminal and fails with
// ErrConverted.
func (e *Engine) Reconfirm(ctx context.Context, offerID uuid.UUID) (*store.Offer, error) {
	o, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	if o.AttributionStatus == store.OfferConverted {
		return nil, ErrConverted
	}

	now := time.Now()
	until := now.Add(e.cfg.AttributionWindow())
	applied, err := e.store.ReconfirmOffer(ctx, offerID, now, until)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The quoting workflow converted the offer between the read and
		// the write.
		return nil, ErrConverted
	}

	o.AttributionStatus = store.OfferActive
	o.ReconfirmedAt = &now
	o.ExpiresAt = &until
	o.ReconfirmCount++

	if e.events != nil {
		_ = e.events.Publish(events.SubjectOfferReconfirmed(o.ID.String()), events.OfferReconfirmedEvent{
			OfferID:        o.ID.String(),
			ReconfirmCount: o.ReconfirmCount,
			ExpiresAt:      until,
		})
	}

	e.logger.Info("offer reconfirmed", "offer_id", o.ID, "reconfirm_count", o.ReconfirmCount, "expires_at", until)
	return o, nil
}
