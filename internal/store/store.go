package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AssignmentStatus string

const (
	AssignmentActive  AssignmentStatus = "active"
	AssignmentClaimed AssignmentStatus = "claimed"
	AssignmentExpired AssignmentStatus = "expired"
)

type OfferStatus string

const (
	OfferActive    OfferStatus = "active"
	OfferExpired   OfferStatus = "expired"
	OfferConverted OfferStatus = "converted"
)

// BuyerProfile is maintained by the buyer directory; read-only here.
type BuyerProfile struct {
	ID                 string   `json:"buyer_id"`
	Name               string   `json:"name,omitempty"`
	PrimaryCommodity   string   `json:"primary_commodity,omitempty"`
	SecondaryCommodity string   `json:"secondary_commodity,omitempty"`
	PrimaryGeography   string   `json:"primary_geography,omitempty"`
	BrandSpecialties   []string `json:"brand_specialties,omitempty"`
}

// BuyerVendorStats is the relationship history for one (buyer, vendor)
// pair, maintained by the outcome tracker; read-only here.
type BuyerVendorStats struct {
	BuyerID          string  `json:"buyer_id"`
	VendorID         string  `json:"vendor_id"`
	RFQsSent         int     `json:"rfqs_sent"`
	ResponseRate     float64 `json:"response_rate"` // 0–100
	WinRate          float64 `json:"win_rate"`      // 0–100
	AvgResponseHours float64 `json:"avg_response_hours"`
}

// BuyerSlot is one ranked buyer on an assignment. Rank is 1-based.
type BuyerSlot struct {
	BuyerID string  `json:"buyer_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
}

type RoutingAssignment struct {
	ID            uuid.UUID        `json:"assignment_id"`
	RequirementID string           `json:"requirement_id"`
	VendorID      string           `json:"vendor_id"`
	Slots         []BuyerSlot      `json:"slots"`
	Status        AssignmentStatus `json:"status"`
	ClaimedBy     string           `json:"claimed_by,omitempty"`
	ClaimedAt     *time.Time       `json:"claimed_at,omitempty"`
	AssignedAt    time.Time        `json:"assigned_at"`
	ExpiresAt     time.Time        `json:"expires_at"`

	// Full scoring breakdown at assignment time, kept for audit.
	ScoreSnapshot map[string]interface{} `json:"score_snapshot,omitempty"`
}

// TopSlots returns the buyer ids of the ranked slots in rank order.
func (a *RoutingAssignment) TopSlots() []string {
	ids := make([]string, 0, len(a.Slots))
	for _, s := range a.Slots {
		ids = append(ids, s.BuyerID)
	}
	return ids
}

// Offer carries only the attribution-relevant fields. The quoting
// workflow owns the rest of the record.
type Offer struct {
	ID                uuid.UUID   `json:"offer_id"`
	VendorID          string      `json:"vendor_id,omitempty"`
	AttributionStatus OfferStatus `json:"attribution_status"`
	ExpiresAt         *time.Time  `json:"expires_at,omitempty"`
	ReconfirmedAt     *time.Time  `json:"reconfirmed_at,omitempty"`
	ReconfirmCount    int         `json:"reconfirm_count"`
	CreatedAt         time.Time   `json:"created_at"`
}

type AssignmentStats struct {
	TotalActive  int `json:"total_active"`
	TotalClaimed int `json:"total_claimed"`
	TotalExpired int `json:"total_expired"`
	OffersActive int `json:"offers_active"`
}

// Store owns the only mutable state of the routing core: assignments and
// offers. Every state transition is a single conditional UPDATE so that
// claims, reconfirms, and the sweeper can race safely.
type Store interface {
	// CreateAssignment inserts a new active assignment iff no active
	// assignment exists for the (requirement, vendor) pair. Returns false
	// when a concurrent creator won; callers re-read the winning row.
	CreateAssignment(ctx context.Context, a *RoutingAssignment) (bool, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*RoutingAssignment, error)
	GetActiveAssignment(ctx context.Context, requirementID, vendorID string) (*RoutingAssignment, error)
	ListActiveAssignmentsForRequirements(ctx context.Context, requirementIDs []string) ([]*RoutingAssignment, error)

	// ClaimAssignment transitions active → claimed iff the row is still
	// active and unexpired at now. Returns false when the guard failed.
	ClaimAssignment(ctx context.Context, id uuid.UUID, buyerID string, now time.Time) (bool, error)

	// ExpireAssignment transitions active → expired for one row.
	ExpireAssignment(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	// ExpireDueAssignments expires every active assignment whose window
	// lapsed at or before now, returning the number transitioned.
	ExpireDueAssignments(ctx context.Context, now time.Time) (int, error)

	CreateOffer(ctx context.Context, o *Offer) error
	GetOffer(ctx context.Context, id uuid.UUID) (*Offer, error)

	// ReconfirmOffer resets the attribution window iff the offer has not
	// converted. Expired offers are revived back to active.
	ReconfirmOffer(ctx context.Context, id uuid.UUID, now, until time.Time) (bool, error)

	// ExpireDueOffers expires active offers whose window lapsed.
	// Converted offers are never touched.
	ExpireDueOffers(ctx context.Context, now time.Time) (int, error)

	GetStats(ctx context.Context) (*AssignmentStats, error)

	Close() error
}
