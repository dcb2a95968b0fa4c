package routing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sourcemesh/router/internal/config"
	"github.com/sourcemesh/router/internal/events"
	"github.com/sourcemesh/router/internal/scoring"
	"github.com/sourcemesh/router/internal/store"
)

// Engine owns assignment creation, the claim protocol, and the
// expiration sweep. Claims and the sweeper race on the same rows; every
// transition goes through one conditional write in the store, so exactly
// one caller wins.
type Engine struct {
	store  store.Store
	ranker *Ranker
	events events.Client
	cfg    *config.Config
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, r *Ranker, ev events.Client, cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		store:  s,
		ranker: r,
		events: ev,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Pair is one fresh (requirement, vendor) match observed by a sourcing
// pass.
type Pair struct {
	RequirementID string `json:"requirement_id"`
	VendorID      string `json:"vendor_id"`
}

// Create routes one (requirement, vendor) pair to the top-ranked buyers.
// It is idempotent: while an active assignment exists for the pair, the
// existing assignment is returned unchanged. A pair with no scoreable
// buyers returns nil and persists nothing.
func (e *Engine) Create(ctx context.Context, requirementID, vendorID string) (*store.RoutingAssignment, error) {
	existing, err := e.store.GetActiveAssignment(ctx, requirementID, vendorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	details, err := e.rank(ctx, requirementID, vendorID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		e.logger.Warn("no candidate buyers", "requirement_id", requirementID, "vendor_id", vendorID)
		return nil, nil
	}

	maxSlots := e.cfg.Routing.MaxSlots
	if len(details) < maxSlots {
		maxSlots = len(details)
	}

	now := time.Now()
	a := &store.RoutingAssignment{
		RequirementID: requirementID,
		VendorID:      vendorID,
		Status:        store.AssignmentActive,
		AssignedAt:    now,
		ExpiresAt:     now.Add(e.cfg.RoutingWindow()),
	}
	for i := 0; i < maxSlots; i++ {
		a.Slots = append(a.Slots, store.BuyerSlot{
			BuyerID: details[i].BuyerID,
			Rank:    i + 1,
			Score:   details[i].Total,
		})
	}

	// Keep the whole scored field for audit, not just the winners.
	candidates := make([]interface{}, 0, len(details))
	for _, d := range details {
		candidates = append(candidates, d.Snapshot())
	}
	a.ScoreSnapshot = map[string]interface{}{"candidates": candidates}

	applied, err := e.store.CreateAssignment(ctx, a)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent creator won the insert for this pair. Return its
		// assignment so both callers see the same active row.
		return e.store.GetActiveAssignment(ctx, requirementID, vendorID)
	}

	if e.events != nil {
		for _, slot := range a.Slots {
			_ = e.events.Publish(events.SubjectAssignmentOffered(a.ID.String()), events.AssignmentOfferedEvent{
				AssignmentID: a.ID.String(),
				BuyerID:      slot.BuyerID,
				Rank:         slot.Rank,
				Score:        slot.Score,
				ExpiresAt:    a.ExpiresAt,
			})
		}
	}

	e.logger.Info("assignment created",
		"assignment_id", a.ID,
		"requirement_id", requirementID,
		"vendor_id", vendorID,
		"slots", len(a.Slots),
		"top_score", a.Slots[0].Score,
	)
	return a, nil
}

func (e *Engine) rank(ctx context.Context, requirementID, vendorID string) ([]scoring.ScoreDetails, error) {
	if e.cfg.Availability.FilterEnabled {
		return e.ranker.RankAvailable(ctx, requirementID, vendorID)
	}
	return e.ranker.Rank(ctx, requirementID, vendorID)
}

// Claim attempts to hand the assignment to buyerID. During the exclusive
// waterfall phase only the ranked slots may claim; afterwards anyone may.
// The final conditional write, not the eligibility check, decides races.
func (e *Engine) Claim(ctx context.Context, assignmentID uuid.UUID, buyerID string) (*store.RoutingAssignment, error) {
	now := time.Now()

	a, err := e.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}

	switch a.Status {
	case store.AssignmentClaimed:
		return nil, &AlreadyClaimedError{ClaimedBy: a.ClaimedBy}
	case store.AssignmentExpired:
		return nil, ErrExpired
	}

	if !now.Before(a.ExpiresAt) {
		// Lazily retire the record while reporting the failure. The
		// write is conditional, so a claim that slipped in between the
		// read and here keeps its win.
		if applied, err := e.store.ExpireAssignment(ctx, a.ID, now); err == nil && applied {
			e.publishExpired(a.ID)
		}
		return nil, ErrExpired
	}

	w := windowFor(a, now, e.cfg.WaterfallExclusive())
	if !w.allows(buyerID) {
		return nil, &NotEligibleError{BuyerID: buyerID, OpensAt: w.opensAt}
	}

	applied, err := e.store.ClaimAssignment(ctx, a.ID, buyerID, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race. Re-read to name the winner.
		cur, err := e.store.GetAssignment(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if cur != nil && cur.Status == store.AssignmentClaimed {
			return nil, &AlreadyClaimedError{ClaimedBy: cur.ClaimedBy}
		}
		return nil, ErrExpired
	}

	a.Status = store.AssignmentClaimed
	a.ClaimedBy = buyerID
	a.ClaimedAt = &now

	if e.events != nil {
		_ = e.events.Publish(events.SubjectAssignmentClaimed(a.ID.String()), events.AssignmentClaimedEvent{
			AssignmentID: a.ID.String(),
			BuyerID:      buyerID,
			ClaimedAt:    now,
		})
	}

	e.logger.Info("assignment claimed", "assignment_id", a.ID, "buyer_id", buyerID)
	return a, nil
}

// AutoRoute creates assignments for the pairs that do not already have an
// active one. Existing assignments for the involved requirements are
// fetched in one batch instead of a per-pair round trip.
func (e *Engine) AutoRoute(ctx context.Context, pairs []Pair) ([]*store.RoutingAssignment, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	var reqIDs []string
	for _, p := range pairs {
		if !seen[p.RequirementID] {
			seen[p.RequirementID] = true
			reqIDs = append(reqIDs, p.RequirementID)
		}
	}

	existing, err := e.store.ListActiveAssignmentsForRequirements(ctx, reqIDs)
	if err != nil {
		return nil, err
	}
	active := make(map[Pair]bool, len(existing))
	for _, a := range existing {
		active[Pair{RequirementID: a.RequirementID, VendorID: a.VendorID}] = true
	}

	var created []*store.RoutingAssignment
	for _, p := range pairs {
		if active[p] {
			continue
		}
		a, err := e.Create(ctx, p.RequirementID, p.VendorID)
		if err != nil {
			e.logger.Warn("auto-route create failed",
				"requirement_id", p.RequirementID, "vendor_id", p.VendorID, "error", err)
			continue
		}
		if a != nil {
			created = append(created, a)
			active[p] = true
		}
	}

	e.logger.Info("auto-route pass", "pairs", len(pairs), "created", len(created))
	return created, nil
}

func (e *Engine) publishExpired(id uuid.UUID) {
	if e.events == nil {
		return
	}
	_ = e.events.Publish(events.SubjectAssignmentExpired(id.String()), map[string]interface{}{
		"assignment_id": id.String(),
	})
}

// claimWindow is the waterfall decision for one claim attempt, computed
// once from elapsed time. slots is non-nil only while the window is
// exclusive.
type claimWindow struct {
	opensAt time.Time
	slots   []string
}

func windowFor(a *store.RoutingAssignment, now time.Time, exclusive time.Duration) claimWindow {
	opens := a.AssignedAt.Add(exclusive)
	if now.Before(opens) {
		return claimWindow{opensAt: opens, slots: a.TopSlots()}
	}
	return claimWindow{opensAt: opens}
}

func (w claimWindow) allows(buyerID string) bool {
	if w.slots == nil {
		return true
	}
	for _, id := range w.slots {
		if id == buyerID {
			return true
		}
	}
	return false
}
