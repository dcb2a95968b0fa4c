package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sourcemesh/router/internal/availability"
	"github.com/sourcemesh/router/internal/config"
	"github.com/sourcemesh/router/internal/directory"
	"github.com/sourcemesh/router/internal/lookup"
	"github.com/sourcemesh/router/internal/scoring"
	"github.com/sourcemesh/router/internal/store"
)

// Mock implementations

type mockStore struct {
	mu          sync.Mutex
	assignments map[uuid.UUID]*store.RoutingAssignment
	offers      map[uuid.UUID]*store.Offer

	failAssignmentSweep bool
	failOfferSweep      bool
}

func newMockStore() *mockStore {
	return &mockStore{
		assignments: make(map[uuid.UUID]*store.RoutingAssignment),
		offers:      make(map[uuid.UUID]*store.Offer),
	}
}

func (m *mockStore) CreateAssignment(_ context.Context, a *store.RoutingAssignment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assignments {
		if existing.RequirementID == a.RequirementID && existing.VendorID == a.VendorID && existing.Status == store.AssignmentActive {
			return false, nil
		}
	}
	a.ID = uuid.New()
	cp := *a
	m.assignments[a.ID] = &cp
	return true, nil
}

func (m *mockStore) GetAssignment(_ context.Context, id uuid.UUID) (*store.RoutingAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockStore) GetActiveAssignment(_ context.Context, requirementID, vendorID string) (*store.RoutingAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.RequirementID == requirementID && a.VendorID == vendorID && a.Status == store.AssignmentActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListActiveAssignmentsForRequirements(_ context.Context, requirementIDs []string) ([]*store.RoutingAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(requirementIDs))
	for _, id := range requirementIDs {
		want[id] = true
	}
	var out []*store.RoutingAssignment
	for _, a := range m.assignments {
		if want[a.RequirementID] && a.Status == store.AssignmentActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) ClaimAssignment(_ context.Context, id uuid.UUID, buyerID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok || a.Status != store.AssignmentActive || !a.ExpiresAt.After(now) {
		return false, nil
	}
	a.Status = store.AssignmentClaimed
	a.ClaimedBy = buyerID
	t := now
	a.ClaimedAt = &t
	return true, nil
}

func (m *mockStore) ExpireAssignment(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok || a.Status != store.AssignmentActive || a.ExpiresAt.After(now) {
		return false, nil
	}
	a.Status = store.AssignmentExpired
	return true, nil
}

func (m *mockStore) ExpireDueAssignments(_ context.Context, now time.Time) (int, error) {
	if m.failAssignmentSweep {
		return 0, errors.New("storage unreachable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.assignments {
		if a.Status == store.AssignmentActive && !a.ExpiresAt.After(now) {
			a.Status = store.AssignmentExpired
			n++
		}
	}
	return n, nil
}

func (m *mockStore) CreateOffer(_ context.Context, o *store.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	cp := *o
	m.offers[o.ID] = &cp
	return nil
}

func (m *mockStore) GetOffer(_ context.Context, id uuid.UUID) (*store.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) ReconfirmOffer(_ context.Context, id uuid.UUID, now, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok || o.AttributionStatus == store.OfferConverted {
		return false, nil
	}
	o.AttributionStatus = store.OfferActive
	t := now
	u := until
	o.ReconfirmedAt = &t
	o.ExpiresAt = &u
	o.ReconfirmCount++
	return true, nil
}

func (m *mockStore) ExpireDueOffers(_ context.Context, now time.Time) (int, error) {
	if m.failOfferSweep {
		return 0, errors.New("storage unreachable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.offers {
		if o.AttributionStatus == store.OfferActive && o.ExpiresAt != nil && !o.ExpiresAt.After(now) {
			o.AttributionStatus = store.OfferExpired
			n++
		}
	}
	return n, nil
}

func (m *mockStore) GetStats(_ context.Context) (*store.AssignmentStats, error) {
	return &store.AssignmentStats{}, nil
}

func (m *mockStore) Close() error { return nil }

type mockDirectory struct {
	profiles     []store.BuyerProfile
	stats        map[string]*store.BuyerVendorStats // keyed by buyerID
	requirements map[string]*directory.Requirement
	vendors      map[string]*directory.Vendor
	statsErr     error
}

func (m *mockDirectory) ListBuyerProfiles(_ context.Context) ([]store.BuyerProfile, error) {
	return m.profiles, nil
}

func (m *mockDirectory) GetBuyerVendorStats(_ context.Context, buyerID, _ string) (*store.BuyerVendorStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats[buyerID], nil
}

func (m *mockDirectory) GetRequirement(_ context.Context, id string) (*directory.Requirement, error) {
	return m.requirements[id], nil
}

func (m *mockDirectory) GetVendor(_ context.Context, id string) (*directory.Vendor, error) {
	return m.vendors[id], nil
}

type mockAvailability struct {
	mu        sync.Mutex
	available map[string]bool // absent means unavailable
	err       error
	probes    int
}

func (m *mockAvailability) Probe(_ context.Context, buyerID string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	if m.err != nil {
		return false, m.err
	}
	return m.available[buyerID], nil
}

type mockEvents struct {
	mu        sync.Mutex
	published []string
}

func (m *mockEvents) Publish(subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, subject)
	return nil
}

func (m *mockEvents) Close() {}

func (m *mockEvents) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Availability: config.AvailabilityConfig{
			ProbeTimeoutMs: 50,
			FilterEnabled:  false,
		},
		Routing: config.RoutingConfig{
			WindowHours:             48,
			WaterfallExclusiveHours: 24,
			AttributionWindowDays:   14,
			SweepIntervalMinutes:    60,
			MaxSlots:                3,
		},
	}
}

func testDirectory() *mockDirectory {
	return &mockDirectory{
		profiles: []store.BuyerProfile{
			{ID: "buyer-a", PrimaryCommodity: "semiconductors", PrimaryGeography: "americas", BrandSpecialties: []string{"Intel"}},
			{ID: "buyer-b", PrimaryCommodity: "semiconductors", PrimaryGeography: "global"},
			{ID: "buyer-c", PrimaryCommodity: "apparel", PrimaryGeography: "emea"},
			{ID: "buyer-d"},
		},
		stats: map[string]*store.BuyerVendorStats{
			"buyer-a": {BuyerID: "buyer-a", RFQsSent: 10, ResponseRate: 100, WinRate: 100},
			"buyer-b": {BuyerID: "buyer-b", RFQsSent: 5, ResponseRate: 80, WinRate: 40},
		},
		requirements: map[string]*directory.Requirement{
			"req-1": {ID: "req-1", Brand: "Intel"},
		},
		vendors: map[string]*directory.Vendor{
			"ven-1": {ID: "ven-1", Country: "US"},
		},
	}
}

func testRanker(dir directory.Client, avail availability.Client, cfg *config.Config) *Ranker {
	tables := lookup.NewStatic(
		map[string]string{"intel": "semiconductors"},
		map[string]string{"us": "americas"},
	)
	scorer := scoring.NewScorer(scoring.DefaultWeights(), tables)
	return NewRanker(dir, avail, scorer, cfg.ProbeTimeout(), discardLogger())
}

func testEngine(ms *mockStore, dir directory.Client, avail *mockAvailability, cfg *config.Config, ev *mockEvents) *Engine {
	var ac availability.Client
	if avail != nil {
		ac = avail
	}
	ranker := testRanker(dir, ac, cfg)
	if ev == nil {
		return New(ms, ranker, nil, cfg, discardLogger())
	}
	return New(ms, ranker, ev, cfg, discardLogger())
}

func TestCreateAssignsTopThree(t *testing.T) {
	ms := newMockStore()
	ev := &mockEvents{}
	e := testEngine(ms, testDirectory(), nil, testConfig(), ev)

	a, err := e.Create(context.Background(), "req-1", "ven-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a == nil {
		t.Fatal("expected an assignment")
	}
	if len(a.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(a.Slots))
	}
	if a.Slots[0].BuyerID != "buyer-a" {
		t.Errorf("expected buyer-a ranked first, got %s", a.Slots[0].BuyerID)
	}
	if a.Slots[0].Score <= a.Slots[1].Score || a.Slots[1].Score < a.Slots[2].Score {
		t.Errorf("slots not in descending score order: %v", a.Slots)
	}
	if a.Slots[0].Rank != 1 || a.Slots[2].Rank != 3 {
		t.Errorf("slot ranks wrong: %v", a.Slots)
	}
	if a.Status != store.AssignmentActive {
		t.Errorf("expected active, got %s", a.Status)
	}
	window := a.ExpiresAt.Sub(a.AssignedAt)
	if window != 48*time.Hour {
		t.Errorf("expected 48h window, got %v", window)
	}
	if a.ScoreSnapshot == nil {
		t.Error("expected score snapshot for audit")
	}
	// One offered event per slot
	if ev.count() != 3 {
		t.Errorf("expected 3 offered events, got %d", ev.count())
	}
}

func TestCreateIdempotent(t *testing.T) {
	ms := newMockStore()
	e := testEngine(ms, testDirectory(), nil, testConfig(), nil)
	ctx := context.Background()

	first, err := e.Create(ctx, "req-1", "ven-1")
	if err != nil || first == nil {
		t.Fatalf("first Create failed: %v", err)
	}
	second, err := e.Create(ctx, "req-1", "ven-1")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same assignment, got %s and %s", first.ID, second.ID)
	}
	if len(ms.assignments) != 1 {
		t.Errorf("expected 1 stored assignment, got %d", len(ms.assignments))
	}
}

func TestCreateNoCandidates(t *testing.T) {
	ms := newMockStore()
	dir := &mockDirectory{
		requirements: map[string]*directory.Requirement{},
		vendors:      map[string]*directory.Vendor{},
	}
	e := testEngine(ms, dir, nil, testConfig(), nil)

	a, err := e.Create(context.Background(), "req-1", "ven-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a != nil {
		t.Error("expected nil assignment with zero candidates")
	}
	if len(ms.assignments) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestCreateFewerThanThreeBuyers(t *testing.T) {
	ms := newMockStore()
	dir := testDirectory()
	dir.profiles = dir.profiles[:2]
	e := testEngine(ms, dir, nil, testConfig(), nil)

	a, err := e.Create(context.Background(), "req-1", "ven-1")
	if err != nil || a == nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(a.Slots) != 2 {
		t.Errorf("expected 2 slots, got %d", len(a.Slots))
	}
}

func TestCreateConcurrentSingleActivePair(t *testing.T) {
	ms := newMockStore()
	e := testEngine(ms, testDirectory(), nil, testConfig(), nil)
	ctx := context.Background()

	results := make([]*store.RoutingAssignment, 8)
	errs := make([]error, 8)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Create(ctx, "req-1", "ven-1")
		}(i)
	}
	wg.Wait()

	ms.mu.Lock()
	stored := len(ms.assignments)
	ms.mu.Unlock()
	if stored != 1 {
		t.Fatalf("expected exactly 1 active assignment for the pair, got %d", stored)
	}

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: Create failed: %v", i, errs[i])
		}
		if results[i] == nil {
			t.Fatalf("caller %d: expected an assignment", i)
		}
		if results[i].ID != results[0].ID {
			t.Errorf("caller %d saw assignment %s, caller 0 saw %s", i, results[i].ID, results[0].ID)
		}
	}
}

func seedAssignment(ms *mockStore, assignedAgo, windowRemaining time.Duration) *store.RoutingAssignment {
	now := time.Now()
	a := &store.RoutingAssignment{
		ID:            uuid.New(),
		RequirementID: "req-1",
		VendorID:      "ven-1",
		Status:        store.AssignmentActive,
		AssignedAt:    now.Add(-assignedAgo),
		ExpiresAt:     now.Add(windowRemaining),
		Slots: []store.BuyerSlot{
			{BuyerID: "buyer-a", Rank: 1, Score: 95},
			{BuyerID: "buyer-b", Rank: 2, Score: 70},
			{BuyerID: "buyer-c", Rank: 3, Score: 55},
		},
	}
	ms.assignments[a.ID] = a
	return a
}

func TestClaimNotFound(t *testing.T) {
	e := testEngine(newMockStore(), testDirectory(), nil, testConfig(), nil)
	_, err := e.Claim(context.Background(), uuid.New(), "buyer-a")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimWaterfall(t *testing.T) {
	cfg := testConfig()

	t.Run("slot buyer claims during exclusive phase", func(t *testing.T) {
		ms := newMockStore()
		a := seedAssignment(ms, 1*time.Hour, 47*time.Hour)
		e := testEngine(ms, testDirectory(), nil, cfg, nil)

		claimed, err := e.Claim(context.Background(), a.ID, "buyer-b")
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		if claimed.ClaimedBy != "buyer-b" {
			t.Errorf("expected buyer-b claimant, got %s", claimed.ClaimedBy)
		}
		if claimed.Status != store.AssignmentClaimed {
			t.Errorf("expected claimed, got %s", claimed.Status)
		}
	})

	t.Run("outsider rejected during exclusive phase", func(t *testing.T) {
		ms := newMockStore()
		a := seedAssignment(ms, 1*time.Hour, 47*time.Hour)
		e := testEngine(ms, testDirectory(), nil, cfg, nil)

		_, err := e.Claim(context.Background(), a.ID, "buyer-z")
		var ne *NotEligibleError
		if !errors.As(err, &ne) {
			t.Fatalf("expected NotEligibleError, got %v", err)
		}
		if ne.BuyerID != "buyer-z" {
			t.Errorf("expected buyer-z in error, got %s", ne.BuyerID)
		}
	})

	t.Run("outsider claims after exclusive phase", func(t *testing.T) {
		ms := newMockStore()
		a := seedAssignment(ms, 25*time.Hour, 23*time.Hour)
		e := testEngine(ms, testDirectory(), nil, cfg, nil)

		claimed, err := e.Claim(context.Background(), a.ID, "buyer-z")
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		if claimed.ClaimedBy != "buyer-z" {
			t.Errorf("expected buyer-z claimant, got %s", claimed.ClaimedBy)
		}
	})
}

func TestClaimAlreadyClaimed(t *testing.T) {
	ms := newMockStore()
	a := seedAssignment(ms, 1*time.Hour, 47*time.Hour)
	e := testEngine(ms, testDirectory(), nil, testConfig(), nil)
	ctx := context.Background()

	if _, err := e.Claim(ctx, a.ID, "buyer-a"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	_, err := e.Claim(ctx, a.ID, "buyer-b")
	var ac *AlreadyClaimedError
	if !errors.As(err, &ac) {
		t.Fatalf("expected AlreadyClaimedError, got %v", err)
	}
	if ac.ClaimedBy != "buyer-a" {
		t.Errorf("expected claimant buyer-a, got %s", ac.ClaimedBy)
	}
}

func TestClaimLazyExpiry(t *testing.T) {
	ms := newMockStore()
	a := seedAssignment(ms, 49*time.Hour, -1*time.Hour)
	e := testEngine(ms, testDirectory(), nil, testConfig(), nil)

	_, err := e.Claim(context.Background(), a.ID, "buyer-a")
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// Reporting the failure also retired the record.
	ms.mu.Lock()
	status := ms.assignments[a.ID].Status
	ms.mu.Unlock()
	if status != store.AssignmentExpired {
		t.Errorf("expected lazy transition to expired, got %s", status)
	}
}

func TestClaimConcurrentExactlyOneWinner(t *testing.T) {
	ms := newMockStore()
	a := seedAssignment(ms, 25*time.Hour, 23*time.Hour) // open phase, anyone may claim
	e := testEngine(ms, testDirectory(), nil, testConfig(), nil)
	ctx := context.Background()

	buyers := []string{"b1", "b2", "b3", "b4", "b5", "b6", "b7", "b8"}
	results := make([]error, len(buyers))

	var wg sync.WaitGroup
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, buyerID string) {
			defer wg.Done()
			_, err := e.Claim(ctx, a.ID, buyerID)
			results[i] = err
		}(i, b)
	}
	wg.Wait()

	winners := 0
	for i, err := range results {
		if err == nil {
			winners++
			continue
		}
		var ac *AlreadyClaimedError
		if !errors.As(err, &ac) {
			t.Errorf("loser %s got %v, expected AlreadyClaimedError", buyers[i], err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}

	ms.mu.Lock()
	final := ms.assignments[a.ID]
	ms.mu.Unlock()
	if final.Status != store.AssignmentClaimed || final.ClaimedBy == "" {
		t.Errorf("assignment should end claimed by one buyer, got %s/%s", final.Status, final.ClaimedBy)
	}
}

func TestAutoRouteSkipsExistingPairs(t *testing.T) {
	ms := newMockStore()
	existing := seedAssignment(ms, 1*time.Hour, 47*time.Hour)
	dir := testDirectory()
	dir.requirements["req-2"] = &directory.Requirement{ID: "req-2", Brand: "Intel"}
	e := testEngine(ms, dir, nil, testConfig(), nil)

	created, err := e.AutoRoute(context.Background(), []Pair{
		{RequirementID: "req-1", VendorID: "ven-1"}, // already active
		{RequirementID: "req-2", VendorID: "ven-1"},
	})
	if err != nil {
		t.Fatalf("AutoRoute failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 created, got %d", len(created))
	}
	if created[0].RequirementID != "req-2" {
		t.Errorf("expected req-2 routed, got %s", created[0].RequirementID)
	}
	if created[0].ID == existing.ID {
		t.Error("should not reuse the existing assignment")
	}
	if len(ms.assignments) != 2 {
		t.Errorf("expected 2 assignments total, got %d", len(ms.assignments))
	}
}

func TestSweepExpiresDueRecords(t *testing.T) {
	ms := newMockStore()
	now := time.Now()

	due := seedAssignment(ms, 49*time.Hour, -1*time.Hour)
	fresh := seedAssignment(ms, 1*time.Hour, 47*time.Hour)
	fresh.RequirementID = "req-9"

	// A claimed assignment past its window must be left untouched.
	claimed := seedAssignment(ms, 49*time.Hour, -1*time.Hour)
	claimed.RequirementID = "req-8"
	claimed.Status = store.AssignmentClaimed
	claimed.ClaimedBy = "buyer-a"

	past := now.Add(-1 * time.Hour)
	future := now.Add(24 * time.Hour)
	dueOffer := &store.Offer{ID: uuid.New(), AttributionStatus: store.OfferActive, ExpiresAt: &past}
	freshOffer := &store.Offer{ID: uuid.New(), AttributionStatus: store.OfferActive, ExpiresAt: &future}
	converted := &store.Offer{ID: uuid.New(), AttributionStatus: store.OfferConverted, ExpiresAt: &past}
	noWindow := &store.Offer{ID: uuid.New(), AttributionStatus: store.OfferActive}
	for _, o := range []*store.Offer{dueOffer, freshOffer, converted, noWindow} {
		ms.offers[o.ID] = o
	}

	ev := &mockEvents{}
	e := testEngine(ms, testDirectory(), nil, testConfig(), ev)
	result := e.Sweep(context.Background())

	if result.AssignmentsExpired != 1 {
		t.Errorf("expected 1 assignment expired, got %d", result.AssignmentsExpired)
	}
	if result.OffersExpired != 1 {
		t.Errorf("expected 1 offer expired, got %d", result.OffersExpired)
	}
	if ms.assignments[due.ID].Status != store.AssignmentExpired {
		t.Error("due assignment should be expired")
	}
	if ms.assignments[fresh.ID].Status != store.AssignmentActive {
		t.Error("fresh assignment should stay active")
	}
	if ms.assignments[claimed.ID].Status != store.AssignmentClaimed {
		t.Error("claimed assignment must not be clobbered by the sweeper")
	}
	if ms.offers[dueOffer.ID].AttributionStatus != store.OfferExpired {
		t.Error("due offer should be expired")
	}
	if ms.offers[converted.ID].AttributionStatus != store.OfferConverted {
		t.Error("converted offer must never be touched")
	}
	if ms.offers[noWindow.ID].AttributionStatus != store.OfferActive {
		t.Error("offer without a window should stay active")
	}
}

func TestSweepHalvesAreIndependent(t *testing.T) {
	ms := newMockStore()
	ms.failAssignmentSweep = true

	past := time.Now().Add(-1 * time.Hour)
	o := &store.Offer{ID: uuid.New(), AttributionStatus: store.OfferActive, ExpiresAt: &past}
	ms.offers[o.ID] = o

	e := testEngine(ms, testDirectory(), nil, testConfig(), nil)
	result := e.Sweep(context.Background())

	if result.AssignmentsError == "" {
		t.Error("expected assignments half to report its failure")
	}
	if result.OffersExpired != 1 {
		t.Errorf("offers half should still run, got %d expired", result.OffersExpired)
	}
	if result.OffersError != "" {
		t.Errorf("unexpected offers error: %s", result.OffersError)
	}
}

func TestReconfirm(t *testing.T) {
	cfg := testConfig()

	t.Run("revives an expired offer", func(t *testing.T) {
		ms := newMockStore()
		past := time.Now().Add(-1 * time.Hour)
		o := &store.Offer{ID: uuid.New(), AttributionStatus: store.OfferExpired, ExpiresAt: &past, ReconfirmCount: 2}
		ms.offers[o.ID] = o

		e := testEngine(ms, testDirectory(), nil, cfg, nil)
		updated, err := e.Reconfirm(context.Background(), o.ID)
		if err != nil {
			t.Fatalf("Reconfirm failed: %v", err)
		}
		if updated.AttributionStatus != store.OfferActive {
			t.Errorf("expected active, got %s", updated.AttributionStatus)
		}
		if updated.ReconfirmCount != 3 {
			t.Errorf("expected reconfirm_count 3, got %d", updated.ReconfirmCount)
		}
		window := time.Until(*updated.ExpiresAt)
		if window < 13*24*time.Hour || window > 15*24*time.Hour {
			t.Errorf("expected ~14d window, got %v", window)
		}
	})

	t.Run("converted offer is terminal", func(t *testing.T) {
		ms := newMockStore()
		o := &store.Offer{ID: uuid.New(), AttributionStatus: store.OfferConverted, ReconfirmCount: 1}
		ms.offers[o.ID] = o

		e := testEngine(ms, testDirectory(), nil, cfg, nil)
		_, err := e.Reconfirm(context.Background(), o.ID)
		if !errors.Is(err, ErrConverted) {
			t.Fatalf("expected ErrConverted, got %v", err)
		}
		if ms.offers[o.ID].ReconfirmCount != 1 {
			t.Error("converted offer must be unmodified")
		}
	})

	t.Run("unknown offer", func(t *testing.T) {
		e := testEngine(newMockStore(), testDirectory(), nil, cfg, nil)
		_, err := e.Reconfirm(context.Background(), uuid.New())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
