package routing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcemesh/router/internal/availability"
	"github.com/sourcemesh/router/internal/directory"
	"github.com/sourcemesh/router/internal/scoring"
)

// Ranker scores every buyer in the directory against one
// (requirement, vendor) pair and orders the result.
type Ranker struct {
	directory    directory.Client
	avail        availability.Client
	scorer       *scoring.Scorer
	probeTimeout time.Duration
	logger       *slog.Logger
}

func NewRanker(d directory.Client, a availability.Client, s *scoring.Scorer, probeTimeout time.Duration, logger *slog.Logger) *Ranker {
	return &Ranker{
		directory:    d,
		avail:        a,
		scorer:       s,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Rank returns all buyers scored against the pair, descending by total,
// ties broken by ascending buyer id. Missing requirement or vendor
// records degrade the affected factors rather than failing the ranking.
func (r *Ranker) Rank(ctx context.Context, requirementID, vendorID string) ([]scoring.ScoreDetails, error) {
	var brand, country string

	req, err := r.directory.GetRequirement(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	if req != nil {
		brand = req.Brand
	}
	vendor, err := r.directory.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor != nil {
		country = vendor.Country
	}

	profiles, err := r.directory.ListBuyerProfiles(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]scoring.ScoreDetails, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		stats, err := r.directory.GetBuyerVendorStats(ctx, p.ID, vendorID)
		if err != nil {
			// History is an enrichment; score without it.
			r.logger.Warn("failed to fetch buyer stats", "buyer_id", p.ID, "error", err)
			stats = nil
		}
		details = append(details, r.scorer.Score(p, stats, brand, country))
	}

	scoring.SortDetails(details)
	return details, nil
}

// RankAvailable ranks and then drops buyers the availability service
// reports as unavailable today. The filter fails open: a probe error or
// timeout counts as available, and if filtering would empty the list the
// unfiltered ranking is returned — an availability outage must never
// block routing.
func (r *Ranker) RankAvailable(ctx context.Context, requirementID, vendorID string) ([]scoring.ScoreDetails, error) {
	ranked, err := r.Rank(ctx, requirementID, vendorID)
	if err != nil {
		return nil, err
	}
	if r.avail == nil || len(ranked) == 0 {
		return ranked, nil
	}

	// Probes fan out so the filter costs one probe deadline, not one per
	// candidate. Order is preserved by index.
	today := time.Now()
	available := make([]bool, len(ranked))
	var wg sync.WaitGroup
	for i := range ranked {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			available[i] = r.probeAvailable(ctx, ranked[i].BuyerID, today)
		}(i)
	}
	wg.Wait()

	filtered := make([]scoring.ScoreDetails, 0, len(ranked))
	for i, d := range ranked {
		if available[i] {
			filtered = append(filtered, d)
		}
	}
	if len(filtered) == 0 {
		r.logger.Warn("every candidate unavailable, failing open to full ranking",
			"requirement_id", requirementID, "vendor_id", vendorID)
		return ranked, nil
	}
	return filtered, nil
}

func (r *Ranker) probeAvailable(ctx context.Context, buyerID string, date time.Time) bool {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	available, err := r.avail.Probe(probeCtx, buyerID, date)
	if err != nil {
		r.logger.Warn("availability probe failed, treating as available", "buyer_id", buyerID, "error", err)
		return true
	}
	return available
}
