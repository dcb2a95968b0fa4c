package scoring

import (
	"math"
	"sort"

	"github.com/sourcemesh/router/internal/lookup"
	"github.com/sourcemesh/router/internal/store"
)

// ScoreDetails is the complete scoring output for one buyer against one
// (requirement, vendor) pair.
type ScoreDetails struct {
	BuyerID      string         `json:"buyer_id"`
	Total        float64        `json:"total"`
	Brand        float64        `json:"brand"`
	Commodity    float64        `json:"commodity"`
	Geography    float64        `json:"geography"`
	Relationship float64        `json:"relationship"`
	Factors      []FactorResult `json:"factors"`
}

// Snapshot flattens the details into a map for JSONB persistence.
func (d ScoreDetails) Snapshot() map[string]interface{} {
	factors := make(map[string]interface{}, len(d.Factors))
	for _, f := range d.Factors {
		factors[f.Name] = map[string]interface{}{
			"score":  f.Score,
			"max":    f.Max,
			"reason": f.Reason,
		}
	}
	return map[string]interface{}{
		"buyer_id": d.BuyerID,
		"total":    d.Total,
		"factors":  factors,
	}
}

// Scorer is the four-factor weighted scoring engine. It is a pure
// computation: missing or partial inputs degrade the score, never fail.
type Scorer struct {
	weights WeightSet
	tables  *lookup.Tables
}

// NewScorer creates a Scorer over the given weights and lookup tables.
func NewScorer(weights WeightSet, tables *lookup.Tables) *Scorer {
	return &Scorer{weights: weights, tables: tables}
}

// Score computes the fitness of one buyer for routing a requirement
// matched to a vendor. stats may be nil when there is no history.
func (s *Scorer) Score(profile *store.BuyerProfile, stats *store.BuyerVendorStats, brand, country string) ScoreDetails {
	category, categoryKnown := s.tables.CommodityForBrand(brand)
	region, regionKnown := s.tables.RegionForCountry(country)

	factors := []FactorResult{
		BrandFactor(profile, brand, s.weights.Brand),
		CommodityFactor(profile, category, categoryKnown, s.weights.Commodity),
		GeographyFactor(profile, region, regionKnown, s.weights.Geography),
		RelationshipFactor(stats, s.weights.Relationship),
	}

	d := ScoreDetails{
		BuyerID:      profile.ID,
		Brand:        round2(factors[0].Score),
		Commodity:    round2(factors[1].Score),
		Geography:    round2(factors[2].Score),
		Relationship: round2(factors[3].Score),
		Factors:      factors,
	}
	d.Total = round2(d.Brand + d.Commodity + d.Geography + d.Relationship)
	return d
}

// SortDetails orders details descending by total, ties broken by
// ascending buyer id so rankings are deterministic.
func SortDetails(details []ScoreDetails) {
	sort.Slice(details, func(i, j int) bool {
		if details[i].Total != details[j].Total {
			return details[i].Total > details[j].Total
		}
		return details[i].BuyerID < details[j].BuyerID
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
