package scoring

import (
	"math"
	"strings"

	"github.com/sourcemesh/router/internal/store"
)

// FactorResult captures one factor's contribution to the total score.
type FactorResult struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Max    float64 `json:"max"`
	Reason string  `json:"reason"`
}

// BrandFactor scores the buyer's brand specialties against the
// requirement's brand. Exact match earns the full weight, a substring
// match either direction earns half.
func BrandFactor(profile *store.BuyerProfile, brand string, weight float64) FactorResult {
	r := FactorResult{Name: "brand", Max: weight}
	if brand == "" || len(profile.BrandSpecialties) == 0 {
		r.Reason = "no brand signal"
		return r
	}
	want := strings.ToLower(strings.TrimSpace(brand))
	for _, specialty := range profile.BrandSpecialties {
		have := strings.ToLower(strings.TrimSpace(specialty))
		if have == "" {
			continue
		}
		if have == want {
			r.Score = weight
			r.Reason = "exact match: " + specialty
			return r
		}
	}
	for _, specialty := range profile.BrandSpecialties {
		have := strings.ToLower(strings.TrimSpace(specialty))
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			r.Score = weight / 2
			r.Reason = "partial match: " + specialty
			return r
		}
	}
	r.Reason = "no match"
	return r
}

// CommodityFactor scores the buyer's commodity focus against the
// category derived from the requirement's brand. An underivable category
// earns a quarter-weight baseline so missing reference data is penalized
// less than a true mismatch. A buyer with no primary commodity scores 0
// regardless.
func CommodityFactor(profile *store.BuyerProfile, category string, known bool, weight float64) FactorResult {
	r := FactorResult{Name: "commodity", Max: weight}
	if profile.PrimaryCommodity == "" {
		r.Reason = "buyer has no primary commodity"
		return r
	}
	if !known {
		r.Score = weight / 4
		r.Reason = "category unknown, baseline credit"
		return r
	}
	if strings.EqualFold(profile.PrimaryCommodity, category) {
		r.Score = weight
		r.Reason = "primary commodity match"
		return r
	}
	if strings.EqualFold(profile.SecondaryCommodity, category) {
		r.Score = weight * 0.6
		r.Reason = "secondary commodity match"
		return r
	}
	r.Reason = "commodity mismatch"
	return r
}

// GeographyFactor scores the buyer's geography against the region derived
// from the vendor's country. "global" buyers earn half credit everywhere.
func GeographyFactor(profile *store.BuyerProfile, region string, known bool, weight float64) FactorResult {
	r := FactorResult{Name: "geography", Max: weight}
	if !known {
		r.Reason = "vendor region unresolved"
		return r
	}
	geo := strings.ToLower(strings.TrimSpace(profile.PrimaryGeography))
	switch {
	case geo == "":
		r.Reason = "buyer has no geography"
	case strings.EqualFold(geo, region):
		r.Score = weight
		r.Reason = "region match: " + region
	case geo == "global":
		r.Score = weight / 2
		r.Reason = "global buyer, partial credit"
	default:
		r.Reason = "region mismatch"
	}
	return r
}

// RelationshipFactor scores historical RFQ outcomes between the buyer and
// this vendor. Rates above 100 are clamped rather than inflating the
// score.
func RelationshipFactor(stats *store.BuyerVendorStats, weight float64) FactorResult {
	r := FactorResult{Name: "relationship", Max: weight}
	if stats == nil || stats.RFQsSent == 0 {
		r.Reason = "no relationship history"
		return r
	}
	response := math.Min(stats.ResponseRate/100, 1.0)
	win := math.Min(stats.WinRate/100, 1.0)
	r.Score = weight * (0.6*response + 0.4*win)
	r.Reason = "from history"
	return r
}
