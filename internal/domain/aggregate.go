package domain

import (
	"math"
	"sort"
)

// CrossTab counts posts by sentiment label (rows) and risk tier (columns).
type CrossTab struct {
	Counts    map[SentimentLabel]map[RiskTier]int `json:"counts"`
	RowTotals map[SentimentLabel]int              `json:"row_totals"`
	ColTotals map[RiskTier]int                    `json:"col_totals"`
	Total     int                                 `json:"total"`
}

// Percentages returns every cell and total as a share of the grand total,
// rounded to two decimals. An empty table yields zeros.
func (c CrossTab) Percentages() CrossTabPercent {
	pct := CrossTabPercent{
		Cells:     make(map[SentimentLabel]map[RiskTier]float64, len(SentimentLabels)),
		RowTotals: make(map[SentimentLabel]float64, len(SentimentLabels)),
		ColTotals: make(map[RiskTier]float64, len(RiskTiers)),
	}
	share := func(n int) float64 {
		if c.Total == 0 {
			return 0
		}
		return math.Round(float64(n)/float64(c.Total)*10000) / 100
	}
	for _, label := range SentimentLabels {
		pct.Cells[label] = make(map[RiskTier]float64, len(RiskTiers))
		for _, tier := range RiskTiers {
			pct.Cells[label][tier] = share(c.Counts[label][tier])
		}
		pct.RowTotals[label] = share(c.RowTotals[label])
	}
	for _, tier := range RiskTiers {
		pct.ColTotals[tier] = share(c.ColTotals[tier])
	}
	pct.Total = share(c.Total)
	return pct
}

// CrossTabPercent is CrossTab expressed in percent of all posts.
type CrossTabPercent struct {
	Cells     map[SentimentLabel]map[RiskTier]float64 `json:"cells"`
	RowTotals map[SentimentLabel]float64              `json:"row_totals"`
	ColTotals map[RiskTier]float64                    `json:"col_totals"`
	Total     float64                                 `json:"total"`
}

// BuildCrossTab tabulates sentiment against risk tier with row and column totals.
func BuildCrossTab(posts []AnalyzedPost) CrossTab {
	ct := CrossTab{
		Counts:    make(map[SentimentLabel]map[RiskTier]int, len(SentimentLabels)),
		RowTotals: make(map[SentimentLabel]int, len(SentimentLabels)),
		ColTotals: make(map[RiskTier]int, len(RiskTiers)),
	}
	for _, label := range SentimentLabels {
		ct.Counts[label] = make(map[RiskTier]int, len(RiskTiers))
	}
	for _, p := range posts {
		label, tier := p.Risk.Label, p.Risk.Tier
		if ct.Counts[label] == nil {
			ct.Counts[label] = make(map[RiskTier]int, len(RiskTiers))
		}
		ct.Counts[label][tier]++
		ct.RowTotals[label]++
		ct.ColTotals[tier]++
		ct.Total++
	}
	return ct
}

// LocationCount is one row of the top-locations view.
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

// TopLocations returns the n most frequent location candidates. Ties are
// ordered by location text. n <= 0 returns every location.
func TopLocations(posts []AnalyzedPost, n int) []LocationCount {
	counts := make(map[string]int)
	for _, p := range posts {
		if loc := p.LocationText(); loc != "" {
			counts[loc]++
		}
	}
	return rankCounts(counts, n)
}

func rankCounts(counts map[string]int, n int) []LocationCount {
	out := make([]LocationCount, 0, len(counts))
	for loc, c := range counts {
		out = append(out, LocationCount{Location: loc, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Location < out[j].Location
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RiskStats counts posts per risk tier and per sentiment label.
type RiskStats struct {
	ByTier       map[RiskTier]int       `json:"by_tier"`
	ByLabel      map[SentimentLabel]int `json:"by_label"`
	TotalPosts   int                    `json:"total_posts"`
	WithGeo      int                    `json:"with_geo"`
	WithLocation int                    `json:"with_location"`
}

// BuildRiskStats summarizes tier and label distribution.
func BuildRiskStats(posts []AnalyzedPost) RiskStats {
	s := RiskStats{
		ByTier:  make(map[RiskTier]int, len(RiskTiers)),
		ByLabel: make(map[SentimentLabel]int, len(SentimentLabels)),
	}
	for _, p := range posts {
		s.ByTier[p.Risk.Tier]++
		s.ByLabel[p.Risk.Label]++
		s.TotalPosts++
		if p.Location != nil {
			s.WithLocation++
		}
		if p.Geo != nil {
			s.WithGeo++
		}
	}
	return s
}

// StateRisk is one row of the regional breakdown.
type StateRisk struct {
	Code   string           `json:"code"`
	Name   string           `json:"name"`
	ByTier map[RiskTier]int `json:"by_tier"`
	Total  int              `json:"total"`
}

// BuildStateBreakdown counts posts per derived state and risk tier, ordered
// by total descending then state code. Posts without a state are skipped.
func BuildStateBreakdown(posts []AnalyzedPost, g *Gazetteer) []StateRisk {
	rows := make(map[string]*StateRisk)
	for _, p := range posts {
		code := p.StateCode()
		if code == "" {
			continue
		}
		row, ok := rows[code]
		if !ok {
			name, found := g.StateName(code)
			if !found {
				name = code
			}
			row = &StateRisk{Code: code, Name: name, ByTier: make(map[RiskTier]int, len(RiskTiers))}
			rows[code] = row
		}
		row.ByTier[p.Risk.Tier]++
		row.Total++
	}

	out := make([]StateRisk, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// HeatPoint is one weighted point of a risk density map.
type HeatPoint struct {
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	Weight int      `json:"weight"`
	Tier   RiskTier `json:"risk_level"`
}

// BuildHeatPoints returns a point for every geocoded post, weighted by tier.
func BuildHeatPoints(posts []AnalyzedPost) []HeatPoint {
	points := make([]HeatPoint, 0, len(posts))
	for _, p := range posts {
		if p.Geo == nil {
			continue
		}
		points = append(points, HeatPoint{
			Lat:    p.Geo.Lat,
			Lon:    p.Geo.Lon,
			Weight: p.Risk.Tier.HeatWeight(),
			Tier:   p.Risk.Tier,
		})
	}
	return points
}
