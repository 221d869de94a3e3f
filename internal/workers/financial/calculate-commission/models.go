// internal/workers/financial/calculate-commission/models.go
package calculatecommission

import "hiring-referrals-workers/internal/commission"

type Input struct {
	UserID        string   `json:"userId"`
	AnnualPackage float64  `json:"annualPackage"`
	Currency      string   `json:"currency,omitempty"`
	CustomRate    *float64 `json:"customRate,omitempty"`

	// IncludeSummary adds the tier ladder summary to the output.
	IncludeSummary bool `json:"includeSummary,omitempty"`
}

type Output struct {
	Breakdown      *commission.Breakdown   `json:"breakdown"`
	PlacementCount int                     `json:"placementCount"`
	Summary        *commission.TierSummary `json:"summary,omitempty"`
}
