// internal/commission/calculator.go
package commission

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInvalidPackage is returned for zero or negative annual packages.
	ErrInvalidPackage = errors.New("INVALID_PACKAGE")
	// ErrUnknownCurrency is returned when no exchange rate is configured.
	ErrUnknownCurrency = errors.New("UNKNOWN_CURRENCY")
	// ErrInvalidRate is returned for a custom rate outside (0,1].
	ErrInvalidRate = errors.New("INVALID_RATE")
)

// PackageLevel bands an annual package (INR) into a seniority level.
type PackageLevel string

const (
	PackageEntry      PackageLevel = "entry"
	PackageJunior     PackageLevel = "junior"
	PackageMidLevel   PackageLevel = "mid_level"
	PackageSenior     PackageLevel = "senior"
	PackageLeadership PackageLevel = "leadership"
	PackageExecutive  PackageLevel = "executive"
)

// UserTier is the loyalty tier earned through successful placements.
type UserTier string

const (
	TierBronze   UserTier = "bronze"
	TierSilver   UserTier = "silver"
	TierGold     UserTier = "gold"
	TierPlatinum UserTier = "platinum"
	TierDiamond  UserTier = "diamond"
)

// packageBands are half-open upper bounds in INR, checked in order. The
// final executive band is unbounded.
var packageBands = []struct {
	upTo  float64
	level PackageLevel
}{
	{300000, PackageEntry},
	{600000, PackageJunior},
	{1200000, PackageMidLevel},
	{2000000, PackageSenior},
	{3500000, PackageLeadership},
}

// tierBands are minimum placement counts, checked from the top down.
var tierBands = []struct {
	minPlacements int
	tier          UserTier
}{
	{51, TierDiamond},
	{31, TierPlatinum},
	{16, TierGold},
	{6, TierSilver},
	{0, TierBronze},
}

// PackageLevelFor maps an annual package in INR to its band. Every
// non-negative amount maps to exactly one level.
func PackageLevelFor(annualPackage float64) PackageLevel {
	for _, band := range packageBands {
		if annualPackage <= band.upTo {
			return band.level
		}
	}
	return PackageExecutive
}

// TierForPlacements maps a lifetime placement count to a loyalty tier.
func TierForPlacements(count int) UserTier {
	for _, band := range tierBands {
		if count >= band.minPlacements {
			return band.tier
		}
	}
	return TierBronze
}

// Config holds the rate tables and statutory parameters. Zero-valued fields
// are not defaulted at use; construct via DefaultConfig and override.
type Config struct {
	Rates           map[PackageLevel]float64 `mapstructure:"rates" json:"rates"`
	TierMultipliers map[UserTier]float64     `mapstructure:"tier_multipliers" json:"tierMultipliers"`

	TDSRate      float64 `mapstructure:"tds_rate" json:"tdsRate"`
	TDSThreshold float64 `mapstructure:"tds_threshold" json:"tdsThreshold"`

	PlatformFeeRate float64 `mapstructure:"platform_fee_rate" json:"platformFeeRate"`

	// ExchangeRates convert one INR into the target currency.
	ExchangeRates map[string]float64 `mapstructure:"exchange_rates" json:"exchangeRates"`
}

// DefaultConfig returns the production rate tables.
func DefaultConfig() Config {
	return Config{
		Rates: map[PackageLevel]float64{
			PackageEntry:      0.06,
			PackageJunior:     0.08,
			PackageMidLevel:   0.10,
			PackageSenior:     0.12,
			PackageLeadership: 0.15,
			PackageExecutive:  0.18,
		},
		TierMultipliers: map[UserTier]float64{
			TierBronze:   1.00,
			TierSilver:   1.10,
			TierGold:     1.25,
			TierPlatinum: 1.50,
			TierDiamond:  1.75,
		},
		TDSRate:         0.10,
		TDSThreshold:    30000,
		PlatformFeeRate: 0.05,
		ExchangeRates: map[string]float64{
			"INR": 1.0,
			"USD": 0.012,
		},
	}
}

// Input is one commission calculation request. AnnualPackage is always INR;
// Currency selects the converted view. CustomRate, when set, replaces the
// banded base rate (tier multiplier still applies).
type Input struct {
	UserID         string   `json:"userId"`
	AnnualPackage  float64  `json:"annualPackage"`
	Currency       string   `json:"currency,omitempty"`
	PlacementCount int      `json:"placementCount"`
	CustomRate     *float64 `json:"customRate,omitempty"`
}

// ConvertedAmounts mirrors the headline amounts in the requested currency.
type ConvertedAmounts struct {
	Currency     string  `json:"currency"`
	ExchangeRate float64 `json:"exchangeRate"`
	Gross        float64 `json:"gross"`
	Net          float64 `json:"net"`
}

// Breakdown is the full audit trail of one calculation. Amounts are INR
// unless inside ConvertedAmounts.
type Breakdown struct {
	UserID        string       `json:"userId"`
	AnnualPackage float64      `json:"annualPackage"`
	PackageLevel  PackageLevel `json:"packageLevel"`
	UserTier      UserTier     `json:"userTier"`

	BaseRate       float64 `json:"baseRate"`
	TierMultiplier float64 `json:"tierMultiplier"`
	EffectiveRate  float64 `json:"effectiveRate"`

	Gross           float64 `json:"grossAmount"`
	TDS             float64 `json:"tdsDeducted"`
	PlatformFee     float64 `json:"platformFee"`
	Net             float64 `json:"netAmount"`
	TDSApplied      bool    `json:"tdsApplied"`
	CustomRateUsed  bool    `json:"customRateUsed,omitempty"`
	Converted       ConvertedAmounts `json:"convertedAmounts"`
	CalculatedAt    time.Time        `json:"calculatedAt"`
}

// Calculator applies the commission policy. Safe for concurrent use.
type Calculator struct {
	cfg Config
	now func() time.Time
}

// NewCalculator builds a Calculator over cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg, now: time.Now}
}

// Calculate produces the commission breakdown for one placement.
func (c *Calculator) Calculate(in Input) (*Breakdown, error) {
	if in.AnnualPackage <= 0 {
		return nil, fmt.Errorf("%w: annual package must be positive, got %.2f", ErrInvalidPackage, in.AnnualPackage)
	}
	currency := in.Currency
	if currency == "" {
		currency = "INR"
	}
	rate, ok := c.cfg.ExchangeRates[currency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}

	level := PackageLevelFor(in.AnnualPackage)
	tier := TierForPlacements(in.PlacementCount)

	baseRate := c.cfg.Rates[level]
	customUsed := false
	if in.CustomRate != nil {
		if *in.CustomRate <= 0 || *in.CustomRate > 1 {
			return nil, fmt.Errorf("%w: %.4f", ErrInvalidRate, *in.CustomRate)
		}
		baseRate = *in.CustomRate
		customUsed = true
	}
	multiplier := c.cfg.TierMultipliers[tier]
	effective := baseRate * multiplier

	gross := round2(in.AnnualPackage * effective)

	var tds float64
	if gross > c.cfg.TDSThreshold {
		tds = round2(gross * c.cfg.TDSRate)
	}
	fee := round2(gross * c.cfg.PlatformFeeRate)
	net := round2(gross - tds - fee)

	return &Breakdown{
		UserID:         in.UserID,
		AnnualPackage:  in.AnnualPackage,
		PackageLevel:   level,
		UserTier:       tier,
		BaseRate:       baseRate,
		TierMultiplier: multiplier,
		EffectiveRate:  round4(effective),
		Gross:          gross,
		TDS:            tds,
		PlatformFee:    fee,
		Net:            net,
		TDSApplied:     tds > 0,
		CustomRateUsed: customUsed,
		Converted: ConvertedAmounts{
			Currency:     currency,
			ExchangeRate: rate,
			Gross:        round2(gross * rate),
			Net:          round2(net * rate),
		},
		CalculatedAt: c.now().UTC(),
	}, nil
}

// Placement is one line item in a batch calculation.
type Placement struct {
	PlacementID   string  `json:"placementId"`
	CandidateName string  `json:"candidateName,omitempty"`
	AnnualPackage float64 `json:"annualPackage"`
	Currency      string  `json:"currency,omitempty"`
}

// BatchResult aggregates per-placement breakdowns with INR totals.
type BatchResult struct {
	UserID         string       `json:"userId"`
	UserTier       UserTier     `json:"userTier"`
	PlacementCount int          `json:"placementCount"`
	Items          []*Breakdown `json:"items"`
	TotalGross     float64      `json:"totalGross"`
	TotalTDS       float64      `json:"totalTds"`
	TotalFees      float64      `json:"totalFees"`
	TotalNet       float64      `json:"totalNet"`
}

// CalculateBatch runs Calculate over every placement at the user's current
// tier. Any invalid line item fails the whole batch.
func (c *Calculator) CalculateBatch(userID string, placementCount int, placements []Placement) (*BatchResult, error) {
	out := &BatchResult{
		UserID:         userID,
		UserTier:       TierForPlacements(placementCount),
		PlacementCount: placementCount,
		Items:          make([]*Breakdown, 0, len(placements)),
	}
	for _, p := range placements {
		bd, err := c.Calculate(Input{
			UserID:         userID,
			AnnualPackage:  p.AnnualPackage,
			Currency:       p.Currency,
			PlacementCount: placementCount,
		})
		if err != nil {
			return nil, fmt.Errorf("placement %s: %w", p.PlacementID, err)
		}
		out.Items = append(out.Items, bd)
		out.TotalGross = round2(out.TotalGross + bd.Gross)
		out.TotalTDS = round2(out.TotalTDS + bd.TDS)
		out.TotalFees = round2(out.TotalFees + bd.PlatformFee)
		out.TotalNet = round2(out.TotalNet + bd.Net)
	}
	return out, nil
}

// TierSummary describes where a user stands in the tier ladder and what
// each package level currently pays them.
type TierSummary struct {
	UserID           string            `json:"userId"`
	PlacementCount   int               `json:"placementCount"`
	CurrentTier      UserTier          `json:"currentTier"`
	TierMultiplier   float64           `json:"tierMultiplier"`
	EffectiveRates   map[string]string `json:"effectiveRates"`
	NextTier         UserTier          `json:"nextTier,omitempty"`
	PlacementsToNext int               `json:"placementsToNext,omitempty"`
}

// Summary reports the user's tier, effective per-level rates and the
// distance to the next tier. Diamond has no next tier.
func (c *Calculator) Summary(userID string, placementCount int) *TierSummary {
	tier := TierForPlacements(placementCount)
	multiplier := c.cfg.TierMultipliers[tier]

	rates := make(map[string]string, len(c.cfg.Rates))
	levels := make([]PackageLevel, 0, len(c.cfg.Rates))
	for level := range c.cfg.Rates {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool { return c.cfg.Rates[levels[i]] < c.cfg.Rates[levels[j]] })
	for _, level := range levels {
		rates[string(level)] = fmt.Sprintf("%.1f%%", c.cfg.Rates[level]*multiplier*100)
	}

	out := &TierSummary{
		UserID:         userID,
		PlacementCount: placementCount,
		CurrentTier:    tier,
		TierMultiplier: multiplier,
		EffectiveRates: rates,
	}
	for i := len(tierBands) - 1; i >= 0; i-- {
		if placementCount < tierBands[i].minPlacements {
			out.NextTier = tierBands[i].tier
			out.PlacementsToNext = tierBands[i].minPlacements - placementCount
			break
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
