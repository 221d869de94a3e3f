// internal/commission/calculator_test.go
package commission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

// ============================================================================
// Band tables
// ============================================================================

func TestPackageLevelFor(t *testing.T) {
	tests := []struct {
		pkg  float64
		want PackageLevel
	}{
		{0, PackageEntry},
		{250000, PackageEntry},
		{300000, PackageEntry},
		{300001, PackageJunior},
		{600000, PackageJunior},
		{600001, PackageMidLevel},
		{1200000, PackageMidLevel},
		{1200001, PackageSenior},
		{2000000, PackageSenior},
		{2000001, PackageLeadership},
		{3500000, PackageLeadership},
		{3500001, PackageExecutive},
		{10000000, PackageExecutive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PackageLevelFor(tt.pkg), "package %.0f", tt.pkg)
	}
}

func TestTierForPlacements(t *testing.T) {
	tests := []struct {
		count int
		want  UserTier
	}{
		{0, TierBronze},
		{5, TierBronze},
		{6, TierSilver},
		{15, TierSilver},
		{16, TierGold},
		{30, TierGold},
		{31, TierPlatinum},
		{50, TierPlatinum},
		{51, TierDiamond},
		{200, TierDiamond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForPlacements(tt.count), "count %d", tt.count)
	}
}

// ============================================================================
// Calculate
// ============================================================================

func TestCalculate(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	calc.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }

	t.Run("senior package at bronze tier", func(t *testing.T) {
		bd, err := calc.Calculate(Input{
			UserID:        "user-1",
			AnnualPackage: 1500000,
			Currency:      "INR",
		})
		require.NoError(t, err)

		assert.Equal(t, PackageSenior, bd.PackageLevel)
		assert.Equal(t, TierBronze, bd.UserTier)
		assert.Equal(t, 0.12, bd.BaseRate)
		assert.Equal(t, 1.0, bd.TierMultiplier)
		assert.Equal(t, 0.12, bd.EffectiveRate)
		assert.Equal(t, 180000.0, bd.Gross)
		assert.Equal(t, 18000.0, bd.TDS)
		assert.True(t, bd.TDSApplied)
		assert.Equal(t, 9000.0, bd.PlatformFee)
		assert.Equal(t, 153000.0, bd.Net)
		assert.Equal(t, bd.Gross-bd.TDS-bd.PlatformFee, bd.Net)
		assert.Equal(t, "INR", bd.Converted.Currency)
		assert.Equal(t, 180000.0, bd.Converted.Gross)
	})

	t.Run("gold tier multiplier", func(t *testing.T) {
		bd, err := calc.Calculate(Input{
			UserID:         "user-2",
			AnnualPackage:  1000000,
			PlacementCount: 20,
		})
		require.NoError(t, err)

		assert.Equal(t, PackageMidLevel, bd.PackageLevel)
		assert.Equal(t, TierGold, bd.UserTier)
		assert.Equal(t, 0.125, bd.EffectiveRate)
		assert.Equal(t, 125000.0, bd.Gross)
	})

	t.Run("small commission skips tds", func(t *testing.T) {
		bd, err := calc.Calculate(Input{AnnualPackage: 250000})
		require.NoError(t, err)

		// entry band: 6% of 2.5L = 15,000, under the TDS threshold
		assert.Equal(t, 15000.0, bd.Gross)
		assert.Equal(t, 0.0, bd.TDS)
		assert.False(t, bd.TDSApplied)
		assert.Equal(t, 750.0, bd.PlatformFee)
		assert.Equal(t, 14250.0, bd.Net)
	})

	t.Run("gross exactly at threshold skips tds", func(t *testing.T) {
		bd, err := calc.Calculate(Input{AnnualPackage: 500000})
		require.NoError(t, err)

		// junior band: 8% of 5L = 40,000 gross, over the threshold
		assert.Equal(t, 40000.0, bd.Gross)
		assert.Equal(t, 4000.0, bd.TDS)

		bd, err = calc.Calculate(Input{AnnualPackage: 375000})
		require.NoError(t, err)
		assert.Equal(t, 30000.0, bd.Gross)
		assert.Equal(t, 0.0, bd.TDS)
	})

	t.Run("custom rate overrides the band", func(t *testing.T) {
		bd, err := calc.Calculate(Input{
			AnnualPackage:  1500000,
			CustomRate:     floatPtr(0.20),
			PlacementCount: 7,
		})
		require.NoError(t, err)

		assert.True(t, bd.CustomRateUsed)
		assert.Equal(t, 0.20, bd.BaseRate)
		assert.Equal(t, TierSilver, bd.UserTier)
		assert.Equal(t, 0.22, bd.EffectiveRate)
		assert.Equal(t, 330000.0, bd.Gross)
	})

	t.Run("usd conversion accompanies native amounts", func(t *testing.T) {
		bd, err := calc.Calculate(Input{AnnualPackage: 1500000, Currency: "USD"})
		require.NoError(t, err)

		assert.Equal(t, 180000.0, bd.Gross)
		assert.Equal(t, 153000.0, bd.Net)
		assert.Equal(t, "USD", bd.Converted.Currency)
		assert.Equal(t, 0.012, bd.Converted.ExchangeRate)
		assert.Equal(t, 2160.0, bd.Converted.Gross)
		assert.Equal(t, 1836.0, bd.Converted.Net)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := calc.Calculate(Input{AnnualPackage: 0})
		assert.ErrorIs(t, err, ErrInvalidPackage)

		_, err = calc.Calculate(Input{AnnualPackage: -500000})
		assert.ErrorIs(t, err, ErrInvalidPackage)

		_, err = calc.Calculate(Input{AnnualPackage: 500000, Currency: "XYZ"})
		assert.ErrorIs(t, err, ErrUnknownCurrency)

		_, err = calc.Calculate(Input{AnnualPackage: 500000, CustomRate: floatPtr(1.5)})
		assert.ErrorIs(t, err, ErrInvalidRate)

		_, err = calc.Calculate(Input{AnnualPackage: 500000, CustomRate: floatPtr(0)})
		assert.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("timestamps are utc", func(t *testing.T) {
		bd, err := calc.Calculate(Input{AnnualPackage: 500000})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), bd.CalculatedAt)
	})
}

// ============================================================================
// Batch and summary
// ============================================================================

func TestCalculateBatch(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	t.Run("totals add up", func(t *testing.T) {
		res, err := calc.CalculateBatch("user-9", 10, []Placement{
			{PlacementID: "p-1", AnnualPackage: 1500000},
			{PlacementID: "p-2", AnnualPackage: 250000},
		})
		require.NoError(t, err)

		assert.Equal(t, TierSilver, res.UserTier)
		require.Len(t, res.Items, 2)

		// silver multiplier 1.1: 12%*1.1 of 15L and 6%*1.1 of 2.5L
		assert.Equal(t, 198000.0, res.Items[0].Gross)
		assert.Equal(t, 16500.0, res.Items[1].Gross)
		assert.Equal(t, 214500.0, res.TotalGross)
		assert.Equal(t, res.Items[0].Net+res.Items[1].Net, res.TotalNet)
		assert.Equal(t, res.TotalGross-res.TotalTDS-res.TotalFees, res.TotalNet)
	})

	t.Run("one bad line fails the batch", func(t *testing.T) {
		_, err := calc.CalculateBatch("user-9", 0, []Placement{
			{PlacementID: "p-1", AnnualPackage: 1500000},
			{PlacementID: "p-2", AnnualPackage: -1},
		})
		assert.ErrorIs(t, err, ErrInvalidPackage)
		assert.ErrorContains(t, err, "p-2")
	})

	t.Run("empty batch is zero totals", func(t *testing.T) {
		res, err := calc.CalculateBatch("user-9", 3, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Zero(t, res.TotalGross)
	})
}

func TestSummary(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	t.Run("mid ladder", func(t *testing.T) {
		s := calc.Summary("user-3", 20)
		assert.Equal(t, TierGold, s.CurrentTier)
		assert.Equal(t, 1.25, s.TierMultiplier)
		assert.Equal(t, TierPlatinum, s.NextTier)
		assert.Equal(t, 11, s.PlacementsToNext)
		assert.Equal(t, "15.0%", s.EffectiveRates["senior"])
		assert.Equal(t, "7.5%", s.EffectiveRates["entry"])
	})

	t.Run("top of ladder has no next tier", func(t *testing.T) {
		s := calc.Summary("user-4", 75)
		assert.Equal(t, TierDiamond, s.CurrentTier)
		assert.Empty(t, s.NextTier)
		assert.Zero(t, s.PlacementsToNext)
	})

	t.Run("fresh user", func(t *testing.T) {
		s := calc.Summary("user-5", 0)
		assert.Equal(t, TierBronze, s.CurrentTier)
		assert.Equal(t, TierSilver, s.NextTier)
		assert.Equal(t, 6, s.PlacementsToNext)
		assert.Equal(t, "6.0%", s.EffectiveRates["entry"])
	})
}
