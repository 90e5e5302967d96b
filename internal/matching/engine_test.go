package matching

import (
	"sort"
	"testing"

	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func f64(v float64) *float64 { return &v }
func intp(v int) *int { return &v }

func newTestEngine(t *testing.T) *Engine {
	return NewEngine(Config{Threshold: DefaultThreshold}, logger.NewTestLogger(t))
}

func houstonProperty() models.Property {
	return models.Property{
		ID:            "prop-1",
		Address:       "123 Main St, Houston, TX",
		PropertyType:  "SFR",
		PurchasePrice: f64(200000),
		Bedrooms:      intp(4),
	}
}

func exampleBuyer() models.Buyer {
	return models.Buyer{
		ID:               "buyer-1",
		Name:             "Gulf Coast Holdings",
		Status:           models.BuyerStatusActive,
		MinBudget:        f64(100000),
		MaxBudget:        f64(300000),
		PropertyTypes:    []string{"SFR"},
		PreferredAreas:   []string{"Houston"},
		MinBedrooms:      intp(3),
		PerformanceScore: 80,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestMatch_EndToEndExample(t *testing.T) {
	engine := newTestEngine(t)

	results := engine.Match([]models.Buyer{exampleBuyer()}, houstonProperty())
	require.Len(t, results, 1)

	f := results[0].Factors
	assert.Equal(t, 40, f.Price)
	assert.Equal(t, 20, f.Type)
	assert.Equal(t, 25, f.Area)
	assert.Equal(t, 10, f.Bedrooms)
	assert.Equal(t, 5, f.Bathrooms)
	assert.Equal(t, 5, f.SquareFeet)
	assert.Equal(t, 12, f.Performance)
	assert.Equal(t, 117, f.Earned())
	assert.Equal(t, 130, MaxPossible)
	assert.Equal(t, 90, results[0].Score)
}

func TestMatch_SkipsNonActiveBuyers(t *testing.T) {
	engine := newTestEngine(t)

	var buyers []models.Buyer
	for _, status := range []models.BuyerStatus{
		models.BuyerStatusWarm, models.BuyerStatusCold, models.BuyerStatusInactive,
	} {
		b := exampleBuyer()
		b.ID = string(status)
		b.Status = status
		b.PerformanceScore = 100
		buyers = append(buyers, b)
	}

	assert.Empty(t, engine.Match(buyers, houstonProperty()))
}

func TestMatch_ThresholdSortAndStability(t *testing.T) {
	engine := newTestEngine(t)

	strong := exampleBuyer()
	strong.ID = "strong"

	tieA := exampleBuyer()
	tieA.ID = "tie-a"
	tieA.PreferredAreas = []string{"Dallas"}

	weak := models.Buyer{
		ID:             "weak",
		Status:         models.BuyerStatusActive,
		MaxBudget:      f64(50000),
		PropertyTypes:  []string{"Condo"},
		PreferredAreas: []string{"Austin"},
		MinBedrooms:    intp(6),
	}

	tieB := exampleBuyer()
	tieB.ID = "tie-b"
	tieB.PreferredAreas = []string{"San Antonio"}

	results := engine.Match([]models.Buyer{tieA, weak, strong, tieB}, houstonProperty())

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Buyer.ID
		assert.GreaterOrEqual(t, r.Score, 30)
		assert.LessOrEqual(t, r.Score, 100)
	}
	assert.Equal(t, []string{"strong", "tie-a", "tie-b"}, ids)
	assert.Equal(t, results[1].Score, results[2].Score)
	assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool { return results[i].Score > results[j].Score }))
}

func TestMatch_StableOnManyTies(t *testing.T) {
	engine := newTestEngine(t)

	var buyers []models.Buyer
	for i := 0; i < 50; i++ {
		b := exampleBuyer()
		b.ID = string(rune('A' + i%26)) + string(rune('a'+i/26))
		buyers = append(buyers, b)
	}

	results := engine.Match(buyers, houstonProperty())
	require.Len(t, results, len(buyers))
	for i := range results {
		assert.Equal(t, buyers[i].ID, results[i].Buyer.ID)
	}
}

func TestMatch_CustomThreshold(t *testing.T) {
	strict := NewEngine(Config{Threshold: 95}, logger.NewNoOpLogger())
	assert.Empty(t, strict.Match([]models.Buyer{exampleBuyer()}, houstonProperty()))
	assert.Equal(t, 95, strict.Threshold())

	defaulted := NewEngine(Config{}, logger.NewNoOpLogger())
	assert.Equal(t, DefaultThreshold, defaulted.Threshold())
}

func TestMatch_EmptyInput(t *testing.T) {
	results := newTestEngine(t).Match(nil, houstonProperty())
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMatch_WholesaleDealTarget(t *testing.T) {
	deal := models.WholesaleDeal{
		ID:              "deal-1",
		PropertyAddress: "77 Bayou Rd, houston TX",
		PropertyType:    "sfr",
		Price:           f64(150000),
		Bedrooms:        intp(3),
		Bathrooms:       f64(2),
		SquareFeet:      intp(1600),
	}

	results := newTestEngine(t).Match([]models.Buyer{exampleBuyer()}, deal)
	require.Len(t, results, 1)
	assert.Equal(t, 25, results[0].Factors.Area)
	assert.Equal(t, 20, results[0].Factors.Type)
}

// ==========================
// Criterion Tests
// ==========================

func TestPriceFit(t *testing.T) {
	tests := []struct {
		name     string
		min, max *float64
		price    *float64
		expected int
	}{
		{"within both bounds", f64(100000), f64(200000), f64(150000), 40},
		{"on lower bound", f64(100000), f64(200000), f64(100000), 40},
		{"on upper bound", f64(100000), f64(200000), f64(200000), 40},
		{"below range", f64(100000), f64(200000), f64(99999), 0},
		{"above range", f64(100000), f64(200000), f64(250000), 0},
		{"only min satisfied", f64(100000), nil, f64(500000), 40},
		{"only min violated", f64(100000), nil, f64(50000), 0},
		{"only max satisfied", nil, f64(300000), f64(200000), 40},
		{"only max violated", nil, f64(100000), f64(150000), 0},
		{"no budget", nil, nil, f64(150000), PriceUnknownCredit},
		{"unknown price", f64(100000), f64(200000), nil, PriceUnknownCredit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, priceFit(tt.min, tt.max, tt.price))
		})
	}
}

func TestTypeFit(t *testing.T) {
	assert.Equal(t, 20, typeFit([]string{"Duplex", "SFR"}, "sfr"))
	assert.Equal(t, 20, typeFit([]string{"multi"}, "Multi-Family"))
	assert.Equal(t, 0, typeFit([]string{"Single Family Residence"}, "family"))
	assert.Equal(t, 0, typeFit([]string{"Condo"}, "SFR"))
	assert.Equal(t, 0, typeFit([]string{"Condo"}, ""))
	assert.Equal(t, TypeNoPrefCredit, typeFit(nil, "SFR"))
	assert.Equal(t, TypeNoPrefCredit, typeFit(nil, ""))
}

func TestTypeFit_ShortTargetDoesNotMatchLongerTokens(t *testing.T) {
	assert.Equal(t, 0, typeFit([]string{"Highland Lots"}, "land"))
	assert.Equal(t, 0, typeFit([]string{"SFR", "Duplex"}, "s"))
	assert.Equal(t, 20, typeFit([]string{"land"}, "Vacant Land"))
}

func TestAreaFit_NoPreferenceAlwaysFive(t *testing.T) {
	for _, addr := range []string{"", "1 Main St, Houston", "PO Box 9", "Anywhere"} {
		assert.Equal(t, 5, areaFit(nil, addr), addr)
		assert.Equal(t, 5, areaFit([]string{}, addr), addr)
	}
}

func TestAreaFit(t *testing.T) {
	assert.Equal(t, 25, areaFit([]string{"Katy", "HOUSTON"}, "12 Oak Ln, Houston, TX"))
	assert.Equal(t, 0, areaFit([]string{"Dallas"}, "12 Oak Ln, Houston, TX"))
	assert.Equal(t, 0, areaFit([]string{"Dallas"}, ""))
}

func TestMinimumFit(t *testing.T) {
	assert.Equal(t, 10, minimumFit(f64(3), f64(3), 10))
	assert.Equal(t, 10, minimumFit(f64(3), f64(5), 10))
	assert.Equal(t, 0, minimumFit(f64(3), f64(2), 10))
	assert.Equal(t, 5, minimumFit(nil, f64(2), 10))
	assert.Equal(t, 5, minimumFit(f64(3), nil, 10))
	assert.Equal(t, 5, minimumFit(nil, nil, 10))
}

func TestPerformanceBonus(t *testing.T) {
	assert.Equal(t, 0, performanceBonus(0))
	assert.Equal(t, 12, performanceBonus(80))
	assert.Equal(t, 15, performanceBonus(100))
	assert.Equal(t, 8, performanceBonus(50))
	assert.Equal(t, 15, performanceBonus(140))
	assert.Equal(t, 0, performanceBonus(-10))
}

func TestMaxBudgetBelowPriceCanStillMatch(t *testing.T) {
	b := exampleBuyer()
	b.MinBudget = nil
	b.MaxBudget = f64(150000)
	b.PerformanceScore = 100

	results := newTestEngine(t).Match([]models.Buyer{b}, houstonProperty())
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Factors.Price)
	// 0 + 20 + 25 + 10 + 5 + 5 + 15 = 80 / 130
	assert.Equal(t, 62, results[0].Score)
}

func TestIncompleteDataIsNotZeroed(t *testing.T) {
	sparse := models.Buyer{ID: "sparse", Status: models.BuyerStatusActive}
	target := models.Property{ID: "p", Address: "somewhere"}

	f := ScoreFactors(sparse, target)
	assert.Equal(t, Factors{Price: 20, Type: 10, Area: 5, Bedrooms: 5, Bathrooms: 5, SquareFeet: 5}, f)
	assert.Equal(t, 38, Normalize(f.Earned()))
}
