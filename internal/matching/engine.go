// Package matching ranks directory buyers against a property or wholesale
// deal using an additive weighted score normalized to 0..100.
package matching

import (
	"math"
	"sort"
	"strings"

	"wholesale-crm/internal/common/logger"
	"wholesale-crm/internal/common/metrics"
	"wholesale-crm/internal/models"
)

// Criterion weights. The performance bonus counts toward MaxPossible.
const (
	PriceWeight       = 40
	TypeWeight        = 20
	AreaWeight        = 25
	BedroomsWeight    = 10
	BathroomsWeight   = 10
	SquareFeetWeight  = 10
	PerformanceWeight = 15

	MaxPossible = PriceWeight + TypeWeight + AreaWeight + BedroomsWeight +
		BathroomsWeight + SquareFeetWeight + PerformanceWeight
)

// Partial credits granted when the buyer has no preference or the target
// does not carry the field.
const (
	PriceUnknownCredit  = 20
	TypeNoPrefCredit    = 10
	AreaNoPrefCredit    = 5
	MinimumNoPrefCredit = 5
)

const DefaultThreshold = 30

// Factors is the per-criterion breakdown of a score.
type Factors struct {
	Price       int `json:"price"`
	Type        int `json:"type"`
	Area        int `json:"area"`
	Bedrooms    int `json:"bedrooms"`
	Bathrooms   int `json:"bathrooms"`
	SquareFeet  int `json:"sqft"`
	Performance int `json:"performance"`
}

// Earned sums every factor.
func (f Factors) Earned() int {
	return f.Price + f.Type + f.Area + f.Bedrooms + f.Bathrooms + f.SquareFeet + f.Performance
}

type Result struct {
	Buyer   models.Buyer `json:"buyer"`
	Score   int          `json:"score"`
	Factors Factors      `json:"factors"`
}

type Config struct {
	Threshold int
}

type Engine struct {
	threshold int
	logger    logger.Logger
}

func NewEngine(cfg Config, log logger.Logger) *Engine {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{
		threshold: threshold,
		logger:    log.WithFields(map[string]interface{}{"component": "matching"}),
	}
}

func (e *Engine) Threshold() int { return e.threshold }

// Match scores every active buyer against target and returns those at or
// above the threshold, highest first. Equal scores keep input order.
func (e *Engine) Match(buyers []models.Buyer, target models.MatchTarget) []Result {
	results := make([]Result, 0)
	evaluated := 0

	for _, buyer := range buyers {
		if buyer.Status != models.BuyerStatusActive {
			continue
		}
		evaluated++

		factors := ScoreFactors(buyer, target)
		score := Normalize(factors.Earned())
		if score < e.threshold {
			continue
		}
		results = append(results, Result{Buyer: buyer, Score: score, Factors: factors})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	metrics.BuyersEvaluated.Add(float64(evaluated))
	metrics.BuyersMatched.Add(float64(len(results)))

	e.logger.Debug("buyers matched", map[string]interface{}{
		"targetId":  target.TargetID(),
		"evaluated": evaluated,
		"matched":   len(results),
		"threshold": e.threshold,
	})

	return results
}

// ScoreFactors computes the criterion breakdown for one buyer regardless of
// status or threshold.
func ScoreFactors(buyer models.Buyer, target models.MatchTarget) Factors {
	return Factors{
		Price:       priceFit(buyer.MinBudget, buyer.MaxBudget, target.TargetPrice()),
		Type:        typeFit(buyer.PropertyTypes, target.TargetType()),
		Area:        areaFit(buyer.PreferredAreas, target.TargetAddress()),
		Bedrooms:    minimumFit(intToFloat(buyer.MinBedrooms), intToFloat(target.TargetBedrooms()), BedroomsWeight),
		Bathrooms:   minimumFit(buyer.MinBathrooms, target.TargetBathrooms(), BathroomsWeight),
		SquareFeet:  minimumFit(intToFloat(buyer.MinSquareFeet), intToFloat(target.TargetSquareFeet()), SquareFeetWeight),
		Performance: performanceBonus(buyer.PerformanceScore),
	}
}

// Normalize converts earned points into a 0..100 percentage of MaxPossible.
func Normalize(earned int) int {
	return int(math.Round(float64(earned) / float64(MaxPossible) * 100))
}

func priceFit(minBudget, maxBudget, price *float64) int {
	if minBudget == nil && maxBudget == nil {
		return PriceUnknownCredit
	}
	if price == nil {
		return PriceUnknownCredit
	}
	if minBudget != nil && *price < *minBudget {
		return 0
	}
	if maxBudget != nil && *price > *maxBudget {
		return 0
	}
	return PriceWeight
}

func typeFit(buyerTypes []string, targetType string) int {
	if len(buyerTypes) == 0 {
		return TypeNoPrefCredit
	}
	target := strings.ToLower(strings.TrimSpace(targetType))
	if target == "" {
		return 0
	}
	for _, t := range buyerTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(target, t) {
			return TypeWeight
		}
	}
	return 0
}

func areaFit(areas []string, address string) int {
	if len(areas) == 0 {
		return AreaNoPrefCredit
	}
	addr := strings.ToLower(address)
	for _, area := range areas {
		area = strings.ToLower(strings.TrimSpace(area))
		if area != "" && strings.Contains(addr, area) {
			return AreaWeight
		}
	}
	return 0
}

// minimumFit grants full credit when the target meets the buyer's minimum
// and partial credit when either side is unknown.
func minimumFit(minimum, actual *float64, weight int) int {
	if minimum == nil || actual == nil {
		return MinimumNoPrefCredit
	}
	if *actual >= *minimum {
		return weight
	}
	return 0
}

func performanceBonus(score int) int {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(float64(score) / 100 * PerformanceWeight))
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
