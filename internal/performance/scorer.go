// Package performance derives a buyer's 0..100 reputation score from
// executed contracts, activity and contact recency.
package performance

import (
	"time"

	"wholesale-crm/internal/models"
)

const (
	PointsPerDeal   = 10
	MaxDealPoints   = 40
	ActiveBonus     = 20
	FullBudgetBonus = 20
	PartialBudget   = 10
	RecentBonus     = 20
	StaleBonus      = 10
	MaxScore        = 100
	RecentWindow    = 30 * 24 * time.Hour
	StaleWindow     = 90 * 24 * time.Hour
)

type Result struct {
	BuyerID        string `json:"buyerId"`
	Score          int    `json:"score"`
	DealsCompleted int    `json:"dealsCompleted"`
}

// Score is a pure function of the buyer, the contract history and now.
func Score(buyer models.Buyer, contracts []models.Contract, now time.Time) Result {
	deals := CompletedDeals(buyer, contracts)

	points := deals * PointsPerDeal
	if points > MaxDealPoints {
		points = MaxDealPoints
	}
	if buyer.Status == models.BuyerStatusActive {
		points += ActiveBonus
	}
	if buyer.HasBudget() {
		points += FullBudgetBonus
	} else {
		points += PartialBudget
	}
	points += recencyBonus(buyer.LastContact, now)

	if points > MaxScore {
		points = MaxScore
	}
	return Result{BuyerID: buyer.ID, Score: points, DealsCompleted: deals}
}

// Apply writes the score and deal count back onto buyer. Repeated calls with
// the same inputs leave the buyer unchanged.
func Apply(buyer *models.Buyer, contracts []models.Contract, now time.Time) Result {
	res := Score(*buyer, contracts, now)
	buyer.PerformanceScore = res.Score
	buyer.DealsCompleted = res.DealsCompleted
	return res
}

// CompletedDeals counts executed contracts belonging to buyer. Contracts
// carrying a BuyerID join on it; older contracts fall back to exact name.
func CompletedDeals(buyer models.Buyer, contracts []models.Contract) int {
	n := 0
	for _, c := range contracts {
		if c.Status != models.ContractStatusExecuted {
			continue
		}
		if belongsTo(c, buyer) {
			n++
		}
	}
	return n
}

func belongsTo(c models.Contract, buyer models.Buyer) bool {
	if c.BuyerID != "" {
		return c.BuyerID == buyer.ID
	}
	return buyer.Name != "" && c.BuyerName == buyer.Name
}

func recencyBonus(lastContact *time.Time, now time.Time) int {
	if lastContact == nil {
		return 0
	}
	age := now.Sub(*lastContact)
	switch {
	case age <= RecentWindow:
		return RecentBonus
	case age <= StaleWindow:
		return StaleBonus
	}
	return 0
}
