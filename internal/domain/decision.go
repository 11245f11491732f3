package domain

import (
	"strings"
	"time"
)

// Trend classifies the direction of demand across the lookback window.
type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// SalesEvent is a single recorded sale line. Events are immutable once recorded.
type SalesEvent struct {
	SKU   string    `json:"sku" db:"sku"`
	Qty   float64   `json:"qty" db:"qty"`
	Date  time.Time `json:"date" db:"date"`
	Store string    `json:"store" db:"store"`
	Total float64   `json:"total" db:"total"`
}

// ProductSnapshot is the current stock position of a product, either for one
// store or aggregated across stores. Qty takes precedence over StockByStore.
type ProductSnapshot struct {
	SKU            string             `json:"sku"`
	Name           string             `json:"name"`
	Qty            *float64           `json:"qty,omitempty"`
	StockByStore   map[string]float64 `json:"stockByStore,omitempty"`
	Price          float64            `json:"price"`
	Cost           *float64           `json:"cost,omitempty"`
	AlertThreshold *float64           `json:"alertThreshold,omitempty"`
}

// StockQty returns the normalized on-hand quantity.
func (p ProductSnapshot) StockQty() float64 {
	if p.Qty != nil {
		return *p.Qty
	}
	var total float64
	for _, q := range p.StockByStore {
		total += q
	}
	return total
}

// AIPrediction is the external forecast retained when it was blended in.
type AIPrediction struct {
	Total      float64 `json:"total"`
	Confidence float64 `json:"confidence"`
}

// DecisionDetails carries the intermediate metrics behind a decision.
type DecisionDetails struct {
	HasRecentSales bool     `json:"hasRecentSales"`
	Trend          Trend    `json:"trend"`
	TrendRatio     float64  `json:"trendRatio"`
	StdDev         float64  `json:"stdDev"`
	SafetyStock    int      `json:"safetyStock"`
	Volatility     float64  `json:"volatility"`
	AIConfidence   *float64 `json:"aiConfidence"`
}

// Decision is the per-SKU restock recommendation. It is recomputed on every
// call and never persisted.
type Decision struct {
	SKU              string           `json:"sku"`
	Name             string           `json:"name"`
	Sold             float64          `json:"sold"`
	Velocity         float64          `json:"velocity"`
	AvgSalesPerDay   float64          `json:"avgSalesPerDay"`
	ProjectedDemand  float64          `json:"projectedDemand"`
	Stock            float64          `json:"stock"`
	Threshold        float64          `json:"threshold"`
	ReorderNeeded    bool             `json:"reorderNeeded"`
	OrderQty         int              `json:"orderQty"`
	OrderDate        *time.Time       `json:"orderDate"`
	CoverageDays     *int             `json:"coverageDays"`
	ExpectedProfit   float64          `json:"expectedProfit"`
	Price            float64          `json:"price"`
	Cost             float64          `json:"cost"`
	ROI              float64          `json:"roi"`
	OpportunityScore float64          `json:"opportunityScore"`
	AIPrediction     *AIPrediction    `json:"aiPrediction"`
	UsedAI           bool             `json:"usedAi"`
	Details          *DecisionDetails `json:"details,omitempty"`
}

// IsUrgent reports whether the reorder should be placed now.
func (d Decision) IsUrgent(now time.Time) bool {
	return d.ReorderNeeded && d.OrderDate != nil && !d.OrderDate.After(now)
}

// IsWarning reports whether a reorder is needed but can wait.
func (d Decision) IsWarning(now time.Time) bool {
	return d.ReorderNeeded && d.OrderDate != nil && d.OrderDate.After(now)
}

// StockHealth is the portfolio summary derived from a decision list.
type StockHealth struct {
	TotalProducts        int     `json:"totalProducts"`
	UrgentReorder        int     `json:"urgentReorder"`
	WarningReorder       int     `json:"warningReorder"`
	OKProducts           int     `json:"okProducts"`
	TotalProjectedDemand float64 `json:"totalProjectedDemand"`
	TotalCurrentStock    float64 `json:"totalCurrentStock"`
	CoverageRatio        float64 `json:"coverageRatio"`
	HealthScore          int     `json:"healthScore"`
}

// AllStores is the store id callers use to ask for every store.
const AllStores = "all"

// NormalizeStoreID trims the id and maps AllStores to the unfiltered "".
func NormalizeStoreID(storeID string) string {
	storeID = strings.TrimSpace(storeID)
	if strings.EqualFold(storeID, AllStores) {
		return ""
	}
	return storeID
}

// DecisionOptions are the caller-facing knobs of a decision run. Zero values
// fall back to the engine defaults.
type DecisionOptions struct {
	Lookback       int    `json:"lookback"`
	LeadDays       int    `json:"leadDays"`
	StoreID        string `json:"storeId"`
	IncludeDetails bool   `json:"includeDetails"`
	UseAI          *bool  `json:"useAi"`
}
