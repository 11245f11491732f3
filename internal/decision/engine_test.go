package decision

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/forecast"
)

type memStock struct {
	products []domain.ProductSnapshot
	err      error
	stores   []string
	mu       sync.Mutex
}

func (m *memStock) ListProducts(_ context.Context, storeID string) ([]domain.ProductSnapshot, error) {
	m.mu.Lock()
	m.stores = append(m.stores, storeID)
	m.mu.Unlock()
	return m.products, m.err
}

type memSales struct {
	events []domain.SalesEvent
	err    error
}

func (m *memSales) ListSales(_ context.Context, _ string) ([]domain.SalesEvent, error) {
	return m.events, m.err
}

type fakeProvider struct {
	prediction forecast.Prediction
	err        error
	calls      atomic.Int32
	lastReq    atomic.Value
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Forecast(_ context.Context, req forecast.Request) (forecast.Prediction, error) {
	f.calls.Add(1)
	f.lastReq.Store(req)
	return f.prediction, f.err
}

func ptr(v float64) *float64 { return &v }

func noAI() *bool {
	b := false
	return &b
}

func newTestEngine(stock *memStock, sales *memSales, provider forecast.Provider) *Engine {
	e := NewEngine(stock, sales, provider, Options{UseAI: true})
	e.Now = func() time.Time { return testNow }
	return e
}

func flatSales(sku string, perDay float64, days int) []domain.SalesEvent {
	out := make([]domain.SalesEvent, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, sale(sku, perDay, float64(i)+0.1))
	}
	return out
}

func TestComputeDecisionsFlatDemandNeedsReorder(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Name: "Alpha", Qty: ptr(0), Price: 10}}}
	sales := &memSales{events: flatSales("A", 2, 30)}
	e := newTestEngine(stock, sales, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 30, LeadDays: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.InDelta(t, 60, d.Sold, 1e-9)
	assert.InDelta(t, 2, d.Velocity, 1e-9)
	assert.InDelta(t, 20, d.ProjectedDemand, 1e-9)
	assert.True(t, d.ReorderNeeded)
	assert.Equal(t, 20, d.OrderQty)
	assert.Equal(t, 5.0, d.Threshold)
	require.NotNil(t, d.OrderDate)
	assert.True(t, d.OrderDate.Equal(testNow))
	require.NotNil(t, d.CoverageDays)
	assert.Equal(t, 0, *d.CoverageDays)
	assert.Nil(t, d.AIPrediction)
	assert.False(t, d.UsedAI)
	assert.Nil(t, d.Details)
}

func TestComputeDecisionsAmpleStock(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Qty: ptr(1000), Price: 10}}}
	sales := &memSales{events: flatSales("A", 1, 30)}
	e := newTestEngine(stock, sales, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 30, LeadDays: 30})
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.InDelta(t, 30, d.ProjectedDemand, 1e-9)
	assert.False(t, d.ReorderNeeded)
	assert.Equal(t, 0, d.OrderQty)
	require.NotNil(t, d.CoverageDays)
	assert.Equal(t, 1000, *d.CoverageDays)
	require.NotNil(t, d.OrderDate)
	assert.True(t, d.OrderDate.Equal(testNow.Add(970*24*time.Hour)))
}

func TestComputeDecisionsDeadSKUNeverReorders(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Qty: ptr(5), Price: 10, AlertThreshold: ptr(10)}}}
	sales := &memSales{events: []domain.SalesEvent{sale("A", 40, 45), sale("A", 40, 50)}}
	e := newTestEngine(stock, sales, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 60, LeadDays: 120})
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.Greater(t, d.Velocity, 0.0)
	assert.Greater(t, d.ProjectedDemand, d.Stock)
	assert.False(t, d.ReorderNeeded)
	assert.Equal(t, 0, d.OrderQty)
	assert.Equal(t, 10.0, d.Threshold)
}

func TestComputeDecisionsNoSales(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", StockByStore: map[string]float64{"s1": 3, "s2": 4}, Price: 10}}}
	e := newTestEngine(stock, &memSales{}, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{IncludeDetails: true})
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.Equal(t, 7.0, d.Stock)
	assert.Equal(t, 0.0, d.Velocity)
	assert.Nil(t, d.CoverageDays)
	assert.Nil(t, d.OrderDate)
	assert.False(t, d.ReorderNeeded)
	require.NotNil(t, d.Details)
	assert.False(t, d.Details.HasRecentSales)
	assert.Equal(t, 0, d.Details.SafetyStock)
	assert.Nil(t, d.Details.AIConfidence)
}

func TestComputeDecisionsLookbackFloor(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Qty: ptr(0), Price: 10}}}
	sales := &memSales{events: []domain.SalesEvent{sale("A", 7, 6)}}
	e := newTestEngine(stock, sales, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 2, LeadDays: 10})
	require.NoError(t, err)
	assert.InDelta(t, 1, got[0].Velocity, 1e-9)
}

func TestComputeDecisionsStoreFilter(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Qty: ptr(0), Price: 10}}}
	other := sale("A", 100, 1)
	other.Store = "other"
	sales := &memSales{events: append(flatSales("A", 1, 7), other)}
	e := newTestEngine(stock, sales, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 7, LeadDays: 10, StoreID: "main"})
	require.NoError(t, err)
	assert.InDelta(t, 7, got[0].Sold, 1e-9)
	assert.Equal(t, []string{"main"}, stock.stores)
}

func TestComputeDecisionsAllStoresIsUnfiltered(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Qty: ptr(0), Price: 10}}}
	other := sale("A", 100, 1)
	other.Store = "other"
	sales := &memSales{events: append(flatSales("A", 1, 7), other)}
	e := newTestEngine(stock, sales, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 7, LeadDays: 10, StoreID: "all"})
	require.NoError(t, err)
	assert.InDelta(t, 107, got[0].Sold, 1e-9)
	assert.Equal(t, []string{""}, stock.stores)
	assert.Equal(t, "", e.Normalize(domain.DecisionOptions{StoreID: "all"}).StoreID)
}

func TestComputeDecisionsBlendsForecast(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Qty: ptr(0), Price: 10}}}
	history := append(flatSales("A", 2, 30), sale("A", 9, 80), sale("A", 9, 200))
	provider := &fakeProvider{prediction: forecast.Prediction{Total: 40, Confidence: 0.8}}
	e := newTestEngine(stock, &memSales{events: history}, provider)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 30, LeadDays: 10, IncludeDetails: true})
	require.NoError(t, err)

	d := got[0]
	assert.True(t, d.UsedAI)
	require.NotNil(t, d.AIPrediction)
	assert.Equal(t, 40.0, d.AIPrediction.Total)
	assert.InDelta(t, 36, d.ProjectedDemand, 1e-9)
	require.NotNil(t, d.Details.AIConfidence)
	assert.Equal(t, 0.8, *d.Details.AIConfidence)

	req := provider.lastReq.Load().(forecast.Request)
	assert.Equal(t, "A", req.SKU)
	assert.Equal(t, 10, req.Horizon)
	require.Len(t, req.Series, DefaultSeriesDays)
	var total float64
	for _, v := range req.Series {
		total += v
	}
	// the 80 day old sale is outside the lookback but inside the training series
	assert.InDelta(t, 69, total, 1e-9)
}

func TestComputeDecisionsForecastFailureFallsBack(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{
		{SKU: "A", Qty: ptr(0), Price: 10},
		{SKU: "B", Qty: ptr(0), Price: 10},
	}}
	sales := &memSales{events: append(flatSales("A", 2, 30), flatSales("B", 1, 30)...)}
	provider := &fakeProvider{err: errors.New("forecaster down")}
	e := newTestEngine(stock, sales, provider)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 30, LeadDays: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int32(2), provider.calls.Load())

	for _, d := range got {
		assert.Nil(t, d.AIPrediction)
		assert.False(t, d.UsedAI)
		assert.InDelta(t, d.Velocity*10, d.ProjectedDemand, 1e-9)
	}
}

func TestComputeDecisionsSaturatesHugeQuantities(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{
		{SKU: "A", Qty: ptr(0), Price: 10},
		{SKU: "B", Qty: ptr(1e25), Price: 10},
	}}
	sales := &memSales{events: append(flatSales("A", 2, 30), flatSales("B", 1, 30)...)}
	provider := &fakeProvider{prediction: forecast.Prediction{Total: 1e30, Confidence: 0.9}}
	e := newTestEngine(stock, sales, provider)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 30, LeadDays: 10, IncludeDetails: true})
	require.NoError(t, err)
	require.Len(t, got, 2)

	bySKU := map[string]domain.Decision{}
	for _, d := range got {
		bySKU[d.SKU] = d
		assert.GreaterOrEqual(t, d.OrderQty, 0)
		if d.CoverageDays != nil {
			assert.GreaterOrEqual(t, *d.CoverageDays, 0)
		}
		assert.GreaterOrEqual(t, d.Details.SafetyStock, 0)
	}

	a := bySKU["A"]
	assert.True(t, a.UsedAI)
	assert.True(t, a.ReorderNeeded)
	assert.Equal(t, math.MaxInt32, a.OrderQty)

	b := bySKU["B"]
	require.NotNil(t, b.CoverageDays)
	assert.Equal(t, math.MaxInt32, *b.CoverageDays)
	require.NotNil(t, b.OrderDate)
	assert.True(t, b.OrderDate.After(testNow))
}

func TestComputeDecisionsRejectsNegativeForecast(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{{SKU: "A", Qty: ptr(0), Price: 10}}}
	provider := &fakeProvider{prediction: forecast.Prediction{Total: -500, Confidence: 0.9}}
	e := newTestEngine(stock, &memSales{events: flatSales("A", 2, 30)}, provider)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 30, LeadDays: 10})
	require.NoError(t, err)

	d := got[0]
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.False(t, d.UsedAI)
	assert.Nil(t, d.AIPrediction)
	assert.InDelta(t, 20, d.ProjectedDemand, 1e-9)
	assert.Equal(t, 20, d.OrderQty)
}

func TestBoundedInt(t *testing.T) {
	assert.Equal(t, 0, boundedInt(-3))
	assert.Equal(t, 0, boundedInt(math.NaN()))
	assert.Equal(t, 0, boundedInt(math.Inf(-1)))
	assert.Equal(t, 12, boundedInt(12))
	assert.Equal(t, math.MaxInt32, boundedInt(1e30))
	assert.Equal(t, math.MaxInt32, boundedInt(math.Inf(1)))
}

func TestComputeDecisionsSkipsForecastWhenDisabled(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{
		{SKU: "A", Qty: ptr(0), Price: 10},
		{SKU: "dead", Qty: ptr(0), Price: 10},
	}}
	sales := &memSales{events: append(flatSales("A", 2, 30), sale("dead", 5, 45))}
	provider := &fakeProvider{prediction: forecast.Prediction{Total: 40, Confidence: 0.9}}
	e := newTestEngine(stock, sales, provider)

	_, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 60, LeadDays: 10, UseAI: noAI()})
	require.NoError(t, err)
	assert.Equal(t, int32(0), provider.calls.Load())

	_, err = e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 60, LeadDays: 10})
	require.NoError(t, err)
	// the dead SKU has velocity but no recent sales
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestComputeDecisionsInvariants(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{
		{SKU: "A", Qty: ptr(3), Price: 12, Cost: ptr(0)},
		{SKU: "B", Qty: ptr(500), Price: 0},
		{SKU: "C", Qty: ptr(2), Price: 30, Cost: ptr(math.NaN())},
		{SKU: "D", Qty: ptr(0), Price: 8, Cost: ptr(4)},
		{SKU: "E", Qty: ptr(40), Price: 5, AlertThreshold: ptr(50)},
		{SKU: "F", Qty: ptr(1), Price: 5},
	}}
	var events []domain.SalesEvent
	events = append(events, flatSales("A", 3, 30)...)
	events = append(events, flatSales("B", 1, 10)...)
	events = append(events, sale("C", 20, 2), sale("C", 1, 25))
	events = append(events, flatSales("D", 5, 60)...)
	events = append(events, flatSales("E", 2, 20)...)
	events = append(events, sale("F", 3, 40))
	e := newTestEngine(stock, &memSales{events: events}, nil)

	got, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{Lookback: 60, LeadDays: 30, IncludeDetails: true})
	require.NoError(t, err)
	require.Len(t, got, 6)

	seenNonReorder := false
	for i, d := range got {
		assert.GreaterOrEqual(t, d.OrderQty, 0, d.SKU)
		assert.False(t, math.IsNaN(d.ROI) || math.IsInf(d.ROI, 0), d.SKU)
		assert.False(t, math.IsNaN(d.OpportunityScore) || math.IsInf(d.OpportunityScore, 0), d.SKU)
		assert.Equal(t, d.Velocity == 0, d.CoverageDays == nil, d.SKU)
		if d.CoverageDays != nil {
			assert.GreaterOrEqual(t, *d.CoverageDays, 0, d.SKU)
		}
		assert.GreaterOrEqual(t, d.Details.TrendRatio, 0.7, d.SKU)
		assert.LessOrEqual(t, d.Details.TrendRatio, 1.5, d.SKU)
		if d.Velocity > 0 {
			assert.GreaterOrEqual(t, float64(d.Details.SafetyStock), d.Threshold, d.SKU)
		}
		if !d.Details.HasRecentSales {
			assert.False(t, d.ReorderNeeded, d.SKU)
		}

		if !d.ReorderNeeded {
			seenNonReorder = true
		} else {
			assert.False(t, seenNonReorder, "reorder item after non-reorder item: %s", d.SKU)
		}
		if i > 0 && got[i-1].ReorderNeeded == d.ReorderNeeded {
			assert.GreaterOrEqual(t, got[i-1].ExpectedProfit, d.ExpectedProfit)
		}
	}
}

func TestComputeDecisionsIdempotent(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{
		{SKU: "A", Qty: ptr(3), Price: 12},
		{SKU: "B", Qty: ptr(3), Price: 12},
		{SKU: "C", Qty: ptr(50), Price: 7, Cost: ptr(2)},
	}}
	events := append(flatSales("A", 3, 30), flatSales("B", 3, 30)...)
	events = append(events, flatSales("C", 1, 14)...)
	e := newTestEngine(stock, &memSales{events: events}, forecast.NewRegression())

	opts := domain.DecisionOptions{Lookback: 30, LeadDays: 20, IncludeDetails: true}
	first, err := e.ComputeDecisions(context.Background(), opts)
	require.NoError(t, err)
	second, err := e.ComputeDecisions(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// equal profits fall back to sku order
	assert.Equal(t, "A", first[0].SKU)
	assert.Equal(t, "B", first[1].SKU)
}

func TestComputeDecisionsCollaboratorErrors(t *testing.T) {
	boom := errors.New("db down")

	e := newTestEngine(&memStock{err: boom}, &memSales{}, nil)
	_, err := e.ComputeDecisions(context.Background(), domain.DecisionOptions{})
	assert.ErrorIs(t, err, boom)

	e = newTestEngine(&memStock{}, &memSales{err: boom}, nil)
	_, err = e.GetStockHealth(context.Background(), domain.DecisionOptions{})
	assert.ErrorIs(t, err, boom)
}

func TestSortDecisions(t *testing.T) {
	decisions := []domain.Decision{
		{SKU: "ok-low", ExpectedProfit: 1},
		{SKU: "re-low", ReorderNeeded: true, ExpectedProfit: 5},
		{SKU: "ok-high", ExpectedProfit: 100},
		{SKU: "re-high", ReorderNeeded: true, ExpectedProfit: 50},
		{SKU: "re-b", ReorderNeeded: true, ExpectedProfit: 5},
	}

	SortDecisions(decisions)

	var skus []string
	for _, d := range decisions {
		skus = append(skus, d.SKU)
	}
	assert.Equal(t, []string{"re-high", "re-b", "re-low", "ok-high", "ok-low"}, skus)
}

func TestSummarize(t *testing.T) {
	past := testNow
	future := testNow.Add(48 * time.Hour)

	decisions := []domain.Decision{
		{SKU: "u", ReorderNeeded: true, OrderDate: &past, ProjectedDemand: 10, Stock: 1},
		{SKU: "w", ReorderNeeded: true, OrderDate: &future, ProjectedDemand: 20.4, Stock: 2},
		{SKU: "o1", ProjectedDemand: 5, Stock: 30},
		{SKU: "o2", Stock: 7},
	}

	h := Summarize(decisions, testNow)
	assert.Equal(t, 4, h.TotalProducts)
	assert.Equal(t, 1, h.UrgentReorder)
	assert.Equal(t, 1, h.WarningReorder)
	assert.Equal(t, 2, h.OKProducts)
	assert.Equal(t, 35.0, h.TotalProjectedDemand)
	assert.Equal(t, 40.0, h.TotalCurrentStock)
	assert.InDelta(t, 1.13, h.CoverageRatio, 1e-9)
	assert.Equal(t, 50, h.HealthScore)
}

func TestSummarizeEmpty(t *testing.T) {
	h := Summarize(nil, testNow)
	assert.Equal(t, 0, h.TotalProducts)
	assert.Equal(t, 100, h.HealthScore)
	assert.Equal(t, 0.0, h.CoverageRatio)
}

func TestGetStockHealth(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{
		{SKU: "urgent", Qty: ptr(0), Price: 10},
		{SKU: "fine", Qty: ptr(1000), Price: 10},
	}}
	events := append(flatSales("urgent", 2, 30), flatSales("fine", 1, 30)...)
	e := newTestEngine(stock, &memSales{events: events}, nil)

	h, err := e.GetStockHealth(context.Background(), domain.DecisionOptions{Lookback: 30, LeadDays: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, h.TotalProducts)
	assert.Equal(t, 1, h.UrgentReorder)
	assert.Equal(t, 0, h.WarningReorder)
	assert.Equal(t, 1, h.OKProducts)
	assert.Equal(t, 50, h.HealthScore)
	assert.GreaterOrEqual(t, h.HealthScore, 0)
	assert.LessOrEqual(t, h.HealthScore, 100)
}

func TestTopReorderItems(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(24 * time.Hour)

	decisions := []domain.Decision{
		{SKU: "w1", ReorderNeeded: true, OrderDate: &future},
		{SKU: "u1", ReorderNeeded: true, OrderDate: &past},
		{SKU: "ok"},
		{SKU: "w2", ReorderNeeded: true, OrderDate: &future},
		{SKU: "u2", ReorderNeeded: true, OrderDate: &past},
	}

	skus := func(ds []domain.Decision) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.SKU)
		}
		return out
	}

	assert.Equal(t, []string{"u1", "u2", "w1", "w2"}, skus(TopReorderItems(decisions, 0, testNow)))
	assert.Equal(t, []string{"u1", "u2", "w1"}, skus(TopReorderItems(decisions, 3, testNow)))
	assert.Equal(t, []string{"u1"}, skus(TopReorderItems(decisions, 1, testNow)))
}

func TestGetTopReorderItems(t *testing.T) {
	stock := &memStock{products: []domain.ProductSnapshot{
		{SKU: "urgent", Qty: ptr(0), Price: 10},
		{SKU: "fine", Qty: ptr(1000), Price: 10},
	}}
	events := append(flatSales("urgent", 2, 30), flatSales("fine", 1, 30)...)
	e := newTestEngine(stock, &memSales{events: events}, nil)

	got, err := e.GetTopReorderItems(context.Background(), 5, domain.DecisionOptions{Lookback: 30, LeadDays: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "urgent", got[0].SKU)
}
