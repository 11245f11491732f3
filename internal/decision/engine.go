package decision

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/forecast"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/repository"
)

const (
	MinLookbackDays     = 7
	DefaultLookbackDays = 7
	DefaultLeadDays     = 120
	DefaultThreshold    = 5
	DefaultTopLimit     = 8
	DefaultSeriesDays   = 90
	DefaultWorkers      = 8

	// order dates further out than this are capped
	maxOrderHorizonDays = 36500

	// largest quantity or day count reported on a decision
	maxReportedCount = math.MaxInt32
)

// Options are the engine-wide defaults. Per-call DecisionOptions override them.
type Options struct {
	DefaultLookbackDays int
	DefaultLeadDays     int
	Workers             int
	SeriesDays          int
	MinConfidence       float64
	UseAI               bool
	VolatilityZeroFill  bool
}

// OptionsFromConfig maps the engine section of the application config.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		DefaultLookbackDays: cfg.DefaultLookbackDays,
		DefaultLeadDays:     cfg.DefaultLeadDays,
		Workers:             cfg.Workers,
		SeriesDays:          cfg.SeriesDays,
		MinConfidence:       cfg.MinConfidence,
		UseAI:               cfg.UseAI,
		VolatilityZeroFill:  cfg.VolatilityZeroFill,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultLookbackDays <= 0 {
		o.DefaultLookbackDays = DefaultLookbackDays
	}
	if o.DefaultLeadDays <= 0 {
		o.DefaultLeadDays = DefaultLeadDays
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.SeriesDays <= 0 {
		o.SeriesDays = DefaultSeriesDays
	}
	if o.MinConfidence <= 0 || o.MinConfidence >= 1 {
		o.MinConfidence = 0.5
	}
	return o
}

// Engine computes reorder decisions from a stock snapshot and sales history.
// It keeps no state between calls.
type Engine struct {
	stock    repository.StockRepository
	sales    repository.SalesRepository
	provider forecast.Provider
	opts     Options

	// Now is the engine clock. Tests pin it for reproducible output.
	Now func() time.Time
}

// NewEngine wires the engine. provider may be nil, which disables blending.
func NewEngine(stock repository.StockRepository, sales repository.SalesRepository, provider forecast.Provider, opts Options) *Engine {
	return &Engine{
		stock:    stock,
		sales:    sales,
		provider: provider,
		opts:     opts.withDefaults(),
		Now:      time.Now,
	}
}

// run is a fully resolved set of options for one invocation.
type run struct {
	lookback       int
	leadDays       int
	storeID        string
	includeDetails bool
	useAI          bool
	now            time.Time
}

func (e *Engine) resolve(opts domain.DecisionOptions, now time.Time) run {
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = e.opts.DefaultLookbackDays
	}
	if lookback < MinLookbackDays {
		lookback = MinLookbackDays
	}

	lead := opts.LeadDays
	if lead <= 0 {
		lead = e.opts.DefaultLeadDays
	}

	useAI := e.opts.UseAI
	if opts.UseAI != nil {
		useAI = *opts.UseAI
	}

	return run{
		lookback:       lookback,
		leadDays:       lead,
		storeID:        domain.NormalizeStoreID(opts.StoreID),
		includeDetails: opts.IncludeDetails,
		useAI:          useAI && e.provider != nil,
		now:            now,
	}
}

// Normalize resolves defaults and floors so that equivalent option sets are
// equal. The result produces the same decisions as the input.
func (e *Engine) Normalize(opts domain.DecisionOptions) domain.DecisionOptions {
	r := e.resolve(opts, time.Time{})
	useAI := r.useAI
	return domain.DecisionOptions{
		Lookback:       r.lookback,
		LeadDays:       r.leadDays,
		StoreID:        r.storeID,
		IncludeDetails: r.includeDetails,
		UseAI:          &useAI,
	}
}

// ComputeDecisions returns one decision per product, reorders first, each
// partition by descending expected profit.
func (e *Engine) ComputeDecisions(ctx context.Context, opts domain.DecisionOptions) ([]domain.Decision, error) {
	return e.compute(ctx, e.resolve(opts, e.now()))
}

func (e *Engine) compute(ctx context.Context, r run) ([]domain.Decision, error) {
	products, err := e.stock.ListProducts(ctx, r.storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock snapshot: %w", err)
	}

	events, err := e.sales.ListSales(ctx, r.storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales history: %w", err)
	}

	cutoff := daysBefore(r.now, float64(r.lookback))
	windowed := make(map[string][]domain.SalesEvent)
	history := make(map[string][]domain.SalesEvent)

	for _, ev := range events {
		if r.storeID != "" && ev.Store != r.storeID {
			continue
		}
		if r.useAI {
			history[ev.SKU] = append(history[ev.SKU], ev)
		}
		if ev.Date.Before(cutoff) || ev.Date.After(r.now) {
			continue
		}
		windowed[ev.SKU] = append(windowed[ev.SKU], ev)
	}

	decisions := make([]domain.Decision, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range products {
		i := i
		g.Go(func() error {
			p := products[i]
			decisions[i] = e.decide(gctx, p, windowed[p.SKU], history[p.SKU], r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	SortDecisions(decisions)

	log.Debug().
		Int("products", len(products)).
		Int("sales", len(events)).
		Int("lookback", r.lookback).
		Int("lead_days", r.leadDays).
		Str("store", r.storeID).
		Bool("use_ai", r.useAI).
		Msg("decisions computed")

	return decisions, nil
}

func (e *Engine) decide(ctx context.Context, p domain.ProductSnapshot, window, history []domain.SalesEvent, r run) domain.Decision {
	// 1. Windowed sales and velocity
	var sold float64
	for _, s := range window {
		sold += finiteOrZero(s.Qty)
	}
	velocity := sold / float64(r.lookback)
	stock := finiteOrZero(p.StockQty())

	threshold := float64(DefaultThreshold)
	if p.AlertThreshold != nil && isFinite(*p.AlertThreshold) {
		threshold = *p.AlertThreshold
	}

	// 2. Recency, volatility, trend
	recent := HasRecentSales(window, r.now)
	stdDev := DailyStdDev(window, r.lookback, r.now, e.opts.VolatilityZeroFill)
	trend := AnalyzeTrend(window, r.lookback, r.now)

	// 3. Classical projection, optionally blended with the forecast
	blend := BlendResult{Projected: velocity * float64(r.leadDays) * trend.Ratio}
	if r.useAI && recent && velocity > 0 {
		blend = e.blendForecast(ctx, p.SKU, history, r, blend.Projected)
	}
	projected := finiteOrZero(blend.Projected)

	// 4. Safety stock and reorder
	safety := SafetyStock(velocity, stdDev, r.leadDays, threshold)
	reorder := recent && velocity > 0 && projected > stock+safety

	orderQty := 0
	if reorder {
		orderQty = boundedInt(math.Ceil(projected - stock))
	}

	// 5. Order date and coverage
	var orderDate *time.Time
	var coverage *int
	if velocity > 0 {
		daysUntilOrder := stock/velocity - float64(r.leadDays)
		d := r.now
		if daysUntilOrder > 0 {
			d = r.now.Add(time.Duration(math.Min(daysUntilOrder, maxOrderHorizonDays) * float64(24*time.Hour)))
		}
		orderDate = &d

		c := boundedInt(math.Floor(stock / velocity))
		coverage = &c
	}

	// 6. Opportunity
	opp := Score(p.Price, p.Cost, projected, trend.Ratio)

	d := domain.Decision{
		SKU:              p.SKU,
		Name:             p.Name,
		Sold:             sold,
		Velocity:         velocity,
		AvgSalesPerDay:   velocity,
		ProjectedDemand:  projected,
		Stock:            stock,
		Threshold:        threshold,
		ReorderNeeded:    reorder,
		OrderQty:         orderQty,
		OrderDate:        orderDate,
		CoverageDays:     coverage,
		ExpectedProfit:   opp.ExpectedProfit,
		Price:            opp.Price,
		Cost:             opp.Cost,
		ROI:              opp.ROI,
		OpportunityScore: opp.Score,
		AIPrediction:     blend.AI,
		UsedAI:           blend.UsedAI,
	}

	if r.includeDetails {
		details := &domain.DecisionDetails{
			HasRecentSales: recent,
			Trend:          trend.Trend,
			TrendRatio:     round2(trend.Ratio),
			StdDev:         round2(stdDev),
			SafetyStock:    boundedInt(math.Round(safety)),
			Volatility:     round2(finiteOrZero(stdDev / (velocity + epsilon))),
		}
		if blend.AI != nil {
			c := round2(blend.AI.Confidence)
			details.AIConfidence = &c
		}
		d.Details = details
	}

	return d
}

// blendForecast asks the provider for a projection. Failures are logged and
// the classical projection is kept.
func (e *Engine) blendForecast(ctx context.Context, sku string, history []domain.SalesEvent, r run, classical float64) BlendResult {
	req := forecast.Request{
		SKU:     sku,
		Series:  forecast.DailySeries(history, e.opts.SeriesDays, r.now),
		Horizon: r.leadDays,
	}

	p, err := e.provider.Forecast(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("sku", sku).Str("provider", e.provider.Name()).Msg("forecast failed, using classical projection")
		return BlendResult{Projected: classical}
	}
	if err := p.Validate(); err != nil {
		log.Warn().Err(err).Str("sku", sku).Str("provider", e.provider.Name()).Msg("forecast rejected, using classical projection")
		return BlendResult{Projected: classical}
	}

	return Blend(classical, p, e.opts.MinConfidence)
}

// SortDecisions orders reorders first, then by expected profit descending,
// then by SKU so equal profits have a fixed order.
func SortDecisions(decisions []domain.Decision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		a, b := decisions[i], decisions[j]
		if a.ReorderNeeded != b.ReorderNeeded {
			return a.ReorderNeeded
		}
		if a.ExpectedProfit != b.ExpectedProfit {
			return a.ExpectedProfit > b.ExpectedProfit
		}
		return a.SKU < b.SKU
	})
}

// GetStockHealth summarizes a fresh decision run.
func (e *Engine) GetStockHealth(ctx context.Context, opts domain.DecisionOptions) (domain.StockHealth, error) {
	now := e.now()
	decisions, err := e.compute(ctx, e.resolve(opts, now))
	if err != nil {
		return domain.StockHealth{}, err
	}
	return Summarize(decisions, now), nil
}

// Summarize reduces a decision list to portfolio health.
func Summarize(decisions []domain.Decision, now time.Time) domain.StockHealth {
	h := domain.StockHealth{TotalProducts: len(decisions)}

	var demand, stock float64
	for _, d := range decisions {
		switch {
		case d.IsUrgent(now):
			h.UrgentReorder++
		case d.IsWarning(now):
			h.WarningReorder++
		}
		demand += d.ProjectedDemand
		stock += d.Stock
	}
	h.OKProducts = h.TotalProducts - h.UrgentReorder - h.WarningReorder

	h.TotalProjectedDemand = math.Round(demand)
	h.TotalCurrentStock = stock
	h.CoverageRatio = round2(finiteOrZero(stock / (demand + epsilon)))

	h.HealthScore = 100
	if h.TotalProducts > 0 {
		h.HealthScore = int(math.Round(math.Min(100, float64(h.OKProducts)/float64(h.TotalProducts)*100)))
	}

	return h
}

// GetTopReorderItems returns urgent reorders then warnings, truncated to limit.
func (e *Engine) GetTopReorderItems(ctx context.Context, limit int, opts domain.DecisionOptions) ([]domain.Decision, error) {
	now := e.now()
	decisions, err := e.compute(ctx, e.resolve(opts, now))
	if err != nil {
		return nil, err
	}
	return TopReorderItems(decisions, limit, now), nil
}

// TopReorderItems picks urgent items first, then warnings, up to limit.
func TopReorderItems(decisions []domain.Decision, limit int, now time.Time) []domain.Decision {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	top := make([]domain.Decision, 0, limit)
	for _, d := range decisions {
		if len(top) == limit {
			return top
		}
		if d.IsUrgent(now) {
			top = append(top, d)
		}
	}
	for _, d := range decisions {
		if len(top) == limit {
			break
		}
		if d.IsWarning(now) {
			top = append(top, d)
		}
	}
	return top
}

// boundedInt converts a non-negative count, mapping NaN and negatives to 0
// and saturating at maxReportedCount.
func boundedInt(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= maxReportedCount {
		return maxReportedCount
	}
	return int(v)
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
