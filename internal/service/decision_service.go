package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/cache"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/decision"
	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/domain"
)

// Engine is the decision engine as seen by the service.
type Engine interface {
	ComputeDecisions(ctx context.Context, opts domain.DecisionOptions) ([]domain.Decision, error)
	Normalize(opts domain.DecisionOptions) domain.DecisionOptions
}

// Publisher fans an invalidation out to other instances.
type Publisher interface {
	Publish(ctx context.Context, ev cache.ChangeEvent) error
}

type DecisionService struct {
	engine    Engine
	cache     cache.DecisionCache
	publisher Publisher
	now       func() time.Time
}

func NewDecisionService(engine Engine, cacheImpl cache.DecisionCache) *DecisionService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDecisionCache()
	}
	return &DecisionService{engine: engine, cache: cacheImpl, now: time.Now}
}

// SetPublisher makes Invalidate broadcast on the invalidation channel.
func (s *DecisionService) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *DecisionService) GetDecisions(ctx context.Context, opts domain.DecisionOptions) ([]domain.Decision, error) {
	opts = s.engine.Normalize(opts)

	if decisions, ok, err := s.cache.GetDecisions(ctx, opts); err == nil && ok {
		return decisions, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("decisions: cache get failed")
	}

	decisions, err := s.engine.ComputeDecisions(ctx, opts)
	if err != nil {
		return nil, err
	}
	if decisions == nil {
		decisions = make([]domain.Decision, 0)
	}

	if err := s.cache.SetDecisions(ctx, opts, decisions); err != nil {
		log.Warn().Err(err).Msg("decisions: cache set failed")
	}

	return decisions, nil
}

func (s *DecisionService) GetStockHealth(ctx context.Context, opts domain.DecisionOptions) (domain.StockHealth, error) {
	opts = s.engine.Normalize(opts)

	if health, ok, err := s.cache.GetHealth(ctx, opts); err == nil && ok {
		return health, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("stock health: cache get failed")
	}

	decisions, err := s.GetDecisions(ctx, opts)
	if err != nil {
		return domain.StockHealth{}, err
	}

	health := decision.Summarize(decisions, s.now())

	if err := s.cache.SetHealth(ctx, opts, health); err != nil {
		log.Warn().Err(err).Msg("stock health: cache set failed")
	}

	return health, nil
}

func (s *DecisionService) GetTopReorderItems(ctx context.Context, limit int, opts domain.DecisionOptions) ([]domain.Decision, error) {
	decisions, err := s.GetDecisions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return decision.TopReorderItems(decisions, limit, s.now()), nil
}

// Invalidate drops every cached run and tells the other instances to do the same.
func (s *DecisionService) Invalidate(ctx context.Context) error {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, cache.ChangeEvent{Kind: "manual", At: s.now().UTC()}); err != nil {
			log.Warn().Err(err).Msg("decisions: invalidation publish failed")
		}
	}
	return nil
}
