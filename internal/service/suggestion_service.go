package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const (
	suggestionCachePrefix      = "suggestion:"
	defaultSuggestionCacheWait = 250 * time.Millisecond
)

// SuggestionClient produces the four AI suggestions for a description.
type SuggestionClient interface {
	GenerateTitle(ctx context.Context, description string) (string, error)
	GeneratePriority(ctx context.Context, description string) (string, error)
	GenerateStepsToReproduce(ctx context.Context, description string) (string, error)
	SuggestCategory(ctx context.Context, description string) (string, error)
}

// SuggestionService runs AI enrichment ahead of ticket submission.
type SuggestionService struct {
	client    SuggestionClient
	cache     redis.Cmdable
	cacheTTL  time.Duration
	cacheWait time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// SuggestionDependencies bundles collaborators for the suggestion service.
type SuggestionDependencies struct {
	Client   SuggestionClient
	Cache    redis.Cmdable
	CacheTTL time.Duration
	// CacheTimeout bounds each cache read and write. Zero means 250ms.
	CacheTimeout time.Duration
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewSuggestionService constructs the service. Client and Cache may be nil.
func NewSuggestionService(deps SuggestionDependencies) *SuggestionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cacheWait := deps.CacheTimeout
	if cacheWait <= 0 {
		cacheWait = defaultSuggestionCacheWait
	}
	return &SuggestionService{
		client:    deps.Client,
		cache:     deps.Cache,
		cacheTTL:  deps.CacheTTL,
		cacheWait: cacheWait,
		logger:    logger,
		metrics:   deps.Metrics,
	}
}

// Suggest returns title, priority, steps and category suggestions for a
// description. A category failure only omits the category.
func (s *SuggestionService) Suggest(ctx context.Context, description string) (*dto.SuggestionResponse, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", map[string]any{"fields": []string{"description"}})
	}
	if s.client == nil {
		return nil, apperrors.NewAIUnavailable("AI suggestions are not configured")
	}

	key := suggestionCacheKey(description)
	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	var (
		resp     dto.SuggestionResponse
		priority string
		category string
		catErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		title, err := s.client.GenerateTitle(gctx, description)
		resp.Title = title
		return err
	})
	g.Go(func() error {
		p, err := s.client.GeneratePriority(gctx, description)
		priority = p
		return err
	})
	g.Go(func() error {
		steps, err := s.client.GenerateStepsToReproduce(gctx, description)
		resp.StepsToReproduce = steps
		return err
	})
	// Category runs outside the group: its failure never cancels the rest,
	// and Wait returning does not cancel it.
	catCtx, cancelCat := context.WithCancel(ctx)
	defer cancelCat()
	done := make(chan struct{})
	go func() {
		defer close(done)
		category, catErr = s.client.SuggestCategory(catCtx, description)
	}()

	err := g.Wait()
	if err != nil {
		cancelCat()
	}
	<-done
	if err != nil {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, apperrors.NewAIServiceError("failed to generate suggestions", err)
	}

	if p, ok := domain.ParsePriority(priority); ok {
		resp.Priority = string(p)
	} else {
		s.logger.Warn("discarding out-of-set priority suggestion", zap.String("priority", priority))
	}

	if catErr != nil {
		s.logger.Warn("category suggestion failed", zap.Error(catErr))
	} else if c := strings.TrimSpace(category); c != "" {
		resp.Category = &c
	}

	s.store(ctx, key, &resp)
	return &resp, nil
}

func (s *SuggestionService) cached(ctx context.Context, key string) (*dto.SuggestionResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.cacheWait)
	defer cancel()
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("suggestion cache read failed", zap.Error(err))
		}
		s.metrics.RecordSuggestionCache(false)
		return nil, false
	}
	var resp dto.SuggestionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		s.logger.Debug("suggestion cache entry unreadable", zap.Error(err))
		s.metrics.RecordSuggestionCache(false)
		return nil, false
	}
	s.metrics.RecordSuggestionCache(true)
	return &resp, true
}

func (s *SuggestionService) store(ctx context.Context, key string, resp *dto.SuggestionResponse) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cacheWait)
	defer cancel()
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("suggestion cache write failed", zap.Error(err))
	}
}

// suggestionCacheKey hashes the whitespace-normalized description.
func suggestionCacheKey(description string) string {
	normalized := strings.Join(strings.Fields(description), " ")
	sum := blake2b.Sum256([]byte(normalized))
	return suggestionCachePrefix + hex.EncodeToString(sum[:])
}
