package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// evaluationDays is the shared window findings are computed over; the
// 30-day baseline needs at least this much history.
const evaluationDays = 30

// RecommendationCard is one advisory output item.
type RecommendationCard struct {
	Title    string              `json:"title"`
	Body     string              `json:"body"`
	Severity domain.Severity     `json:"severity"`
	Metrics  []domain.MetricKind `json:"metrics"`
}

// Advisor turns findings and metric summaries into recommendation
// cards. Implementations may call out to an LLM; the service treats the
// call as opaque and fallible.
type Advisor interface {
	Advise(ctx context.Context, findings []domain.Finding, summaries []MetricSummary) ([]RecommendationCard, error)
}

// AdvisorService evaluates the rule set and caches the advisory output
// until the underlying data changes or the freshness window passes.
type AdvisorService struct {
	trend   *TrendService
	rules   *RuleEvaluator
	advisor Advisor // nil means rules-only deployment
	ttl     time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	cacheHash  string
	cacheAt    time.Time
	cacheCards []RecommendationCard
}

// NewAdvisorService creates an AdvisorService. advisor may be nil, in
// which case cards are derived from findings directly.
func NewAdvisorService(trend *TrendService, rules *RuleEvaluator, advisor Advisor, ttl time.Duration, log zerolog.Logger) *AdvisorService {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &AdvisorService{
		trend:   trend,
		rules:   rules,
		advisor: advisor,
		ttl:     ttl,
		log:     log.With().Str("component", "advisor").Logger(),
		now:     time.Now,
	}
}

// Findings evaluates the rule set as of the given date.
func (s *AdvisorService) Findings(ctx context.Context, asOf domain.Date) ([]domain.Finding, error) {
	snap, err := s.trend.Snapshot(ctx, evaluationDays, asOf)
	if err != nil {
		return nil, err
	}
	return s.rules.Evaluate(snap), nil
}

// Recommendations returns advisory cards, serving the cached result
// while the inputs are unchanged and fresh. The second return reports a
// cache hit.
func (s *AdvisorService) Recommendations(ctx context.Context, force bool) ([]RecommendationCard, bool, error) {
	asOf := domain.DateOf(s.now())
	findings, err := s.Findings(ctx, asOf)
	if err != nil {
		return nil, false, err
	}
	summaries, err := s.trend.Summaries(ctx, asOf)
	if err != nil {
		return nil, false, err
	}

	hash := inputHash(findings, summaries)
	now := s.now()

	s.mu.Lock()
	if !force && hash == s.cacheHash && now.Sub(s.cacheAt) < s.ttl && s.cacheCards != nil {
		cards := s.cacheCards
		s.mu.Unlock()
		return cards, true, nil
	}
	s.mu.Unlock()

	cards := s.advise(ctx, findings, summaries)

	s.mu.Lock()
	s.cacheHash = hash
	s.cacheAt = now
	s.cacheCards = cards
	s.mu.Unlock()
	return cards, false, nil
}

func (s *AdvisorService) advise(ctx context.Context, findings []domain.Finding, summaries []MetricSummary) []RecommendationCard {
	if s.advisor == nil {
		return fallbackCards(findings)
	}
	cards, err := s.advisor.Advise(ctx, findings, summaries)
	if err != nil {
		s.log.Warn().Err(err).Msg("advisor call failed, falling back to raw findings")
		return fallbackCards(findings)
	}
	return cards
}

// fallbackCards converts raw findings into cards when no advisor is
// available or its call failed.
func fallbackCards(findings []domain.Finding) []RecommendationCard {
	cards := make([]RecommendationCard, 0, len(findings))
	for _, f := range findings {
		if len(cards) == 5 {
			break
		}
		cards = append(cards, RecommendationCard{
			Title:    titleFromCode(f.Code),
			Body:     f.Message,
			Severity: f.Severity,
			Metrics:  f.Metrics,
		})
	}
	return cards
}

func titleFromCode(code string) string {
	words := strings.Split(code, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func inputHash(findings []domain.Finding, summaries []MetricSummary) string {
	raw, _ := json.Marshal(struct {
		Findings  []domain.Finding
		Summaries []MetricSummary
	}{findings, summaries})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
