package pipeline

import (
	"context"
	"time"

	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/compose"
	"github.com/inquiry-triage/backend/internal/followup"
	"github.com/inquiry-triage/backend/internal/metrics"
	"github.com/inquiry-triage/backend/internal/retrieval"
)

// ModeProvider reports whether the generative engine should serve the next
// call. It is consulted on every invocation so tests can toggle modes
// without process-level mutation.
type ModeProvider func() bool

// Selector dispatches each pipeline operation to the generative or rule
// engine based on the injected mode check.
type Selector struct {
	rule           *RuleEngine
	generative     Engine
	generativeMode ModeProvider
}

var _ Engine = (*Selector)(nil)

func NewSelector(rule *RuleEngine, generative Engine, mode ModeProvider) *Selector {
	if mode == nil {
		mode = func() bool { return false }
	}
	return &Selector{
		rule:           rule,
		generative:     generative,
		generativeMode: mode,
	}
}

func (s *Selector) engine() (Engine, string) {
	if s.generativeMode() && s.generative != nil {
		return s.generative, "generative"
	}
	return s.rule, "rule"
}

func (s *Selector) SummarizeAndRoute(ctx context.Context, text string) (*classify.Result, error) {
	engine, name := s.engine()
	defer track("summarize_and_route", name)()
	return engine.SummarizeAndRoute(ctx, text)
}

func (s *Selector) RecommendSelfHelp(ctx context.Context, text string) (*retrieval.SelfHelpResult, error) {
	engine, name := s.engine()
	defer track("recommend_self_help", name)()
	return engine.RecommendSelfHelp(ctx, text)
}

func (s *Selector) GenerateFollowupQuestions(ctx context.Context, text string) ([]followup.Question, error) {
	engine, name := s.engine()
	defer track("generate_followups", name)()
	return engine.GenerateFollowupQuestions(ctx, text)
}

func (s *Selector) FindSimilarInquiries(ctx context.Context, text string) ([]retrieval.SimilarInquiry, error) {
	engine, name := s.engine()
	defer track("find_similar", name)()
	return engine.FindSimilarInquiries(ctx, text)
}

func (s *Selector) SearchKnowledge(ctx context.Context, text string) ([]retrieval.SearchSource, error) {
	engine, name := s.engine()
	defer track("search_knowledge", name)()
	return engine.SearchKnowledge(ctx, text)
}

func (s *Selector) GenerateAnswerPackage(ctx context.Context, text string, followupQA []compose.FollowupQA, sources []retrieval.SearchSource, similar []retrieval.SimilarInquiry) (*compose.AnswerPackage, error) {
	engine, name := s.engine()
	defer track("generate_answer_package", name)()
	return engine.GenerateAnswerPackage(ctx, text, followupQA, sources, similar)
}

func track(operation, engine string) func() {
	start := time.Now()
	return func() {
		metrics.PipelineDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		metrics.PipelineTotal.WithLabelValues(operation, engine, "ok").Inc()
	}
}
