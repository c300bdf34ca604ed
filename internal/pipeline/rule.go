package pipeline

import (
	"context"

	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/compose"
	"github.com/inquiry-triage/backend/internal/followup"
	"github.com/inquiry-triage/backend/internal/retrieval"
)

// RuleEngine is the deterministic, always-available implementation. Its
// classification, follow-up, and composition stages are total; only the
// corpus reads can fail.
type RuleEngine struct {
	classifier   *classify.Classifier
	retriever    *retrieval.Service
	composer     *compose.Composer
	maxFollowups int
}

func NewRuleEngine(classifier *classify.Classifier, retriever *retrieval.Service, maxFollowups int) *RuleEngine {
	return &RuleEngine{
		classifier:   classifier,
		retriever:    retriever,
		composer:     compose.New(classifier),
		maxFollowups: maxFollowups,
	}
}

func (e *RuleEngine) SummarizeAndRoute(ctx context.Context, text string) (*classify.Result, error) {
	return e.classifier.Classify(text), nil
}

func (e *RuleEngine) RecommendSelfHelp(ctx context.Context, text string) (*retrieval.SelfHelpResult, error) {
	return e.retriever.RecommendSelfHelp(ctx, text)
}

func (e *RuleEngine) GenerateFollowupQuestions(ctx context.Context, text string) ([]followup.Question, error) {
	return followup.Generate(text, e.maxFollowups), nil
}

func (e *RuleEngine) FindSimilarInquiries(ctx context.Context, text string) ([]retrieval.SimilarInquiry, error) {
	return e.retriever.FindSimilar(ctx, text)
}

func (e *RuleEngine) SearchKnowledge(ctx context.Context, text string) ([]retrieval.SearchSource, error) {
	return e.retriever.SearchKnowledge(ctx, text)
}

func (e *RuleEngine) GenerateAnswerPackage(ctx context.Context, text string, followupQA []compose.FollowupQA, sources []retrieval.SearchSource, similar []retrieval.SimilarInquiry) (*compose.AnswerPackage, error) {
	return e.composer.Compose(text, followupQA, sources, similar), nil
}
