// Package pipeline wires the text-analysis stages behind a single Engine
// contract and selects, per call, between the deterministic rule engine and
// the generative engine.
package pipeline

import (
	"context"

	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/compose"
	"github.com/inquiry-triage/backend/internal/followup"
	"github.com/inquiry-triage/backend/internal/retrieval"
)

// Engine exposes the six pipeline operations. Implementations are pure given
// their inputs and the corpus snapshots they read.
type Engine interface {
	SummarizeAndRoute(ctx context.Context, text string) (*classify.Result, error)
	RecommendSelfHelp(ctx context.Context, text string) (*retrieval.SelfHelpResult, error)
	GenerateFollowupQuestions(ctx context.Context, text string) ([]followup.Question, error)
	FindSimilarInquiries(ctx context.Context, text string) ([]retrieval.SimilarInquiry, error)
	SearchKnowledge(ctx context.Context, text string) ([]retrieval.SearchSource, error)
	GenerateAnswerPackage(ctx context.Context, text string, followupQA []compose.FollowupQA, sources []retrieval.SearchSource, similar []retrieval.SimilarInquiry) (*compose.AnswerPackage, error)
}
