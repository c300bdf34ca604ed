// Package retrieval ranks corpora against inquiry text with lexical
// containment scoring. One ranking core serves three surfaces: self-help
// recommendations, answer citations, and the similar-case panel.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/lexical"
	"github.com/inquiry-triage/backend/pkg/logger"
)

// KnowledgeItem is a read snapshot of one knowledge source.
type KnowledgeItem struct {
	ID      string
	Type    string
	Name    string
	URI     string
	Content string
}

// HistoryItem is a read snapshot of a past inquiry that has a non-empty
// final answer.
type HistoryItem struct {
	ID              string
	RawText         string
	NormalizedText  string
	Summary         string
	FinalAnswerText string
}

// KnowledgeReader lists the knowledge corpus.
type KnowledgeReader interface {
	ListKnowledgeSources(ctx context.Context) ([]KnowledgeItem, error)
}

// InquiryReader lists answered historical inquiries, newest first.
type InquiryReader interface {
	ListInquiriesWithFinalAnswers(ctx context.Context, limit int) ([]HistoryItem, error)
}

type SearchSource struct {
	SourceID string  `json:"sourceId"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	URI      string  `json:"uri"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

type SimilarInquiry struct {
	InquiryID       string  `json:"inquiryId"`
	Score           float64 `json:"score"`
	Summary         string  `json:"summary"`
	FinalAnswerText string  `json:"finalAnswerText,omitempty"`
}

type Recommendation struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

type SelfHelpResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Disclaimer      string           `json:"disclaimer"`
}

const (
	sourceSnippetLen  = 200
	selfHelpBodyLen   = 150
	summaryPreviewLen = 80
	truncationMarker  = "…"

	disclaimer = "この情報はAIが自動生成したものです。内容に不正確な部分が含まれる可能性があります。最新情報は各担当窓口にご確認ください。"
)

// Substituted when the knowledge corpus yields nothing, so the citizen never
// sees an empty recommendation panel.
var fallbackRecommendation = Recommendation{
	Title: "市のホームページをご確認ください",
	Body:  "各種手続きや問い合わせ情報は市の公式ホームページに掲載されています。",
	URL:   "https://www.city.example.jp",
}

type Config struct {
	MaxSources   int
	MaxSelfHelp  int
	MaxSimilar   int
	HistoryLimit int
}

func (c *Config) applyDefaults() {
	if c.MaxSources == 0 {
		c.MaxSources = 5
	}
	if c.MaxSelfHelp == 0 {
		c.MaxSelfHelp = 3
	}
	if c.MaxSimilar == 0 {
		c.MaxSimilar = 5
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 50
	}
}

type Service struct {
	knowledge KnowledgeReader
	history   InquiryReader
	cfg       Config
}

func NewService(knowledge KnowledgeReader, history InquiryReader, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		knowledge: knowledge,
		history:   history,
		cfg:       cfg,
	}
}

// SearchKnowledge ranks knowledge sources against the inquiry text for
// answer citations. An empty corpus is not an error.
func (s *Service) SearchKnowledge(ctx context.Context, text string) ([]SearchSource, error) {
	items, err := s.knowledge.ListKnowledgeSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge sources: %w", err)
	}

	tokens := lexical.Tokenize(text)

	ranked := rank(items, tokens, s.cfg.MaxSources, func(item KnowledgeItem) string {
		return item.Name + " " + item.Content
	})

	sources := make([]SearchSource, 0, len(ranked))
	for _, r := range ranked {
		sources = append(sources, SearchSource{
			SourceID: r.item.ID,
			Type:     r.item.Type,
			Title:    r.item.Name,
			URI:      r.item.URI,
			Snippet:  truncate(r.item.Content, sourceSnippetLen),
			Score:    r.score,
		})
	}

	logger.Debug("Knowledge search completed",
		zap.Int("corpus_size", len(items)),
		zap.Int("results", len(sources)),
	)

	return sources, nil
}

// RecommendSelfHelp ranks knowledge sources for the citizen-facing panel
// shown before staff involvement.
func (s *Service) RecommendSelfHelp(ctx context.Context, text string) (*SelfHelpResult, error) {
	items, err := s.knowledge.ListKnowledgeSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge sources: %w", err)
	}

	tokens := lexical.Tokenize(text)

	ranked := rank(items, tokens, s.cfg.MaxSelfHelp, func(item KnowledgeItem) string {
		return item.Name + " " + item.Content
	})

	recommendations := make([]Recommendation, 0, len(ranked))
	for _, r := range ranked {
		recommendations = append(recommendations, Recommendation{
			Title: r.item.Name,
			Body:  truncate(r.item.Content, selfHelpBodyLen),
			URL:   r.item.URI,
		})
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, fallbackRecommendation)
	}

	return &SelfHelpResult{
		Recommendations: recommendations,
		Disclaimer:      disclaimer,
	}, nil
}

// FindSimilar ranks answered historical inquiries against the inquiry text.
func (s *Service) FindSimilar(ctx context.Context, text string) ([]SimilarInquiry, error) {
	items, err := s.history.ListInquiriesWithFinalAnswers(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list answered inquiries: %w", err)
	}

	tokens := lexical.Tokenize(text)

	ranked := rank(items, tokens, s.cfg.MaxSimilar, func(item HistoryItem) string {
		return item.NormalizedText + " " + item.Summary
	})

	similar := make([]SimilarInquiry, 0, len(ranked))
	for _, r := range ranked {
		summary := r.item.Summary
		if summary == "" {
			summary = prefix(r.item.RawText, summaryPreviewLen)
		}
		similar = append(similar, SimilarInquiry{
			InquiryID:       r.item.ID,
			Score:           r.score,
			Summary:         summary,
			FinalAnswerText: r.item.FinalAnswerText,
		})
	}

	logger.Debug("Similar inquiry search completed",
		zap.Int("corpus_size", len(items)),
		zap.Int("results", len(similar)),
	)

	return similar, nil
}

type scored[T any] struct {
	item  T
	score float64
}

// rank scores every corpus item, drops zero scores, and returns the top
// results in descending score order. Ties keep insertion order.
func rank[T any](items []T, tokens []string, limit int, target func(T) string) []scored[T] {
	results := make([]scored[T], 0, len(items))
	for _, item := range items {
		score := lexical.ScoreTokens(tokens, target(item))
		if score <= 0 {
			continue
		}
		results = append(results, scored[T]{item: item, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}

func prefix(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
