package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/compose"
	"github.com/inquiry-triage/backend/internal/followup"
	"github.com/inquiry-triage/backend/internal/llm"
	"github.com/inquiry-triage/backend/internal/metrics"
	"github.com/inquiry-triage/backend/internal/pii"
	"github.com/inquiry-triage/backend/internal/retrieval"
	"github.com/inquiry-triage/backend/pkg/logger"
)

// GenerativeEngine sends PII-redacted prompts to the completion model and
// falls back to the rule engine on any transport failure or unparsable
// response. Fallback is per-invocation, never a persistent mode switch.
//
// Similar-inquiry and knowledge retrieval always delegate to the rule
// engine: lexical ranking is reliable enough that the generative cost is
// not justified for those two operations.
type GenerativeEngine struct {
	completer llm.Completer
	fallback  *RuleEngine
	maxQ      int
}

func NewGenerativeEngine(completer llm.Completer, fallback *RuleEngine, maxFollowups int) *GenerativeEngine {
	if maxFollowups <= 0 {
		maxFollowups = 3
	}
	return &GenerativeEngine{
		completer: completer,
		fallback:  fallback,
		maxQ:      maxFollowups,
	}
}

func (e *GenerativeEngine) SummarizeAndRoute(ctx context.Context, text string) (*classify.Result, error) {
	prompt := fmt.Sprintf(`以下の行政問い合わせを分析してください。JSONのみ返してください（コードブロック不要）。

問い合わせ: %s

出力形式:
{
  "summary": "80文字以内のサマリー",
  "urgency": "HIGH|MED|LOW",
  "importance": "HIGH|MED|LOW",
  "deptSuggested": "担当部署名",
  "tagSuggestions": ["タグ1", "タグ2"]
}`, pii.Redact(text))

	var result classify.Result
	if err := e.completeJSON(ctx, "summarize_and_route", prompt, &result); err != nil {
		return e.fallback.SummarizeAndRoute(ctx, text)
	}
	return &result, nil
}

func (e *GenerativeEngine) RecommendSelfHelp(ctx context.Context, text string) (*retrieval.SelfHelpResult, error) {
	// The lexical ranking supplies the candidate context; the model only
	// rewrites and reorders it.
	ruleResult, err := e.fallback.RecommendSelfHelp(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(ruleResult.Recommendations) == 0 {
		return ruleResult, nil
	}

	var contextParts []string
	for _, r := range ruleResult.Recommendations {
		contextParts = append(contextParts, fmt.Sprintf("【%s】\n%s", r.Title, r.Body))
	}

	prompt := fmt.Sprintf(`行政窓口の問い合わせに対し、自己解決できる情報を3件以内で提案してください。JSONのみ返してください。

問い合わせ: %s

参考情報:
%s

出力形式:
{
  "recommendations": [
    {"title": "タイトル", "body": "案内文（200文字以内）", "url": "URLまたは空文字"}
  ],
  "disclaimer": "注意書き"
}`, pii.Redact(text), strings.Join(contextParts, "\n\n"))

	var result retrieval.SelfHelpResult
	if err := e.completeJSON(ctx, "recommend_self_help", prompt, &result); err != nil {
		return ruleResult, nil
	}
	return &result, nil
}

func (e *GenerativeEngine) GenerateFollowupQuestions(ctx context.Context, text string) ([]followup.Question, error) {
	prompt := fmt.Sprintf(`行政への問い合わせに対し、回答に必要な追加情報を聞く質問を0〜%d件生成してください。不要なら空配列。JSONのみ返してください。

問い合わせ: %s

出力形式:
{
  "questions": [
    {"id": "q1", "text": "質問文", "type": "text|single|multi", "options": ["選択肢1"] }
  ]
}`, e.maxQ, pii.Redact(text))

	var result struct {
		Questions []followup.Question `json:"questions"`
	}
	if err := e.completeJSON(ctx, "generate_followups", prompt, &result); err != nil {
		return e.fallback.GenerateFollowupQuestions(ctx, text)
	}

	if len(result.Questions) > e.maxQ {
		result.Questions = result.Questions[:e.maxQ]
	}
	return result.Questions, nil
}

func (e *GenerativeEngine) FindSimilarInquiries(ctx context.Context, text string) ([]retrieval.SimilarInquiry, error) {
	return e.fallback.FindSimilarInquiries(ctx, text)
}

func (e *GenerativeEngine) SearchKnowledge(ctx context.Context, text string) ([]retrieval.SearchSource, error) {
	return e.fallback.SearchKnowledge(ctx, text)
}

func (e *GenerativeEngine) GenerateAnswerPackage(ctx context.Context, text string, followupQA []compose.FollowupQA, sources []retrieval.SearchSource, similar []retrieval.SimilarInquiry) (*compose.AnswerPackage, error) {
	var sourceParts []string
	for _, s := range sources {
		sourceParts = append(sourceParts, fmt.Sprintf("[%s] %s: %s", s.SourceID, s.Title, prefixRunes(s.Snippet, 300)))
	}

	var similarParts []string
	for _, c := range similar {
		if c.FinalAnswerText == "" {
			continue
		}
		if len(similarParts) >= 2 {
			break
		}
		similarParts = append(similarParts, fmt.Sprintf("類似事例(スコア%v): %s\n過去回答: %s", c.Score, c.Summary, c.FinalAnswerText))
	}

	var qaParts []string
	for _, qa := range followupQA {
		qaParts = append(qaParts, fmt.Sprintf("Q: %s\nA: %s", qa.Question, qa.Answer))
	}

	prompt := fmt.Sprintf(`あなたは行政職員のAIアシスタントです。以下の問い合わせに対する回答案を作成してください。JSONのみ返してください。

【問い合わせ】
%s

【追加情報】
%s

【参照ソース】
%s

【類似過去事例】
%s

出力形式:
{
  "policy": {
    "conclusion": "回答方針",
    "reasoning": "根拠",
    "missingInfo": ["不足情報"],
    "cautions": ["注意点"],
    "nextActions": ["次のアクション"]
  },
  "answerText": "住民への回答文（です・ます調）",
  "supplementalText": "補足情報",
  "citations": [{"claim": "根拠となる主張", "sourceId": "ソースID"}]
}`,
		pii.Redact(text),
		orNone(strings.Join(qaParts, "\n")),
		orNone(strings.Join(sourceParts, "\n")),
		orNone(strings.Join(similarParts, "\n")),
	)

	var result compose.AnswerPackage
	if err := e.completeJSON(ctx, "generate_answer_package", prompt, &result); err != nil {
		return e.fallback.GenerateAnswerPackage(ctx, text, followupQA, sources, similar)
	}
	return &result, nil
}

// completeJSON runs one completion and decodes its body. Both transport
// errors and malformed output count as failures; the caller substitutes the
// deterministic result and the citizen never sees the difference.
func (e *GenerativeEngine) completeJSON(ctx context.Context, operation, prompt string, out interface{}) error {
	raw, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		metrics.EngineFallbacks.WithLabelValues(operation, "transport").Inc()
		logger.Warn("Generative call failed, using rule engine result",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return err
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), out); err != nil {
		metrics.EngineFallbacks.WithLabelValues(operation, "unparsable").Inc()
		logger.Warn("Generative response unparsable, using rule engine result",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return fmt.Errorf("failed to decode completion: %w", err)
	}

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "（なし）"
	}
	return s
}

func prefixRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
