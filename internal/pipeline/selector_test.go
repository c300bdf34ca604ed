package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquiry-triage/backend/internal/classify"
)

func TestSelectorDefaultsToRuleEngine(t *testing.T) {
	rule := newTestRuleEngine()
	selector := NewSelector(rule, nil, nil)

	result, err := selector.SummarizeAndRoute(context.Background(), "水道の水漏れがあります")
	require.NoError(t, err)
	assert.Equal(t, "上下水道課", result.DeptSuggested)
}

func TestSelectorUsesGenerativeWhenModeOn(t *testing.T) {
	rule := newTestRuleEngine()
	completer := &stubCompleter{response: `{
		"summary": "生成エンジンの要約",
		"urgency": "LOW",
		"importance": "LOW",
		"deptSuggested": "環境課",
		"tagSuggestions": []
	}`}
	generative := NewGenerativeEngine(completer, rule, 0)
	selector := NewSelector(rule, generative, func() bool { return true })

	result, err := selector.SummarizeAndRoute(context.Background(), "ゴミについて")
	require.NoError(t, err)
	assert.Equal(t, "生成エンジンの要約", result.Summary)
	assert.Equal(t, 1, completer.calls)
}

func TestSelectorConsultsModePerCall(t *testing.T) {
	rule := newTestRuleEngine()
	completer := &stubCompleter{response: `{
		"summary": "生成",
		"urgency": "MED",
		"importance": "MED",
		"deptSuggested": "総務課",
		"tagSuggestions": []
	}`}
	generative := NewGenerativeEngine(completer, rule, 0)

	mode := false
	selector := NewSelector(rule, generative, func() bool { return mode })

	ctx := context.Background()

	_, err := selector.SummarizeAndRoute(ctx, "手数料について")
	require.NoError(t, err)
	assert.Equal(t, 0, completer.calls)

	mode = true
	_, err = selector.SummarizeAndRoute(ctx, "手数料について")
	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)

	mode = false
	_, err = selector.SummarizeAndRoute(ctx, "手数料について")
	require.NoError(t, err)
	assert.Equal(t, 1, completer.calls)
}

func TestSelectorModeOnWithoutGenerativeUsesRule(t *testing.T) {
	rule := newTestRuleEngine()
	selector := NewSelector(rule, nil, func() bool { return true })

	result, err := selector.SummarizeAndRoute(context.Background(), "教えてください")
	require.NoError(t, err)
	assert.Equal(t, classify.LevelLow, result.Urgency)
}

func TestSelectorImplementsAllOperations(t *testing.T) {
	rule := newTestRuleEngine()
	selector := NewSelector(rule, nil, nil)
	ctx := context.Background()

	_, err := selector.RecommendSelfHelp(ctx, "ゴミの出し方")
	assert.NoError(t, err)

	_, err = selector.GenerateFollowupQuestions(ctx, "ゴミの出し方")
	assert.NoError(t, err)

	_, err = selector.FindSimilarInquiries(ctx, "ゴミの出し方")
	assert.NoError(t, err)

	_, err = selector.SearchKnowledge(ctx, "ゴミの出し方")
	assert.NoError(t, err)

	pkg, err := selector.GenerateAnswerPackage(ctx, "ゴミの出し方", nil, nil, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, pkg.AnswerText)
}
