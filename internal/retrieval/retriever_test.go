package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKnowledge struct {
	items []KnowledgeItem
	err   error
}

func (f *fakeKnowledge) ListKnowledgeSources(ctx context.Context) ([]KnowledgeItem, error) {
	return f.items, f.err
}

type fakeHistory struct {
	items []HistoryItem
	err   error
}

func (f *fakeHistory) ListInquiriesWithFinalAnswers(ctx context.Context, limit int) ([]HistoryItem, error) {
	if len(f.items) > limit {
		return f.items[:limit], f.err
	}
	return f.items, f.err
}

func newTestService(k *fakeKnowledge, h *fakeHistory) *Service {
	return NewService(k, h, Config{})
}

func TestSearchKnowledgeRanking(t *testing.T) {
	knowledge := &fakeKnowledge{items: []KnowledgeItem{
		{ID: "low", Name: "公園の利用案内", Content: "公園の開園時間について"},
		{ID: "high", Name: "粗大ごみの申込", Content: "粗大ごみの収集は事前申込が必要です"},
		{ID: "zero", Name: "税金の納付", Content: "市税の納付方法"},
	}}
	svc := newTestService(knowledge, &fakeHistory{})

	sources, err := svc.SearchKnowledge(context.Background(), "粗大ごみ 収集 申込")
	require.NoError(t, err)

	// The zero-score item is excluded and the best match leads.
	require.Len(t, sources, 1)
	assert.Equal(t, "high", sources[0].SourceID)
	assert.Greater(t, sources[0].Score, 0.0)
}

func TestSearchKnowledgeOrdersByScore(t *testing.T) {
	knowledge := &fakeKnowledge{items: []KnowledgeItem{
		{ID: "partial", Name: "水道の案内", Content: "水道料金について"},
		{ID: "full", Name: "断水情報", Content: "水道料金と断水予定のお知らせ"},
	}}
	svc := newTestService(knowledge, &fakeHistory{})

	sources, err := svc.SearchKnowledge(context.Background(), "水道料金 断水予定")
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, "full", sources[0].SourceID)
	assert.Equal(t, "partial", sources[1].SourceID)
	assert.Greater(t, sources[0].Score, sources[1].Score)
}

func TestSearchKnowledgeTiesKeepCorpusOrder(t *testing.T) {
	knowledge := &fakeKnowledge{items: []KnowledgeItem{
		{ID: "first", Name: "収集日一覧", Content: "可燃ごみの収集日"},
		{ID: "second", Name: "収集日カレンダー", Content: "資源ごみの収集日"},
	}}
	svc := newTestService(knowledge, &fakeHistory{})

	sources, err := svc.SearchKnowledge(context.Background(), "収集日")
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, "first", sources[0].SourceID)
	assert.Equal(t, "second", sources[1].SourceID)
}

func TestSearchKnowledgeSnippetTruncation(t *testing.T) {
	long := strings.Repeat("公園", 150)
	knowledge := &fakeKnowledge{items: []KnowledgeItem{
		{ID: "long", Name: "公園ガイド", Content: long},
	}}
	svc := newTestService(knowledge, &fakeHistory{})

	sources, err := svc.SearchKnowledge(context.Background(), "公園ガイド")
	require.NoError(t, err)

	require.Len(t, sources, 1)
	snippet := []rune(sources[0].Snippet)
	assert.Len(t, snippet, sourceSnippetLen+1)
	assert.Equal(t, "…", string(snippet[len(snippet)-1]))
}

func TestSearchKnowledgeLimit(t *testing.T) {
	var items []KnowledgeItem
	for i := 0; i < 10; i++ {
		items = append(items, KnowledgeItem{
			ID:      fmt.Sprintf("s%d", i),
			Name:    "ごみ分別ガイド",
			Content: "ごみ分別について",
		})
	}
	svc := newTestService(&fakeKnowledge{items: items}, &fakeHistory{})

	sources, err := svc.SearchKnowledge(context.Background(), "ごみ分別")
	require.NoError(t, err)
	assert.Len(t, sources, 5)
}

func TestRecommendSelfHelpFallbackOnEmptyCorpus(t *testing.T) {
	svc := newTestService(&fakeKnowledge{}, &fakeHistory{})

	result, err := svc.RecommendSelfHelp(context.Background(), "ゴミの出し方")
	require.NoError(t, err)

	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, fallbackRecommendation.Title, result.Recommendations[0].Title)
	assert.NotEmpty(t, result.Disclaimer)
}

func TestRecommendSelfHelpLimit(t *testing.T) {
	var items []KnowledgeItem
	for i := 0; i < 6; i++ {
		items = append(items, KnowledgeItem{
			ID:      fmt.Sprintf("s%d", i),
			Name:    "粗大ごみ申込",
			Content: "粗大ごみの申込方法",
		})
	}
	svc := newTestService(&fakeKnowledge{items: items}, &fakeHistory{})

	result, err := svc.RecommendSelfHelp(context.Background(), "粗大ごみ申込")
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, 3)
}

func TestFindSimilar(t *testing.T) {
	history := &fakeHistory{items: []HistoryItem{
		{ID: "a", NormalizedText: "道路の陥没について", Summary: "道路の陥没", FinalAnswerText: "補修班を手配しました。"},
		{ID: "b", NormalizedText: "公園の遊具について", Summary: "遊具の破損"},
	}}
	svc := newTestService(&fakeKnowledge{}, history)

	similar, err := svc.FindSimilar(context.Background(), "道路の陥没 発見")
	require.NoError(t, err)

	require.Len(t, similar, 1)
	assert.Equal(t, "a", similar[0].InquiryID)
	assert.Equal(t, "道路の陥没", similar[0].Summary)
	assert.Equal(t, "補修班を手配しました。", similar[0].FinalAnswerText)
}

func TestFindSimilarSummaryFallsBackToRawText(t *testing.T) {
	history := &fakeHistory{items: []HistoryItem{
		{ID: "a", RawText: "水道の水漏れがひどいです", NormalizedText: "水道の水漏れがひどいです"},
	}}
	svc := newTestService(&fakeKnowledge{}, history)

	similar, err := svc.FindSimilar(context.Background(), "水道の水漏れ")
	require.NoError(t, err)

	require.Len(t, similar, 1)
	assert.Equal(t, "水道の水漏れがひどいです", similar[0].Summary)
}

func TestReaderErrorsPropagate(t *testing.T) {
	svc := newTestService(
		&fakeKnowledge{err: fmt.Errorf("corpus unavailable")},
		&fakeHistory{err: fmt.Errorf("history unavailable")},
	)

	_, err := svc.SearchKnowledge(context.Background(), "ごみ")
	assert.Error(t, err)

	_, err = svc.FindSimilar(context.Background(), "ごみ")
	assert.Error(t, err)
}
