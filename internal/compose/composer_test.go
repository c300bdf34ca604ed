package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/retrieval"
)

func newTestComposer() *Composer {
	return New(classify.New("総務課"))
}

func TestComposeWithSources(t *testing.T) {
	c := newTestComposer()

	sources := []retrieval.SearchSource{
		{SourceID: "s1", Title: "粗大ごみの申込方法", URI: "https://example.jp/sodai", Snippet: "粗大ごみは事前申込制です。"},
		{SourceID: "s2", Title: "収集日カレンダー", Snippet: "地区ごとの収集日一覧。"},
	}
	similar := []retrieval.SimilarInquiry{
		{InquiryID: "i1", Score: 0.8, Summary: "粗大ごみの出し方", FinalAnswerText: "事前に電話でお申し込みください。"},
	}

	pkg := c.Compose("粗大ゴミを出したい", nil, sources, similar)

	assert.Equal(t, "環境課として対応し、関連情報を提供します。", pkg.Policy.Conclusion)
	assert.Equal(t, "粗大ごみの申込方法、収集日カレンダーの情報を参照しました。", pkg.Policy.Reasoning)
	assert.Contains(t, pkg.Policy.NextActions, "担当部署（環境課）へ連絡")

	assert.Contains(t, pkg.AnswerText, "お問い合わせありがとうございます。")
	assert.Contains(t, pkg.AnswerText, "【ご質問の内容】\n粗大ゴミを出したい")
	assert.Contains(t, pkg.AnswerText, "【ご案内】\n■ 粗大ごみの申込方法")
	assert.Contains(t, pkg.AnswerText, "【参考：過去の類似回答】\n事前に電話でお申し込みください。")
	assert.Contains(t, pkg.AnswerText, "ご不明な点がございましたら、お気軽にお問い合わせください。")

	assert.Equal(t, "【参照情報】\n・粗大ごみの申込方法（https://example.jp/sodai）\n・収集日カレンダー", pkg.SupplementalText)

	require.Len(t, pkg.Citations, 2)
	assert.Equal(t, Citation{Claim: "粗大ごみの申込方法に基づく情報", SourceID: "s1"}, pkg.Citations[0])
}

func TestComposeWithoutSources(t *testing.T) {
	c := newTestComposer()

	pkg := c.Compose("公園の利用時間について", nil, nil, nil)

	assert.Contains(t, pkg.AnswerText, "担当窓口（公園管理課）より詳しいご案内をいたします。")
	assert.NotContains(t, pkg.AnswerText, "【ご案内】")
	assert.Empty(t, pkg.SupplementalText)
	assert.Empty(t, pkg.Citations)
	assert.Equal(t, "類似事例と一般的な行政手続きの知識に基づいています。", pkg.Policy.Reasoning)
}

func TestComposeUrgentCautions(t *testing.T) {
	c := newTestComposer()

	pkg := c.Compose("道路が陥没していて危険です", nil, nil, nil)

	assert.Equal(t, []string{
		"緊急案件として優先対応が必要です。",
		"現地確認が必要な場合があります。",
	}, pkg.Policy.Cautions)
}

func TestComposeMissingInfoFromUnansweredFollowups(t *testing.T) {
	c := newTestComposer()

	qa := []FollowupQA{
		{Question: "発生場所を教えてください", Answer: "駅前の交差点"},
		{Question: "発生時刻を教えてください", Answer: ""},
	}

	pkg := c.Compose("騒音に困っています", qa, nil, nil)

	assert.Equal(t, []string{"発生時刻を教えてください"}, pkg.Policy.MissingInfo)
}

func TestComposeTruncatesLongRestatement(t *testing.T) {
	c := newTestComposer()

	long := strings.Repeat("あ", 150)
	pkg := c.Compose(long, nil, nil, nil)

	assert.Contains(t, pkg.AnswerText, strings.Repeat("あ", 100)+"…")
	assert.NotContains(t, pkg.AnswerText, strings.Repeat("あ", 101))
}

func TestComposeRendersAtMostThreeSources(t *testing.T) {
	c := newTestComposer()

	sources := []retrieval.SearchSource{
		{SourceID: "s1", Title: "案内1", Snippet: "本文1"},
		{SourceID: "s2", Title: "案内2", Snippet: "本文2"},
		{SourceID: "s3", Title: "案内3", Snippet: "本文3"},
		{SourceID: "s4", Title: "案内4", Snippet: "本文4"},
	}

	pkg := c.Compose("手続きについて", nil, sources, nil)

	assert.Contains(t, pkg.AnswerText, "■ 案内3")
	assert.NotContains(t, pkg.AnswerText, "■ 案内4")
	// Supplemental references and citations keep all sources.
	assert.Contains(t, pkg.SupplementalText, "・案内4")
	assert.Len(t, pkg.Citations, 4)
}

func TestComposeIsDeterministic(t *testing.T) {
	c := newTestComposer()

	first := c.Compose("水道の水漏れについて", nil, nil, nil)
	second := c.Compose("水道の水漏れについて", nil, nil, nil)

	assert.Equal(t, first, second)
}
