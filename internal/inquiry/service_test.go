package inquiry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/pipeline"
	"github.com/inquiry-triage/backend/internal/retrieval"
	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	corpus := NewCorpus(db)
	retriever := retrieval.NewService(corpus, corpus, retrieval.Config{})
	rule := pipeline.NewRuleEngine(classify.New("総務課"), retriever, 0)
	engine := pipeline.NewSelector(rule, nil, nil)

	return NewService(db, engine, nil), db
}

func TestSubmitClassifiesOnce(t *testing.T) {
	svc, _ := newTestService(t)

	inq, err := svc.Submit(context.Background(), SubmitInput{
		Text: "近所の道路に大きな穴が開いていて危険です",
	})
	require.NoError(t, err)

	assert.Equal(t, "web", inq.Channel)
	assert.Equal(t, "ja", inq.Locale)
	assert.Equal(t, "HIGH", inq.Urgency)
	assert.Equal(t, "HIGH", inq.Importance)
	assert.Equal(t, "道路管理課", inq.DeptSuggested)
	assert.Equal(t, inq.DeptSuggested, inq.DeptActual)
	assert.Equal(t, models.StatusNew, inq.Status)
	assert.Contains(t, inq.Tags, "道路")
	assert.Contains(t, inq.AISummary, "に関するお問い合わせです。")
}

func TestSubmitNormalizesWhitespace(t *testing.T) {
	svc, _ := newTestService(t)

	inq, err := svc.Submit(context.Background(), SubmitInput{
		Text: "  ゴミの\n\n収集日を　教えてください  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "  ゴミの\n\n収集日を　教えてください  ", inq.RawText)
	assert.Equal(t, "ゴミの 収集日を 教えてください", inq.NormalizedText)
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), SubmitInput{Text: "   "})
	assert.Error(t, err)
}

func TestGetMarksRead(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "公園の遊具が壊れています"})
	require.NoError(t, err)
	assert.False(t, inq.IsRead)

	got, err := svc.Get(ctx, inq.ID, "staff-1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
}

func TestUpdateEditsOnlyStaffFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "粗大ゴミの回収について"})
	require.NoError(t, err)

	tags := []string{"粗大ごみ", "回収"}
	dept := "総務課"
	got, err := svc.Update(ctx, inq.ID, "staff-1", UpdateInput{
		Tags:       &tags,
		DeptActual: &dept,
	})
	require.NoError(t, err)

	assert.Equal(t, tags, got.Tags)
	assert.Equal(t, "総務課", got.DeptActual)
	assert.Equal(t, "環境課", got.DeptSuggested)
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "水道の水漏れ"})
	require.NoError(t, err)

	bad := "CLOSED"
	_, err = svc.Update(ctx, inq.ID, "staff-1", UpdateInput{Status: &bad})
	assert.Error(t, err)
}

func TestGenerateAnswerUpsertsUnapprovedDraft(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{
		Text: "粗大ゴミを出したい",
		FollowupQA: []models.FollowupQA{
			{Question: "量はどのくらいですか？", Answer: "タンス1台"},
		},
	})
	require.NoError(t, err)

	first, pkg, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pkg.AnswerText)
	assert.NotEmpty(t, first.DraftAnswerText)

	// Regenerating rewrites the same unapproved row.
	second, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	answers, err := db.ListAnswers(inq.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 1)

	// Submission status advanced.
	got, err := db.GetInquiry(inq.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
}

func TestGenerateAnswerCreatesNewRowAfterApproval(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "騒音に困っています"})
	require.NoError(t, err)

	first, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, first.ID, "staff-1", "")
	require.NoError(t, err)

	second, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	answers, err := db.ListAnswers(inq.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 2)
}

func TestRegenerateAfterApprovalKeepsSingleDraft(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "街灯が切れています"})
	require.NoError(t, err)

	first, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, first.ID, "staff-1", "")
	require.NoError(t, err)

	// All rows here share the same created_at second; repeated regeneration
	// must keep rewriting the one post-approval draft, never add a third row.
	second, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)
	third, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, third.ID)

	answers, err := db.ListAnswers(inq.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)

	unapproved := 0
	for _, a := range answers {
		if a.ApprovedAt == nil {
			unapproved++
		}
	}
	assert.Equal(t, 1, unapproved)
}

func TestApproveDefaultsFinalTextToDraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "保育園の入園について"})
	require.NoError(t, err)

	draft, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, draft.ID, "staff-1", "")
	require.NoError(t, err)

	assert.Equal(t, draft.DraftAnswerText, approved.FinalAnswerText)
	assert.Equal(t, "staff-1", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	// A second approval is rejected.
	_, err = svc.Approve(ctx, draft.ID, "staff-2", "別の回答")
	assert.Error(t, err)
}

func TestEditDraftRejectedAfterApproval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "年金の手続きについて"})
	require.NoError(t, err)

	draft, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)

	edited, err := svc.EditDraft(ctx, draft.ID, "staff-1", DraftInput{
		AnswerText: "職員が書き直した回答",
	})
	require.NoError(t, err)
	assert.Equal(t, "職員が書き直した回答", edited.DraftAnswerText)

	_, err = svc.Approve(ctx, draft.ID, "staff-1", "")
	require.NoError(t, err)

	_, err = svc.EditDraft(ctx, draft.ID, "staff-1", DraftInput{AnswerText: "承認後の編集"})
	assert.Error(t, err)
}

func TestSendRequiresApproval(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "介護サービスについて"})
	require.NoError(t, err)

	draft, _, err := svc.GenerateAnswer(ctx, inq.ID, "staff-1")
	require.NoError(t, err)

	_, err = svc.Send(ctx, draft.ID, "staff-1", "email")
	assert.Error(t, err)

	_, err = svc.Approve(ctx, draft.ID, "staff-1", "")
	require.NoError(t, err)

	sent, err := svc.Send(ctx, draft.ID, "staff-1", "email")
	require.NoError(t, err)
	assert.Equal(t, "email", sent.SentChannel)
	require.NotNil(t, sent.SentAt)

	// Sending closes the inquiry and cannot repeat.
	got, err := db.GetInquiry(inq.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnswered, got.Status)

	_, err = svc.Send(ctx, draft.ID, "staff-1", "email")
	assert.Error(t, err)
}

func TestSelfHelpWithoutCache(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, db.InsertKnowledgeSource(&models.KnowledgeSource{
		ID:          "src-1",
		Type:        "faq",
		Name:        "粗大ごみの申込",
		Content:     "粗大ごみは事前申込制です。",
		ContentHash: "x",
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	result, err := svc.SelfHelp(ctx, "粗大ごみ 申込")
	require.NoError(t, err)

	require.NotEmpty(t, result.Recommendations)
	assert.Equal(t, "粗大ごみの申込", result.Recommendations[0].Title)
}

func TestAuditTrail(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	inq, err := svc.Submit(ctx, SubmitInput{Text: "税金の納付について"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, inq.ID, "staff-1")
	require.NoError(t, err)

	entries, err := db.ListAuditLogs(10)
	require.NoError(t, err)

	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, ActionSubmitInquiry)
	assert.Contains(t, actions, ActionViewInquiry)
}
