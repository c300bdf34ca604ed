package knowledge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquiry-triage/backend/internal/storage/sqlite"
	"github.com/inquiry-triage/backend/pkg/utils"
)

func newTestService(t *testing.T) (*Service, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	return NewService(db, nil, nil), db
}

func TestCreateHashesContent(t *testing.T) {
	svc, _ := newTestService(t)

	ks, err := svc.Create(context.Background(), "staff-1", SourceInput{
		Type:    TypeFAQ,
		Name:    "粗大ごみの申込",
		Content: "粗大ごみは事前申込制です。",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ks.ID)
	assert.Equal(t, utils.HashContent("粗大ごみは事前申込制です。"), ks.ContentHash)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "staff-1", SourceInput{Type: "unknown", Name: "x"})
	assert.Error(t, err)

	_, err = svc.Create(ctx, "staff-1", SourceInput{Type: TypeFAQ})
	assert.Error(t, err)

	_, err = svc.Create(ctx, "staff-1", SourceInput{Type: TypeURL, Name: "サイト"})
	assert.Error(t, err)
}

func TestUpdateRecomputesHash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ks, err := svc.Create(ctx, "staff-1", SourceInput{
		Type:    TypeDocument,
		Name:    "収集日一覧",
		Content: "旧内容",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "staff-1", ks.ID, SourceInput{
		Type:    TypeDocument,
		Name:    "収集日一覧",
		Content: "新内容",
	})
	require.NoError(t, err)

	assert.Equal(t, utils.HashContent("新内容"), updated.ContentHash)
	assert.NotEqual(t, ks.ContentHash, updated.ContentHash)
}

func TestSyncUnchangedSourceOnlyStampsTimestamp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ks, err := svc.Create(ctx, "staff-1", SourceInput{
		Type:    TypeFAQ,
		Name:    "水道の案内",
		Content: "水道料金について",
	})
	require.NoError(t, err)
	assert.Nil(t, ks.LastSyncedAt)

	report, err := svc.Sync(ctx, "staff-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Failed)

	got, err := svc.Get(ctx, ks.ID)
	require.NoError(t, err)
	assert.Equal(t, ks.ContentHash, got.ContentHash)
	assert.NotNil(t, got.LastSyncedAt)
}

func TestSyncEmptyCorpus(t *testing.T) {
	svc, _ := newTestService(t)

	report, err := svc.Sync(context.Background(), "staff-1")
	require.NoError(t, err)
	assert.Equal(t, &SyncReport{}, report)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ks, err := svc.Create(ctx, "staff-1", SourceInput{
		Type:    TypeFAQ,
		Name:    "削除対象",
		Content: "本文",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "staff-1", ks.ID))

	sources, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestAuditTrail(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	ks, err := svc.Create(ctx, "staff-1", SourceInput{
		Type:    TypeFAQ,
		Name:    "監査対象",
		Content: "本文",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "staff-1", ks.ID))

	entries, err := db.ListAuditLogs(10)
	require.NoError(t, err)

	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, ActionCreateSource)
	assert.Contains(t, actions, ActionDeleteSource)
}
