// Package knowledge manages the answer-citation corpus: manual documents,
// FAQ entries, and URL-backed sources kept fresh by the sync loop.
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/cache/redis"
	"github.com/inquiry-triage/backend/internal/metrics"
	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/internal/storage/sqlite"
	"github.com/inquiry-triage/backend/pkg/logger"
	"github.com/inquiry-triage/backend/pkg/utils"
)

// Source types accepted by the corpus.
const (
	TypeDocument = "document"
	TypeFAQ      = "faq"
	TypeURL      = "url"
)

// Audit actions recorded by the service.
const (
	ActionCreateSource = "CREATE_KB"
	ActionUpdateSource = "UPDATE_KB"
	ActionDeleteSource = "DELETE_KB"
	ActionSyncSources  = "SYNC_KB"
)

type Service struct {
	db      *sqlite.Client
	cache   *redis.Client
	fetcher *Fetcher
}

func NewService(db *sqlite.Client, cache *redis.Client, fetcher *Fetcher) *Service {
	return &Service{
		db:      db,
		cache:   cache,
		fetcher: fetcher,
	}
}

type SourceInput struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	URI     string `json:"uri"`
	Content string `json:"content"`
}

func (in SourceInput) validate() error {
	switch in.Type {
	case TypeDocument, TypeFAQ, TypeURL:
	default:
		return fmt.Errorf("unknown source type %q", in.Type)
	}
	if in.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if in.Type == TypeURL && in.URI == "" {
		return fmt.Errorf("url sources require a uri")
	}
	return nil
}

// Create registers a new source. URL sources are fetched immediately so the
// corpus never holds an empty entry waiting for the first sync.
func (s *Service) Create(ctx context.Context, actorID string, input SourceInput) (*models.KnowledgeSource, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	content := input.Content
	if input.Type == TypeURL {
		_, fetched, err := s.fetcher.Fetch(ctx, input.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch source content: %w", err)
		}
		content = fetched
	}

	now := time.Now()
	ks := &models.KnowledgeSource{
		ID:          uuid.New().String(),
		Type:        input.Type,
		Name:        input.Name,
		URI:         input.URI,
		Content:     content,
		ContentHash: utils.HashContent(content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.InsertKnowledgeSource(ks); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	s.audit(actorID, ActionCreateSource, ks.ID, map[string]interface{}{"type": ks.Type})
	logger.Info("Knowledge source created",
		zap.String("source_id", ks.ID),
		zap.String("type", ks.Type),
	)
	return ks, nil
}

func (s *Service) Update(ctx context.Context, actorID, id string, input SourceInput) (*models.KnowledgeSource, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	ks, err := s.db.GetKnowledgeSource(id)
	if err != nil {
		return nil, err
	}

	ks.Type = input.Type
	ks.Name = input.Name
	ks.URI = input.URI
	ks.Content = input.Content
	ks.ContentHash = utils.HashContent(input.Content)
	ks.UpdatedAt = time.Now()

	if err := s.db.UpdateKnowledgeSource(ks); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	s.audit(actorID, ActionUpdateSource, ks.ID, nil)
	return ks, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if err := s.db.DeleteKnowledgeSource(id); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	s.audit(actorID, ActionDeleteSource, id, nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.KnowledgeSource, error) {
	return s.db.GetKnowledgeSource(id)
}

func (s *Service) List(ctx context.Context) ([]models.KnowledgeSource, error) {
	return s.db.ListKnowledgeSources()
}

type SyncReport struct {
	Synced  int `json:"synced"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Sync walks the corpus, refetches URL sources, and rewrites any entry whose
// stored hash no longer matches its content. Non-URL sources only change
// through Update, so their hash check is a consistency repair rather than a
// refresh.
func (s *Service) Sync(ctx context.Context, actorID string) (*SyncReport, error) {
	sources, err := s.db.ListKnowledgeSources()
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for i := range sources {
		ks := &sources[i]
		report.Synced++

		content := ks.Content
		if ks.Type == TypeURL {
			_, fetched, err := s.fetcher.Fetch(ctx, ks.URI)
			if err != nil {
				report.Failed++
				metrics.KnowledgeSourcesSynced.WithLabelValues("failed").Inc()
				logger.Warn("Knowledge source fetch failed during sync",
					zap.String("source_id", ks.ID),
					zap.Error(err),
				)
				continue
			}
			content = fetched
		}

		now := time.Now()
		newHash := utils.HashContent(content)
		if newHash == ks.ContentHash {
			ks.LastSyncedAt = &now
			if err := s.db.UpdateKnowledgeSource(ks); err != nil {
				report.Failed++
				metrics.KnowledgeSourcesSynced.WithLabelValues("failed").Inc()
				continue
			}
			metrics.KnowledgeSourcesSynced.WithLabelValues("unchanged").Inc()
			continue
		}

		ks.Content = content
		ks.ContentHash = newHash
		ks.LastSyncedAt = &now
		ks.UpdatedAt = now
		if err := s.db.UpdateKnowledgeSource(ks); err != nil {
			report.Failed++
			metrics.KnowledgeSourcesSynced.WithLabelValues("failed").Inc()
			continue
		}

		report.Updated++
		metrics.KnowledgeSourcesSynced.WithLabelValues("updated").Inc()
		logger.Info("Knowledge source content drifted, rewritten",
			zap.String("source_id", ks.ID),
		)
	}

	if report.Updated > 0 {
		s.invalidateCache(ctx)
	}

	s.audit(actorID, ActionSyncSources, "", map[string]interface{}{
		"synced":  report.Synced,
		"updated": report.Updated,
		"failed":  report.Failed,
	})

	return report, nil
}

func (s *Service) invalidateCache(ctx context.Context) {
	if err := s.cache.InvalidateSelfHelp(ctx); err != nil {
		logger.Warn("Failed to invalidate self-help cache", zap.Error(err))
	}
}

func (s *Service) audit(actorID, action, targetID string, meta map[string]interface{}) {
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		TargetType: "knowledge_source",
		TargetID:   targetID,
		Meta:       meta,
		CreatedAt:  time.Now(),
	}
	if err := s.db.InsertAuditLog(entry); err != nil {
		logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
