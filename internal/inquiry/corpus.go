package inquiry

import (
	"context"

	"github.com/inquiry-triage/backend/internal/retrieval"
	"github.com/inquiry-triage/backend/internal/storage/sqlite"
)

// Corpus adapts the sqlite store to the retrieval reader contracts.
type Corpus struct {
	db *sqlite.Client
}

func NewCorpus(db *sqlite.Client) *Corpus {
	return &Corpus{db: db}
}

var (
	_ retrieval.KnowledgeReader = (*Corpus)(nil)
	_ retrieval.InquiryReader   = (*Corpus)(nil)
)

func (c *Corpus) ListKnowledgeSources(ctx context.Context) ([]retrieval.KnowledgeItem, error) {
	sources, err := c.db.ListKnowledgeSources()
	if err != nil {
		return nil, err
	}

	items := make([]retrieval.KnowledgeItem, 0, len(sources))
	for _, s := range sources {
		items = append(items, retrieval.KnowledgeItem{
			ID:      s.ID,
			Type:    s.Type,
			Name:    s.Name,
			URI:     s.URI,
			Content: s.Content,
		})
	}
	return items, nil
}

func (c *Corpus) ListInquiriesWithFinalAnswers(ctx context.Context, limit int) ([]retrieval.HistoryItem, error) {
	answered, err := c.db.ListAnsweredInquiries(limit)
	if err != nil {
		return nil, err
	}

	items := make([]retrieval.HistoryItem, 0, len(answered))
	for _, a := range answered {
		items = append(items, retrieval.HistoryItem{
			ID:              a.ID,
			RawText:         a.RawText,
			NormalizedText:  a.NormalizedText,
			Summary:         a.AISummary,
			FinalAnswerText: a.FinalAnswerText,
		})
	}
	return items, nil
}
