package handlers

import (
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/pkg/logger"
)

// TriageStream pushes newly submitted inquiries to connected staff consoles
// so the triage queue updates without polling.
type TriageStream struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]chan streamEvent
}

type streamEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewTriageStream() *TriageStream {
	return &TriageStream{
		conns: make(map[*websocket.Conn]chan streamEvent),
	}
}

// NotifyInquiry fans a new inquiry out to every connected console. Slow
// consumers are skipped rather than blocking submission.
func (s *TriageStream) NotifyInquiry(inq *models.Inquiry) {
	if s == nil {
		return
	}

	event := streamEvent{
		Type: "inquiry_created",
		Payload: map[string]interface{}{
			"id":            inq.ID,
			"channel":       inq.Channel,
			"aiSummary":     inq.AISummary,
			"urgency":       inq.Urgency,
			"importance":    inq.Importance,
			"deptSuggested": inq.DeptSuggested,
			"status":        inq.Status,
			"createdAt":     inq.CreatedAt,
		},
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn, ch := range s.conns {
		select {
		case ch <- event:
		default:
			logger.Warn("Dropping stream event for slow consumer",
				zap.String("remote", conn.RemoteAddr().String()),
			)
		}
	}
}

// HandleConnection serves one staff console. The write loop runs here; a
// reader goroutine only watches for the peer closing.
func (s *TriageStream) HandleConnection(c *websocket.Conn) {
	logger.Info("Triage stream connection established")

	ch := make(chan streamEvent, 16)
	s.mu.Lock()
	s.conns[c] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.Close()
		logger.Info("Triage stream connection closed")
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-ch:
			if err := c.WriteJSON(event); err != nil {
				logger.Error("Failed to write stream event", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
