// Package inquiry implements the staff-facing inquiry lifecycle: submission
// and triage, answer drafting, approval, and delivery.
package inquiry

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/cache/redis"
	"github.com/inquiry-triage/backend/internal/compose"
	"github.com/inquiry-triage/backend/internal/followup"
	"github.com/inquiry-triage/backend/internal/metrics"
	"github.com/inquiry-triage/backend/internal/pipeline"
	"github.com/inquiry-triage/backend/internal/retrieval"
	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/internal/storage/sqlite"
	"github.com/inquiry-triage/backend/pkg/logger"
	"github.com/inquiry-triage/backend/pkg/utils"
)

// Audit actions recorded by the service.
const (
	ActionSubmitInquiry = "SUBMIT_INQUIRY"
	ActionViewInquiry   = "VIEW_INQUIRY"
	ActionEditInquiry   = "EDIT_INQUIRY"
	ActionGenerateAI    = "GENERATE_AI"
	ActionEditDraft     = "EDIT_DRAFT"
	ActionApproveAnswer = "APPROVE_ANSWER"
	ActionSendAnswer    = "SEND_ANSWER"
)

// Includes the ideographic space common in Japanese submissions.
var collapseWhitespaceRe = regexp.MustCompile(`[\s　]+`)

type Service struct {
	db     *sqlite.Client
	engine pipeline.Engine
	cache  *redis.Client
}

func NewService(db *sqlite.Client, engine pipeline.Engine, cache *redis.Client) *Service {
	return &Service{
		db:     db,
		engine: engine,
		cache:  cache,
	}
}

type SubmitInput struct {
	Channel      string              `json:"channel"`
	Text         string              `json:"text"`
	Locale       string              `json:"locale"`
	NeedsReply   bool                `json:"needsReply"`
	ContactName  string              `json:"contactName"`
	ContactEmail string              `json:"contactEmail"`
	ContactPhone string              `json:"contactPhone"`
	AddressText  string              `json:"addressText"`
	Lat          *float64            `json:"lat"`
	Lng          *float64            `json:"lng"`
	FollowupQA   []models.FollowupQA `json:"followupQA"`
}

// Submit registers a new inquiry. Classification runs exactly once here;
// routing fields are never recomputed afterwards, staff edits go to
// dept_actual only.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Inquiry, error) {
	raw := input.Text
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("inquiry text is required")
	}

	normalized := strings.TrimSpace(collapseWhitespaceRe.ReplaceAllString(raw, " "))

	routing, err := s.engine.SummarizeAndRoute(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to classify inquiry: %w", err)
	}

	channel := input.Channel
	if channel == "" {
		channel = "web"
	}
	locale := input.Locale
	if locale == "" {
		locale = "ja"
	}

	now := time.Now()
	inq := &models.Inquiry{
		ID:             uuid.New().String(),
		Channel:        channel,
		RawText:        raw,
		NormalizedText: normalized,
		Locale:         locale,
		AISummary:      routing.Summary,
		Urgency:        string(routing.Urgency),
		Importance:     string(routing.Importance),
		DeptSuggested:  routing.DeptSuggested,
		DeptActual:     routing.DeptSuggested,
		Status:         models.StatusNew,
		Tags:           routing.TagSuggestions,
		FollowupQA:     input.FollowupQA,
		NeedsReply:     input.NeedsReply,
		ContactName:    input.ContactName,
		ContactEmail:   input.ContactEmail,
		ContactPhone:   input.ContactPhone,
		AddressText:    input.AddressText,
		Lat:            input.Lat,
		Lng:            input.Lng,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.InsertInquiry(inq); err != nil {
		return nil, err
	}

	metrics.InquiriesSubmitted.WithLabelValues(channel).Inc()
	metrics.InquiryUrgency.WithLabelValues(inq.Urgency).Inc()
	s.audit(ctx, "citizen", ActionSubmitInquiry, "inquiry", inq.ID, map[string]interface{}{
		"channel": channel,
		"urgency": inq.Urgency,
	})

	logger.Info("Inquiry submitted",
		zap.String("inquiry_id", inq.ID),
		zap.String("channel", channel),
		zap.String("urgency", inq.Urgency),
		zap.String("dept", inq.DeptSuggested),
	)

	return inq, nil
}

// Get returns one inquiry and marks it read for the viewing staff member.
func (s *Service) Get(ctx context.Context, id, actorID string) (*models.Inquiry, error) {
	inq, err := s.db.GetInquiry(id)
	if err != nil {
		return nil, err
	}

	if !inq.IsRead {
		read := true
		if err := s.db.UpdateInquiry(id, sqlite.InquiryUpdate{IsRead: &read}); err != nil {
			logger.Warn("Failed to mark inquiry read", zap.String("inquiry_id", id), zap.Error(err))
		} else {
			inq.IsRead = true
		}
	}

	s.audit(ctx, actorID, ActionViewInquiry, "inquiry", id, nil)
	return inq, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]models.Inquiry, error) {
	return s.db.ListInquiries(limit)
}

type UpdateInput struct {
	Tags       *[]string `json:"tags"`
	DeptActual *string   `json:"deptActual"`
	Status     *string   `json:"status"`
}

// Update applies staff edits. Only tags, dept_actual, and status are
// editable; the AI routing fields stay as written at submission.
func (s *Service) Update(ctx context.Context, id, actorID string, input UpdateInput) (*models.Inquiry, error) {
	if input.Status != nil {
		switch *input.Status {
		case models.StatusNew, models.StatusInProgress, models.StatusAnswered:
		default:
			return nil, fmt.Errorf("invalid status %q", *input.Status)
		}
	}

	err := s.db.UpdateInquiry(id, sqlite.InquiryUpdate{
		Tags:       input.Tags,
		DeptActual: input.DeptActual,
		Status:     input.Status,
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{}
	if input.Tags != nil {
		meta["tags"] = *input.Tags
	}
	if input.DeptActual != nil {
		meta["deptActual"] = *input.DeptActual
	}
	if input.Status != nil {
		meta["status"] = *input.Status
	}
	s.audit(ctx, actorID, ActionEditInquiry, "inquiry", id, meta)

	return s.db.GetInquiry(id)
}

// SelfHelp serves the citizen-facing recommendation panel, cached by text
// hash so repeated drafts of the same inquiry do not re-rank the corpus.
func (s *Service) SelfHelp(ctx context.Context, text string) (*retrieval.SelfHelpResult, error) {
	textHash := utils.HashContent(text)

	if cached, ok, err := s.cache.GetSelfHelp(ctx, textHash); err == nil && ok {
		return cached, nil
	} else if err != nil {
		logger.Warn("Self-help cache read failed", zap.Error(err))
	}

	result, err := s.engine.RecommendSelfHelp(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSelfHelp(ctx, textHash, result); err != nil {
		logger.Warn("Self-help cache write failed", zap.Error(err))
	}

	return result, nil
}

// GenerateAnswer runs the full drafting pipeline for one inquiry and upserts
// the draft into its single mutable unapproved answer. A new answer row is
// only created when every existing one is already approved.
func (s *Service) GenerateAnswer(ctx context.Context, inquiryID, actorID string) (*models.Answer, *compose.AnswerPackage, error) {
	inq, err := s.db.GetInquiry(inquiryID)
	if err != nil {
		return nil, nil, err
	}

	text := inq.NormalizedText
	if text == "" {
		text = inq.RawText
	}

	sources, err := s.engine.SearchKnowledge(ctx, text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	metrics.RetrievalResults.WithLabelValues("knowledge").Observe(float64(len(sources)))

	similar, err := s.engine.FindSimilarInquiries(ctx, text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find similar inquiries: %w", err)
	}
	metrics.RetrievalResults.WithLabelValues("history").Observe(float64(len(similar)))

	followupQA := make([]compose.FollowupQA, 0, len(inq.FollowupQA))
	for _, qa := range inq.FollowupQA {
		followupQA = append(followupQA, compose.FollowupQA{
			Question: qa.Question,
			Answer:   qa.Answer,
		})
	}

	pkg, err := s.engine.GenerateAnswerPackage(ctx, text, followupQA, sources, similar)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate answer package: %w", err)
	}

	policyJSON, err := json.Marshal(pkg.Policy)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal policy: %w", err)
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal sources: %w", err)
	}

	now := time.Now()
	answer, err := s.db.GetUnapprovedAnswer(inquiryID)
	if err != nil {
		return nil, nil, err
	}

	if answer != nil {
		err = s.db.UpdateAnswerDraft(answer.ID, string(policyJSON), pkg.AnswerText, pkg.SupplementalText, string(sourcesJSON))
		if err != nil {
			return nil, nil, err
		}
		answer.DraftPolicyJSON = string(policyJSON)
		answer.DraftAnswerText = pkg.AnswerText
		answer.DraftSupplementalText = pkg.SupplementalText
		answer.SourcesJSON = string(sourcesJSON)
		answer.UpdatedAt = now
	} else {
		answer = &models.Answer{
			ID:                    uuid.New().String(),
			InquiryID:             inquiryID,
			DraftPolicyJSON:       string(policyJSON),
			DraftAnswerText:       pkg.AnswerText,
			DraftSupplementalText: pkg.SupplementalText,
			SourcesJSON:           string(sourcesJSON),
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := s.db.InsertAnswer(answer); err != nil {
			return nil, nil, err
		}
	}

	if inq.Status == models.StatusNew {
		status := models.StatusInProgress
		if err := s.db.UpdateInquiry(inquiryID, sqlite.InquiryUpdate{Status: &status}); err != nil {
			logger.Warn("Failed to advance inquiry status", zap.String("inquiry_id", inquiryID), zap.Error(err))
		}
	}

	metrics.AnswersGenerated.Inc()
	s.audit(ctx, actorID, ActionGenerateAI, "answer", answer.ID, map[string]interface{}{
		"inquiryId": inquiryID,
		"sources":   len(sources),
		"similar":   len(similar),
	})

	return answer, pkg, nil
}

type DraftInput struct {
	AnswerText       string `json:"answerText"`
	SupplementalText string `json:"supplementalText"`
}

// EditDraft applies a staff rewrite to an unapproved draft.
func (s *Service) EditDraft(ctx context.Context, answerID, actorID string, input DraftInput) (*models.Answer, error) {
	answer, err := s.db.GetAnswer(answerID)
	if err != nil {
		return nil, err
	}
	if answer.ApprovedAt != nil {
		return nil, fmt.Errorf("answer %s is approved and immutable", answerID)
	}

	err = s.db.UpdateAnswerDraft(answerID, answer.DraftPolicyJSON, input.AnswerText, input.SupplementalText, answer.SourcesJSON)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actorID, ActionEditDraft, "answer", answerID, nil)
	return s.db.GetAnswer(answerID)
}

// Approve freezes the answer. The final text defaults to the current draft
// when the approver submits no edit.
func (s *Service) Approve(ctx context.Context, answerID, actorID, finalText string) (*models.Answer, error) {
	answer, err := s.db.GetAnswer(answerID)
	if err != nil {
		return nil, err
	}
	if answer.ApprovedAt != nil {
		return nil, fmt.Errorf("answer %s is already approved", answerID)
	}

	if finalText == "" {
		finalText = answer.DraftAnswerText
	}

	if err := s.db.ApproveAnswer(answerID, finalText, actorID, time.Now()); err != nil {
		return nil, err
	}

	metrics.AnswersApproved.Inc()
	s.audit(ctx, actorID, ActionApproveAnswer, "answer", answerID, nil)

	return s.db.GetAnswer(answerID)
}

// Send records delivery of an approved answer and closes the inquiry.
// Actual transport is out of band; this marks the handoff.
func (s *Service) Send(ctx context.Context, answerID, actorID, channel string) (*models.Answer, error) {
	answer, err := s.db.GetAnswer(answerID)
	if err != nil {
		return nil, err
	}
	if answer.ApprovedAt == nil {
		return nil, fmt.Errorf("answer %s is not approved", answerID)
	}
	if answer.SentAt != nil {
		return nil, fmt.Errorf("answer %s is already sent", answerID)
	}

	if channel == "" {
		channel = "email"
	}

	if err := s.db.MarkAnswerSent(answerID, channel, time.Now()); err != nil {
		return nil, err
	}

	status := models.StatusAnswered
	if err := s.db.UpdateInquiry(answer.InquiryID, sqlite.InquiryUpdate{Status: &status}); err != nil {
		logger.Warn("Failed to close inquiry", zap.String("inquiry_id", answer.InquiryID), zap.Error(err))
	}

	metrics.AnswersSent.WithLabelValues(channel).Inc()
	s.audit(ctx, actorID, ActionSendAnswer, "answer", answerID, map[string]interface{}{
		"channel": channel,
	})

	return s.db.GetAnswer(answerID)
}

func (s *Service) ListAnswers(ctx context.Context, inquiryID string) ([]models.Answer, error) {
	return s.db.ListAnswers(inquiryID)
}

// Followups surfaces clarifying questions for the intake form.
func (s *Service) Followups(ctx context.Context, text string) ([]followup.Question, error) {
	return s.engine.GenerateFollowupQuestions(ctx, text)
}

func (s *Service) audit(ctx context.Context, actorID, action, targetType, targetID string, meta map[string]interface{}) {
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
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
