package models

import "time"

// Inquiry lifecycle statuses.
const (
	StatusNew        = "NEW"
	StatusInProgress = "IN_PROGRESS"
	StatusAnswered   = "ANSWERED"
)

// FollowupQA is one clarifying question with the citizen's answer, stored as
// part of the inquiry's follow-up list.
type FollowupQA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Inquiry is a citizen submission. Routing fields (urgency, importance,
// dept_suggested) are written once at creation by the classifier and never
// recomputed; dept_actual is the staff-editable copy.
type Inquiry struct {
	ID             string
	Channel        string
	RawText        string
	NormalizedText string
	Locale         string
	AISummary      string
	Urgency        string
	Importance     string
	DeptSuggested  string
	DeptActual     string
	Status         string
	Tags           []string
	FollowupQA     []FollowupQA
	NeedsReply     bool
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	AddressText    string
	Lat            *float64
	Lng            *float64
	IsRead         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// KnowledgeSource is one entry of the answer-citation corpus. ContentHash is
// recomputed on every edit and on sync.
type KnowledgeSource struct {
	ID           string
	Type         string
	Name         string
	URI          string
	Content      string
	ContentHash  string
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Answer belongs to exactly one inquiry. The draft fields are mutable while
// ApprovedAt is nil; approval freezes the record, and SentAt may only be set
// afterwards. Policy and sources are JSON documents serialized by the
// service layer.
type Answer struct {
	ID                    string
	InquiryID             string
	DraftPolicyJSON       string
	DraftAnswerText       string
	DraftSupplementalText string
	SourcesJSON           string
	FinalAnswerText       string
	ApprovedBy            string
	ApprovedAt            *time.Time
	SentChannel           string
	SentAt                *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AnsweredInquiry is the read snapshot used by the similar-case retriever:
// past inquiries carrying a non-empty final answer.
type AnsweredInquiry struct {
	ID              string
	RawText         string
	NormalizedText  string
	AISummary       string
	FinalAnswerText string
}

type AuditLog struct {
	ID         int64
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Meta       map[string]interface{}
	CreatedAt  time.Time
}
