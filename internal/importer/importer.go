// Package importer converts out-of-band intake (raw email, phone memos)
// into inquiry submissions.
package importer

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/inquiry"
	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/pkg/logger"
)

type Service struct {
	inquiries *inquiry.Service
}

func NewService(inquiries *inquiry.Service) *Service {
	return &Service{inquiries: inquiries}
}

// ImportEmail parses a raw RFC 822 message and submits it as an email-channel
// inquiry. The subject is folded into the inquiry text so classification and
// retrieval see it.
func (s *Service) ImportEmail(ctx context.Context, raw string) (*models.Inquiry, error) {
	msg, err := parseEmail(raw)
	if err != nil {
		return nil, err
	}

	text := msg.Body
	if msg.Subject != "" {
		text = fmt.Sprintf("件名: %s\n\n%s", msg.Subject, msg.Body)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("email has no usable body")
	}

	inq, err := s.inquiries.Submit(ctx, inquiry.SubmitInput{
		Channel:      "email",
		Text:         text,
		NeedsReply:   true,
		ContactName:  msg.FromName,
		ContactEmail: msg.FromAddress,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Email imported as inquiry",
		zap.String("inquiry_id", inq.ID),
		zap.String("from", msg.FromAddress),
	)
	return inq, nil
}

type PhoneMemo struct {
	Transcript   string `json:"transcript"`
	ContactName  string `json:"contactName"`
	ContactPhone string `json:"contactPhone"`
	NeedsReply   bool   `json:"needsReply"`
}

// ImportPhone submits a staff-written call memo as a phone-channel inquiry.
func (s *Service) ImportPhone(ctx context.Context, memo PhoneMemo) (*models.Inquiry, error) {
	if strings.TrimSpace(memo.Transcript) == "" {
		return nil, fmt.Errorf("phone memo transcript is required")
	}

	return s.inquiries.Submit(ctx, inquiry.SubmitInput{
		Channel:      "phone",
		Text:         memo.Transcript,
		NeedsReply:   memo.NeedsReply,
		ContactName:  memo.ContactName,
		ContactPhone: memo.ContactPhone,
	})
}

type parsedEmail struct {
	Subject     string
	FromName    string
	FromAddress string
	Body        string
}

// parseEmail handles the plain-text .eml shape produced by the mail gateway:
// headers, a blank line, then the body. Multipart payloads are out of scope;
// the gateway flattens them before handoff.
func parseEmail(raw string) (*parsedEmail, error) {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	headerPart, body, found := strings.Cut(normalized, "\n\n")
	if !found {
		return nil, fmt.Errorf("malformed email: missing header separator")
	}

	msg := &parsedEmail{Body: strings.TrimSpace(body)}

	for _, line := range unfoldHeaders(headerPart) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(name) {
		case "subject":
			msg.Subject = decodeHeader(value)
		case "from":
			msg.FromName, msg.FromAddress = splitFrom(decodeHeader(value))
		}
	}

	return msg, nil
}

// unfoldHeaders joins continuation lines (leading whitespace) back onto
// their header.
func unfoldHeaders(headerPart string) []string {
	var headers []string
	for _, line := range strings.Split(headerPart, "\n") {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(headers) > 0 {
			headers[len(headers)-1] += " " + strings.TrimSpace(line)
			continue
		}
		headers = append(headers, line)
	}
	return headers
}

func decodeHeader(value string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// splitFrom separates "Name <addr>" into its parts. A bare address yields an
// empty name.
func splitFrom(from string) (string, string) {
	if open := strings.LastIndex(from, "<"); open >= 0 {
		if end := strings.LastIndex(from, ">"); end > open {
			name := strings.TrimSpace(strings.Trim(from[:open], ` "`))
			addr := strings.TrimSpace(from[open+1 : end])
			return name, addr
		}
	}
	return "", strings.TrimSpace(from)
}
