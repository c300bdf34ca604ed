// Package compose assembles the draft answer package staff review before
// sending. Field order and truncation lengths are part of the contract:
// staff edit the generated text, and consistent truncation avoids
// surprising edits.
package compose

import (
	"fmt"
	"strings"

	"github.com/inquiry-triage/backend/internal/classify"
	"github.com/inquiry-triage/backend/internal/retrieval"
)

type FollowupQA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Policy struct {
	Conclusion  string   `json:"conclusion"`
	Reasoning   string   `json:"reasoning"`
	MissingInfo []string `json:"missingInfo"`
	Cautions    []string `json:"cautions"`
	NextActions []string `json:"nextActions"`
}

type Citation struct {
	Claim    string `json:"claim"`
	SourceID string `json:"sourceId"`
}

type AnswerPackage struct {
	Policy           Policy     `json:"policy"`
	AnswerText       string     `json:"answerText"`
	SupplementalText string     `json:"supplementalText"`
	Citations        []Citation `json:"citations"`
}

const (
	restatementLen   = 100
	snippetLen       = 200
	similarAnswerLen = 200
	maxRenderSources = 3
)

type Composer struct {
	classifier *classify.Classifier
}

func New(classifier *classify.Classifier) *Composer {
	return &Composer{classifier: classifier}
}

// Compose builds the full answer package from the retriever outputs and the
// citizen's follow-up answers. Inputs are validated upstream; composition is
// total.
func (c *Composer) Compose(inquiryText string, followupQA []FollowupQA, sources []retrieval.SearchSource, similarCases []retrieval.SimilarInquiry) *AnswerPackage {
	routing := c.classifier.Classify(inquiryText)
	dept := routing.DeptSuggested
	urgency := routing.Urgency

	return &AnswerPackage{
		Policy:           buildPolicy(dept, urgency, followupQA, sources),
		AnswerText:       buildAnswerText(inquiryText, dept, sources, similarCases),
		SupplementalText: buildSupplementalText(sources),
		Citations:        buildCitations(sources),
	}
}

func buildPolicy(dept string, urgency classify.Level, followupQA []FollowupQA, sources []retrieval.SearchSource) Policy {
	reasoning := "類似事例と一般的な行政手続きの知識に基づいています。"
	if len(sources) > 0 {
		titles := make([]string, 0, len(sources))
		for _, s := range sources {
			titles = append(titles, s.Title)
		}
		reasoning = strings.Join(titles, "、") + "の情報を参照しました。"
	}

	missing := []string{}
	for _, qa := range followupQA {
		if qa.Answer == "" {
			missing = append(missing, qa.Question)
		}
	}

	cautions := []string{"内容によっては現地確認や追加書類が必要な場合があります。"}
	if urgency == classify.LevelHigh {
		cautions = []string{"緊急案件として優先対応が必要です。", "現地確認が必要な場合があります。"}
	}

	return Policy{
		Conclusion:  fmt.Sprintf("%sとして対応し、関連情報を提供します。", dept),
		Reasoning:   reasoning,
		MissingInfo: missing,
		Cautions:    cautions,
		NextActions: []string{"担当部署（" + dept + "）へ連絡", "必要に応じて現地確認"},
	}
}

func buildAnswerText(inquiryText, dept string, sources []retrieval.SearchSource, similarCases []retrieval.SimilarInquiry) string {
	var b strings.Builder

	b.WriteString("お問い合わせありがとうございます。\n\n")
	b.WriteString("【ご質問の内容】\n")
	b.WriteString(truncateWithMarker(inquiryText, restatementLen))
	b.WriteString("\n\n")

	if len(sources) > 0 {
		b.WriteString("【ご案内】\n")
		for i, src := range sources {
			if i >= maxRenderSources {
				break
			}
			b.WriteString("■ " + src.Title + "\n")
			b.WriteString(prefix(src.Snippet, snippetLen))
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString(fmt.Sprintf("担当窓口（%s）より詳しいご案内をいたします。\n\n", dept))
	}

	if len(similarCases) > 0 && similarCases[0].FinalAnswerText != "" {
		b.WriteString("【参考：過去の類似回答】\n")
		b.WriteString(prefix(similarCases[0].FinalAnswerText, similarAnswerLen))
		b.WriteString("\n\n")
	}

	b.WriteString("ご不明な点がございましたら、お気軽にお問い合わせください。")

	return b.String()
}

func buildSupplementalText(sources []retrieval.SearchSource) string {
	if len(sources) == 0 {
		return ""
	}

	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		line := "・" + s.Title
		if s.URI != "" {
			line += "（" + s.URI + "）"
		}
		lines = append(lines, line)
	}

	return "【参照情報】\n" + strings.Join(lines, "\n")
}

func buildCitations(sources []retrieval.SearchSource) []Citation {
	citations := make([]Citation, 0, len(sources))
	for _, s := range sources {
		citations = append(citations, Citation{
			Claim:    s.Title + "に基づく情報",
			SourceID: s.SourceID,
		})
	}
	return citations
}

func truncateWithMarker(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

func prefix(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
