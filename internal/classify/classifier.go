// Package classify assigns routing metadata to raw inquiry text with ordered
// keyword rule tables. Every rule is total: classification always yields a
// value and has no error path, so inquiry submission can never block on it.
package classify

import (
	"strings"
	"unicode/utf8"
)

type Level string

const (
	LevelHigh Level = "HIGH"
	LevelMed  Level = "MED"
	LevelLow  Level = "LOW"
)

// Result carries the routing fields set exactly once at inquiry creation.
type Result struct {
	Summary        string   `json:"summary"`
	Urgency        Level    `json:"urgency"`
	Importance     Level    `json:"importance"`
	DeptSuggested  string   `json:"deptSuggested"`
	TagSuggestions []string `json:"tagSuggestions"`
}

// The HIGH set is checked before the LOW set: text matching both is HIGH.
var urgencyHigh = []string{"緊急", "危険", "事故", "破裂", "爆発", "火事", "倒れ", "死", "血", "骨折", "至急"}
var urgencyLow = []string{"教えて", "知りたい", "確認", "案内", "申込方法"}

// Life-line and infrastructure terms.
var importanceHigh = []string{"道路", "水道", "信号", "ライフライン", "緊急", "危険"}

type deptRule struct {
	keywords []string
	dept     string
}

// Evaluated in order, first match wins.
var deptRules = []deptRule{
	{[]string{"ゴミ", "粗大", "分別", "可燃", "不燃", "資源", "リサイクル"}, "環境課"},
	{[]string{"道路", "陥没", "信号", "舗装", "アスファルト", "歩道"}, "道路管理課"},
	{[]string{"年金", "国民年金", "厚生年金", "老齢", "受給"}, "市民課"},
	{[]string{"公園", "遊具", "花壇", "緑地", "草"}, "公園管理課"},
	{[]string{"水道", "下水", "排水", "水漏れ", "断水"}, "上下水道課"},
	{[]string{"イベント", "講座", "市民活動", "参加", "申込"}, "市民活動推進課"},
	{[]string{"騒音", "振動", "悪臭", "環境被害"}, "生活安全課"},
	{[]string{"子育て", "保育", "幼稚園", "育児", "児童"}, "子育て支援課"},
	{[]string{"高齢", "介護", "福祉", "ケア", "ヘルパー"}, "福祉課"},
	{[]string{"税金", "市税", "固定資産", "軽自動車税"}, "税務課"},
}

var tagVocabulary = []string{
	"ゴミ", "粗大ごみ", "道路", "年金", "公園", "水道", "イベント", "騒音",
	"子育て", "介護", "税金", "喫煙", "信号", "陥没", "申込", "手続き",
	"住所変更", "収集日", "費用", "緊急",
}

const (
	maxTags         = 5
	summaryLen      = 60
	summarySuffix   = "に関するお問い合わせです。"
	summaryEllipsis = "…"
	longTextLen     = 100
)

type Classifier struct {
	defaultDept string
}

func New(defaultDept string) *Classifier {
	if defaultDept == "" {
		defaultDept = "総務課"
	}
	return &Classifier{defaultDept: defaultDept}
}

func (c *Classifier) Classify(text string) *Result {
	return &Result{
		Summary:        summarize(text),
		Urgency:        detectUrgency(text),
		Importance:     detectImportance(text),
		DeptSuggested:  c.detectDept(text),
		TagSuggestions: detectTags(text),
	}
}

func detectUrgency(text string) Level {
	if containsAny(text, urgencyHigh) {
		return LevelHigh
	}
	if containsAny(text, urgencyLow) {
		return LevelLow
	}
	return LevelMed
}

func detectImportance(text string) Level {
	if containsAny(text, importanceHigh) {
		return LevelHigh
	}
	if utf8.RuneCountInString(text) > longTextLen {
		return LevelMed
	}
	return LevelLow
}

func (c *Classifier) detectDept(text string) string {
	for _, rule := range deptRules {
		if containsAny(text, rule.keywords) {
			return rule.dept
		}
	}
	return c.defaultDept
}

// detectTags returns every vocabulary keyword contained in the text, in
// vocabulary order, capped at maxTags.
func detectTags(text string) []string {
	tags := make([]string, 0, maxTags)
	for _, k := range tagVocabulary {
		if strings.Contains(text, k) {
			tags = append(tags, k)
			if len(tags) == maxTags {
				break
			}
		}
	}
	return tags
}

func summarize(text string) string {
	runes := []rune(text)
	if len(runes) > summaryLen {
		return string(runes[:summaryLen]) + summaryEllipsis + summarySuffix
	}
	return text + summarySuffix
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
