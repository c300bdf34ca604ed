// Package followup generates clarifying questions for an inquiry before an
// answer is drafted. Domain categories are mutually exclusive and checked in
// priority order; generic fallbacks fill the remaining slots.
package followup

import "regexp"

type QuestionType string

const (
	TypeText   QuestionType = "text"
	TypeSingle QuestionType = "single"
	TypeMulti  QuestionType = "multi"
)

type Question struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

const defaultMaxQuestions = 3

type category struct {
	match     *regexp.Regexp
	questions []Question
}

// First category matched wins; there is no cross-category accumulation. The
// keyword sets are part of the observable contract.
var categories = []category{
	{
		match: regexp.MustCompile(`(ゴミ|ごみ|廃棄|粗大|不燃|可燃|資源ゴミ|回収|収集)`),
		questions: []Question{
			{
				ID:      "garbage_type",
				Text:    "廃棄したいものの種類を教えてください",
				Type:    TypeSingle,
				Options: []string{"可燃ごみ", "不燃ごみ", "資源ごみ（びん・缶・ペットボトル）", "粗大ごみ", "その他"},
			},
			{
				ID:   "garbage_volume",
				Text: "おおよその量・サイズを教えてください（例：45Lの袋3袋、タンス1台）",
				Type: TypeText,
			},
		},
	},
	{
		match: regexp.MustCompile(`(道路|陥没|穴|舗装|アスファルト|歩道|車道|段差|ひび|路面)`),
		questions: []Question{
			{
				ID:      "road_severity",
				Text:    "損傷の程度を教えてください",
				Type:    TypeSingle,
				Options: []string{"人や車が通れない（通行不可）", "通行できるが危険を感じる", "軽微なひびや段差がある"},
			},
			{
				ID:   "road_location",
				Text: "損傷箇所の詳しい場所（交差点名・目印など）を教えてください",
				Type: TypeText,
			},
		},
	},
	{
		match: regexp.MustCompile(`(騒音|うるさい|振動|悪臭|臭い|においが|音がする|轟音)`),
		questions: []Question{
			{
				ID:      "noise_time",
				Text:    "騒音・被害が発生する時間帯はいつですか？",
				Type:    TypeMulti,
				Options: []string{"早朝（6時前）", "日中（6〜18時）", "夜間（18〜22時）", "深夜（22時〜）", "不定期"},
			},
			{
				ID:      "noise_source",
				Text:    "騒音・悪臭の原因として考えられるものを教えてください",
				Type:    TypeSingle,
				Options: []string{"工事・建設作業", "近隣住民", "商業施設・店舗", "車両・交通", "原因不明"},
			},
		},
	},
	{
		match: regexp.MustCompile(`(公園|遊具|ブランコ|滑り台|砂場|ベンチ|花壇|草木|雑草)`),
		questions: []Question{
			{
				ID:      "park_issue",
				Text:    "問題の種類を教えてください",
				Type:    TypeSingle,
				Options: []string{"遊具の破損・危険", "草木の手入れ（草刈り・剪定）", "清掃・ゴミ", "施設・設備の不具合", "その他"},
			},
		},
	},
	{
		match: regexp.MustCompile(`(水道|水漏れ|断水|下水|排水|詰まり|異臭|水が出ない|ガス管)`),
		questions: []Question{
			{
				ID:      "water_type",
				Text:    "水道に関する問題の種類を教えてください",
				Type:    TypeSingle,
				Options: []string{"水が出ない（断水）", "水漏れ・破裂している", "水の色・におい・味がおかしい", "下水・排水の詰まり", "その他"},
			},
			{
				ID:      "water_urgency",
				Text:    "現在の状況はどの程度緊急ですか？",
				Type:    TypeSingle,
				Options: []string{"今すぐ対応が必要（水が使えない・漏水中）", "本日中に対応してほしい", "数日内でよい"},
			},
		},
	},
	{
		match: regexp.MustCompile(`(年金|国民年金|厚生年金|受給|申請|手続|書類|マイナンバー|住所変更|転入|転出)`),
		questions: []Question{
			{
				ID:      "procedure_type",
				Text:    "お手続きの種類を教えてください",
				Type:    TypeSingle,
				Options: []string{"転入・転出・住所変更", "年金・給付金の申請", "各種証明書の発行", "マイナンバー関連", "その他"},
			},
			{
				ID:      "procedure_urgency",
				Text:    "期限はありますか？",
				Type:    TypeSingle,
				Options: []string{"今週中に必要", "今月中に必要", "急ぎではない"},
			},
		},
	},
	{
		match: regexp.MustCompile(`(子育て|保育|幼稚園|保育園|育児|児童|小学校|学童|入園)`),
		questions: []Question{
			{
				ID:      "childcare_type",
				Text:    "お子さんの年齢や状況を教えてください",
				Type:    TypeSingle,
				Options: []string{"0〜2歳（乳幼児）", "3〜5歳（幼稚園・保育園年齢）", "小学生", "中学生以上"},
			},
			{
				ID:      "childcare_issue",
				Text:    "ご相談の内容はどちらですか？",
				Type:    TypeSingle,
				Options: []string{"保育園・幼稚園への入園", "学童保育", "子育て支援サービスの紹介", "その他"},
			},
		},
	},
}

var (
	hasLocation = regexp.MustCompile(`(丁目|番地|交差点|公園|駅|付近|の前|場所|住所|地図)`)
	hasDatetime = regexp.MustCompile(`(今日|昨日|先週|\d+日|午前|午後|時頃|いつから)`)
	datedEvent  = regexp.MustCompile(`(いつ|発生|困って|気づい|始まっ)`)
	urgentTone  = regexp.MustCompile(`(困って|危険|今すぐ|至急|緊急|早急)`)
)

// Generate returns at most max clarifying questions for the text. A max of
// zero or less applies the default cap of three.
func Generate(text string, max int) []Question {
	if max <= 0 {
		max = defaultMaxQuestions
	}
	questions := make([]Question, 0, max)

	for _, cat := range categories {
		if !cat.match.MatchString(text) {
			continue
		}
		for _, q := range cat.questions {
			if len(questions) >= max {
				break
			}
			questions = append(questions, q)
		}
		break
	}

	// Generic fallbacks: asked only when the text itself lacks the cue.
	if len(questions) < max && !hasLocation.MatchString(text) {
		questions = append(questions, Question{
			ID:   "location",
			Text: "問い合わせに関連する場所・住所があれば教えてください",
			Type: TypeText,
		})
	}

	if len(questions) < max && !hasDatetime.MatchString(text) && datedEvent.MatchString(text) {
		questions = append(questions, Question{
			ID:   "datetime",
			Text: "問題に気づいた日時や時間帯を教えてください",
			Type: TypeText,
		})
	}

	if len(questions) < max && urgentTone.MatchString(text) {
		questions = append(questions, Question{
			ID:      "urgency_level",
			Text:    "どの程度の緊急対応が必要ですか？",
			Type:    TypeSingle,
			Options: []string{"今すぐ（生命・安全に関わる）", "本日中", "数日内でよい", "急ぎではない"},
		})
	}

	if len(questions) > max {
		questions = questions[:max]
	}
	return questions
}
