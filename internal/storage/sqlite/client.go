package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/inquiry-triage/backend/internal/storage/models"
	"github.com/inquiry-triage/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS inquiries (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		normalized_text TEXT NOT NULL,
		locale TEXT NOT NULL DEFAULT 'ja',
		ai_summary TEXT NOT NULL DEFAULT '',
		urgency TEXT NOT NULL DEFAULT 'MED',
		importance TEXT NOT NULL DEFAULT 'LOW',
		dept_suggested TEXT NOT NULL DEFAULT '',
		dept_actual TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'NEW',
		tags TEXT NOT NULL DEFAULT '[]',
		followup_qa TEXT NOT NULL DEFAULT '[]',
		needs_reply INTEGER NOT NULL DEFAULT 0,
		contact_name TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		address_text TEXT NOT NULL DEFAULT '',
		lat REAL,
		lng REAL,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_inquiries_status ON inquiries(status);
	CREATE INDEX IF NOT EXISTS idx_inquiries_created ON inquiries(created_at);
	CREATE INDEX IF NOT EXISTS idx_inquiries_dept ON inquiries(dept_actual);

	CREATE TABLE IF NOT EXISTS knowledge_sources (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		uri TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		last_synced_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_knowledge_created ON knowledge_sources(created_at);

	CREATE TABLE IF NOT EXISTS answers (
		id TEXT PRIMARY KEY,
		inquiry_id TEXT NOT NULL,
		draft_policy TEXT NOT NULL DEFAULT '{}',
		draft_answer_text TEXT NOT NULL DEFAULT '',
		draft_supplemental_text TEXT NOT NULL DEFAULT '',
		sources TEXT NOT NULL DEFAULT '[]',
		final_answer_text TEXT NOT NULL DEFAULT '',
		approved_by TEXT NOT NULL DEFAULT '',
		approved_at INTEGER,
		sent_channel TEXT NOT NULL DEFAULT '',
		sent_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (inquiry_id) REFERENCES inquiries(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_answers_inquiry ON answers(inquiry_id);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		meta TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertInquiry(inq *models.Inquiry) error {
	tagsJSON, _ := json.Marshal(inq.Tags)
	qaJSON, _ := json.Marshal(inq.FollowupQA)

	query := `
		INSERT INTO inquiries (id, channel, raw_text, normalized_text, locale, ai_summary,
			urgency, importance, dept_suggested, dept_actual, status, tags, followup_qa,
			needs_reply, contact_name, contact_email, contact_phone, address_text, lat, lng,
			is_read, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		inq.ID,
		inq.Channel,
		inq.RawText,
		inq.NormalizedText,
		inq.Locale,
		inq.AISummary,
		inq.Urgency,
		inq.Importance,
		inq.DeptSuggested,
		inq.DeptActual,
		inq.Status,
		string(tagsJSON),
		string(qaJSON),
		boolToInt(inq.NeedsReply),
		inq.ContactName,
		inq.ContactEmail,
		inq.ContactPhone,
		inq.AddressText,
		inq.Lat,
		inq.Lng,
		boolToInt(inq.IsRead),
		inq.CreatedAt.Unix(),
		inq.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}

	logger.Debug("Inquiry inserted", zap.String("inquiry_id", inq.ID), zap.String("channel", inq.Channel))
	return nil
}

const inquiryColumns = `id, channel, raw_text, normalized_text, locale, ai_summary,
	urgency, importance, dept_suggested, dept_actual, status, tags, followup_qa,
	needs_reply, contact_name, contact_email, contact_phone, address_text, lat, lng,
	is_read, created_at, updated_at`

func (c *Client) GetInquiry(id string) (*models.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries WHERE id = ?`
	return scanInquiry(c.db.QueryRow(query, id))
}

func (c *Client) ListInquiries(limit int) ([]models.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries ORDER BY created_at DESC LIMIT ?`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	var inquiries []models.Inquiry
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		inquiries = append(inquiries, *inq)
	}

	return inquiries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInquiry(row rowScanner) (*models.Inquiry, error) {
	var inq models.Inquiry
	var tagsJSON, qaJSON string
	var needsReply, isRead int
	var createdAt, updatedAt int64

	err := row.Scan(
		&inq.ID,
		&inq.Channel,
		&inq.RawText,
		&inq.NormalizedText,
		&inq.Locale,
		&inq.AISummary,
		&inq.Urgency,
		&inq.Importance,
		&inq.DeptSuggested,
		&inq.DeptActual,
		&inq.Status,
		&tagsJSON,
		&qaJSON,
		&needsReply,
		&inq.ContactName,
		&inq.ContactEmail,
		&inq.ContactPhone,
		&inq.AddressText,
		&inq.Lat,
		&inq.Lng,
		&isRead,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan inquiry: %w", err)
	}

	// Malformed stored JSON degrades to empty rather than failing the read.
	if err := json.Unmarshal([]byte(tagsJSON), &inq.Tags); err != nil {
		inq.Tags = nil
	}
	if err := json.Unmarshal([]byte(qaJSON), &inq.FollowupQA); err != nil {
		inq.FollowupQA = nil
	}

	inq.NeedsReply = needsReply != 0
	inq.IsRead = isRead != 0
	inq.CreatedAt = time.Unix(createdAt, 0)
	inq.UpdatedAt = time.Unix(updatedAt, 0)

	return &inq, nil
}

// InquiryUpdate carries the staff-editable fields; nil means unchanged.
// Routing fields are deliberately absent: they are set once at creation.
type InquiryUpdate struct {
	Tags       *[]string
	DeptActual *string
	Status     *string
	IsRead     *bool
}

func (c *Client) UpdateInquiry(id string, update InquiryUpdate) error {
	setClauses := ""
	args := []interface{}{}

	if update.Tags != nil {
		tagsJSON, _ := json.Marshal(*update.Tags)
		setClauses += "tags = ?, "
		args = append(args, string(tagsJSON))
	}
	if update.DeptActual != nil {
		setClauses += "dept_actual = ?, "
		args = append(args, *update.DeptActual)
	}
	if update.Status != nil {
		setClauses += "status = ?, "
		args = append(args, *update.Status)
	}
	if update.IsRead != nil {
		setClauses += "is_read = ?, "
		args = append(args, boolToInt(*update.IsRead))
	}

	if setClauses == "" {
		return nil
	}

	query := "UPDATE inquiries SET " + setClauses + "updated_at = ? WHERE id = ?"
	args = append(args, time.Now().Unix(), id)

	result, err := c.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update inquiry: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAnsweredInquiries feeds the similar-case retriever: recent inquiries
// joined with their newest approved answer text, newest inquiry first.
func (c *Client) ListAnsweredInquiries(limit int) ([]models.AnsweredInquiry, error) {
	// MAX(a.created_at) pins the joined row to each inquiry's newest answer.
	query := `
		SELECT i.id, i.raw_text, i.normalized_text, i.ai_summary, a.final_answer_text, MAX(a.created_at)
		FROM inquiries i
		JOIN answers a ON a.inquiry_id = i.id
		WHERE a.final_answer_text != ''
		GROUP BY i.id
		ORDER BY i.created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list answered inquiries: %w", err)
	}
	defer rows.Close()

	var items []models.AnsweredInquiry
	for rows.Next() {
		var item models.AnsweredInquiry
		var answerCreatedAt int64
		err := rows.Scan(&item.ID, &item.RawText, &item.NormalizedText, &item.AISummary, &item.FinalAnswerText, &answerCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answered inquiry: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (c *Client) InsertKnowledgeSource(ks *models.KnowledgeSource) error {
	query := `
		INSERT INTO knowledge_sources (id, type, name, uri, content, content_hash, last_synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		ks.ID,
		ks.Type,
		ks.Name,
		ks.URI,
		ks.Content,
		ks.ContentHash,
		unixOrNil(ks.LastSyncedAt),
		ks.CreatedAt.Unix(),
		ks.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert knowledge source: %w", err)
	}

	logger.Debug("Knowledge source inserted", zap.String("source_id", ks.ID), zap.String("name", ks.Name))
	return nil
}

func (c *Client) UpdateKnowledgeSource(ks *models.KnowledgeSource) error {
	query := `
		UPDATE knowledge_sources
		SET type = ?, name = ?, uri = ?, content = ?, content_hash = ?, last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := c.db.Exec(
		query,
		ks.Type,
		ks.Name,
		ks.URI,
		ks.Content,
		ks.ContentHash,
		unixOrNil(ks.LastSyncedAt),
		time.Now().Unix(),
		ks.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update knowledge source: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (c *Client) DeleteKnowledgeSource(id string) error {
	result, err := c.db.Exec(`DELETE FROM knowledge_sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge source: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (c *Client) GetKnowledgeSource(id string) (*models.KnowledgeSource, error) {
	query := `
		SELECT id, type, name, uri, content, content_hash, last_synced_at, created_at, updated_at
		FROM knowledge_sources WHERE id = ?
	`
	return scanKnowledgeSource(c.db.QueryRow(query, id))
}

func (c *Client) ListKnowledgeSources() ([]models.KnowledgeSource, error) {
	query := `
		SELECT id, type, name, uri, content, content_hash, last_synced_at, created_at, updated_at
		FROM knowledge_sources ORDER BY created_at DESC
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge sources: %w", err)
	}
	defer rows.Close()

	var sources []models.KnowledgeSource
	for rows.Next() {
		ks, err := scanKnowledgeSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *ks)
	}

	return sources, rows.Err()
}

func scanKnowledgeSource(row rowScanner) (*models.KnowledgeSource, error) {
	var ks models.KnowledgeSource
	var lastSynced sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&ks.ID,
		&ks.Type,
		&ks.Name,
		&ks.URI,
		&ks.Content,
		&ks.ContentHash,
		&lastSynced,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge source: %w", err)
	}

	if lastSynced.Valid {
		t := time.Unix(lastSynced.Int64, 0)
		ks.LastSyncedAt = &t
	}
	ks.CreatedAt = time.Unix(createdAt, 0)
	ks.UpdatedAt = time.Unix(updatedAt, 0)

	return &ks, nil
}

func (c *Client) InsertAnswer(a *models.Answer) error {
	query := `
		INSERT INTO answers (id, inquiry_id, draft_policy, draft_answer_text, draft_supplemental_text,
			sources, final_answer_text, approved_by, approved_at, sent_channel, sent_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		a.ID,
		a.InquiryID,
		a.DraftPolicyJSON,
		a.DraftAnswerText,
		a.DraftSupplementalText,
		a.SourcesJSON,
		a.FinalAnswerText,
		a.ApprovedBy,
		unixOrNil(a.ApprovedAt),
		a.SentChannel,
		unixOrNil(a.SentAt),
		a.CreatedAt.Unix(),
		a.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}

	return nil
}

// UpdateAnswerDraft rewrites the draft fields of an unapproved answer.
// Approved answers are immutable; the guard lives in the WHERE clause.
func (c *Client) UpdateAnswerDraft(id, policyJSON, answerText, supplementalText, sourcesJSON string) error {
	query := `
		UPDATE answers
		SET draft_policy = ?, draft_answer_text = ?, draft_supplemental_text = ?, sources = ?, updated_at = ?
		WHERE id = ? AND approved_at IS NULL
	`

	result, err := c.db.Exec(query, policyJSON, answerText, supplementalText, sourcesJSON, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update answer draft: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (c *Client) ApproveAnswer(id, finalAnswerText, approvedBy string, approvedAt time.Time) error {
	query := `
		UPDATE answers
		SET final_answer_text = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND approved_at IS NULL
	`

	result, err := c.db.Exec(query, finalAnswerText, approvedBy, approvedAt.Unix(), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to approve answer: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAnswerSent records the send; it only matches approved answers.
func (c *Client) MarkAnswerSent(id, channel string, sentAt time.Time) error {
	query := `
		UPDATE answers
		SET sent_channel = ?, sent_at = ?, updated_at = ?
		WHERE id = ? AND approved_at IS NOT NULL
	`

	result, err := c.db.Exec(query, channel, sentAt.Unix(), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark answer sent: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const answerColumns = `id, inquiry_id, draft_policy, draft_answer_text, draft_supplemental_text,
	sources, final_answer_text, approved_by, approved_at, sent_channel, sent_at, created_at, updated_at`

func (c *Client) GetAnswer(id string) (*models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE id = ?`
	return scanAnswer(c.db.QueryRow(query, id))
}

// GetLatestAnswer returns the newest answer for an inquiry, or nil when none
// exists. Timestamps have second resolution, so rowid breaks ties in
// insertion order.
func (c *Client) GetLatestAnswer(inquiryID string) (*models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE inquiry_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`

	a, err := scanAnswer(c.db.QueryRow(query, inquiryID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// GetUnapprovedAnswer returns the mutable draft for an inquiry, or nil when
// every answer has been approved. At most one such row exists at a time.
func (c *Client) GetUnapprovedAnswer(inquiryID string) (*models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE inquiry_id = ? AND approved_at IS NULL ORDER BY created_at DESC, rowid DESC LIMIT 1`

	a, err := scanAnswer(c.db.QueryRow(query, inquiryID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (c *Client) ListAnswers(inquiryID string) ([]models.Answer, error) {
	query := `SELECT ` + answerColumns + ` FROM answers WHERE inquiry_id = ? ORDER BY created_at DESC, rowid DESC`

	rows, err := c.db.Query(query, inquiryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}

	return answers, rows.Err()
}

func scanAnswer(row rowScanner) (*models.Answer, error) {
	var a models.Answer
	var approvedAt, sentAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&a.ID,
		&a.InquiryID,
		&a.DraftPolicyJSON,
		&a.DraftAnswerText,
		&a.DraftSupplementalText,
		&a.SourcesJSON,
		&a.FinalAnswerText,
		&a.ApprovedBy,
		&approvedAt,
		&a.SentChannel,
		&sentAt,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan answer: %w", err)
	}

	if approvedAt.Valid {
		t := time.Unix(approvedAt.Int64, 0)
		a.ApprovedAt = &t
	}
	if sentAt.Valid {
		t := time.Unix(sentAt.Int64, 0)
		a.SentAt = &t
	}
	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updatedAt, 0)

	return &a, nil
}

func (c *Client) InsertAuditLog(entry *models.AuditLog) error {
	metaJSON, _ := json.Marshal(entry.Meta)

	query := `INSERT INTO audit_log (actor_id, action, target_type, target_id, meta, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		string(metaJSON),
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

func (c *Client) ListAuditLogs(limit int) ([]models.AuditLog, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id, meta, created_at
		FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		var metaJSON string
		var createdAt int64

		err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.TargetType, &entry.TargetID, &metaJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if err := json.Unmarshal([]byte(metaJSON), &entry.Meta); err != nil {
			entry.Meta = nil
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
