package command

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mediabot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.CommandStore using SQLite. One row per
// user-visible action; multi-step plans persist as a single row. Rows are
// append-only: the core never updates or deletes a recorded Command.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commands (
		id            TEXT PRIMARY KEY,
		chat_id       TEXT NOT NULL,
		message_id    TEXT NOT NULL,
		tool          TEXT,
		args          TEXT,
		plan          TEXT,
		is_multi_step INTEGER DEFAULT 0,
		prompt        TEXT,
		result        TEXT,
		failed        INTEGER DEFAULT 0,
		normalized    TEXT,
		image_url     TEXT,
		video_url     TEXT,
		audio_url     TEXT,
		extra         TEXT,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_commands_chat ON commands(chat_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_commands_message ON commands(chat_id, message_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record validates and persists a Command. Validation failures return a
// ValidationError and write nothing; storage failures come back wrapped in a
// PersistenceError so the caller can log and move on.
func (s *SQLiteStore) Record(ctx context.Context, cmd *domain.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now().UTC()
	}

	args, err := marshalField(cmd.Args)
	if err != nil {
		return &domain.PersistenceError{Op: "encode args", Err: err}
	}
	plan, err := marshalField(cmd.Plan)
	if err != nil {
		return &domain.PersistenceError{Op: "encode plan", Err: err}
	}
	result, err := marshalField(cmd.Result)
	if err != nil {
		return &domain.PersistenceError{Op: "encode result", Err: err}
	}
	extra, err := marshalField(cmd.Extra)
	if err != nil {
		return &domain.PersistenceError{Op: "encode extra", Err: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO commands
		 (id, chat_id, message_id, tool, args, plan, is_multi_step, prompt,
		  result, failed, normalized, image_url, video_url, audio_url, extra, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cmd.ID, cmd.ChatID, cmd.MessageID, cmd.Tool, args, plan,
		boolToInt(cmd.IsMultiStep), cmd.Prompt, result, boolToInt(cmd.Failed),
		cmd.Normalized, cmd.ImageURL, cmd.VideoURL, cmd.AudioURL, extra,
		cmd.Timestamp,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "insert command", Err: err}
	}

	s.logger.Debug("command recorded",
		"id", cmd.ID, "chat", cmd.ChatID, "tool", cmd.Tool, "failed", cmd.Failed)
	return nil
}

// ListByChat returns the chat's most recent commands, oldest first.
func (s *SQLiteStore) ListByChat(ctx context.Context, chatID string, limit int) ([]domain.Command, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, message_id, tool, args, plan, is_multi_step, prompt,
		        result, failed, normalized, image_url, video_url, audio_url, extra, created_at
		 FROM (
			SELECT * FROM commands WHERE chat_id = ? ORDER BY created_at DESC LIMIT ?
		 ) ORDER BY created_at ASC`,
		chatID, limit,
	)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list commands", Err: err}
	}
	defer rows.Close()

	var cmds []domain.Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "scan command", Err: err}
		}
		cmds = append(cmds, *cmd)
	}
	return cmds, rows.Err()
}

// GetByMessage returns the latest command recorded for a turn, or nil.
// A retried action may leave several rows for one message_id; the most
// recent record supersedes earlier ones without mutating them.
func (s *SQLiteStore) GetByMessage(ctx context.Context, chatID, messageID string) (*domain.Command, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, message_id, tool, args, plan, is_multi_step, prompt,
		        result, failed, normalized, image_url, video_url, audio_url, extra, created_at
		 FROM commands WHERE chat_id = ? AND message_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		chatID, messageID,
	)
	cmd, err := scanCommand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get command", Err: err}
	}
	return cmd, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(row rowScanner) (*domain.Command, error) {
	var cmd domain.Command
	var args, plan, result, extra sql.NullString
	var isMulti, failed int
	var tool, prompt, normalized, imageURL, videoURL, audioURL sql.NullString

	err := row.Scan(&cmd.ID, &cmd.ChatID, &cmd.MessageID, &tool, &args, &plan,
		&isMulti, &prompt, &result, &failed, &normalized,
		&imageURL, &videoURL, &audioURL, &extra, &cmd.Timestamp)
	if err != nil {
		return nil, err
	}

	cmd.Tool = tool.String
	cmd.Prompt = prompt.String
	cmd.Normalized = normalized.String
	cmd.ImageURL = imageURL.String
	cmd.VideoURL = videoURL.String
	cmd.AudioURL = audioURL.String
	cmd.IsMultiStep = isMulti != 0
	cmd.Failed = failed != 0

	if err := unmarshalField(args, &cmd.Args); err != nil {
		return nil, err
	}
	if err := unmarshalField(plan, &cmd.Plan); err != nil {
		return nil, err
	}
	if err := unmarshalField(result, &cmd.Result); err != nil {
		return nil, err
	}
	if err := unmarshalField(extra, &cmd.Extra); err != nil {
		return nil, err
	}
	return &cmd, nil
}

func marshalField(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []domain.PlanStep:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case nil:
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalField(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
