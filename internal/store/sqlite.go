package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stackie-hr/stackie-server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	chatMu sync.Mutex // serializes message writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		job_title TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		is_premium INTEGER NOT NULL DEFAULT 0,
		subscription_tier TEXT NOT NULL DEFAULT 'free',
		ai_queries_used INTEGER NOT NULL DEFAULT 0,
		ai_queries_limit INTEGER NOT NULL DEFAULT 50,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		tokens_used INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProfile retrieves a profile by identity id.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, email, full_name, avatar_url, company, job_title, bio,
		       is_premium, subscription_tier, ai_queries_used, ai_queries_limit,
		       created_at, updated_at
		FROM profiles WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var profile domain.Profile
	var isPremium int
	var createdAt, updatedAt int64

	err := row.Scan(
		&profile.ID, &profile.Email, &profile.FullName, &profile.AvatarURL,
		&profile.Company, &profile.JobTitle, &profile.Bio,
		&isPremium, &profile.SubscriptionTier,
		&profile.AIQueriesUsed, &profile.AIQueriesLimit,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	profile.IsPremium = isPremium != 0
	profile.CreatedAt = time.Unix(createdAt, 0)
	profile.UpdatedAt = time.Unix(updatedAt, 0)

	return &profile, nil
}

// UpsertProfile creates or updates a profile record.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *domain.Profile) error {
	query := `
	INSERT INTO profiles (
		id, email, full_name, avatar_url, company, job_title, bio,
		is_premium, subscription_tier, ai_queries_used, ai_queries_limit,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		email = excluded.email,
		full_name = excluded.full_name,
		avatar_url = excluded.avatar_url,
		company = excluded.company,
		job_title = excluded.job_title,
		bio = excluded.bio,
		is_premium = excluded.is_premium,
		subscription_tier = excluded.subscription_tier,
		updated_at = excluded.updated_at`

	isPremium := 0
	if profile.IsPremium {
		isPremium = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL,
		profile.Company, profile.JobTitle, profile.Bio,
		isPremium, string(profile.SubscriptionTier),
		profile.AIQueriesUsed, profile.AIQueriesLimit,
		profile.CreatedAt.Unix(), profile.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// UpdateProfile applies a partial update and returns the new state.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, id string, update *domain.ProfileUpdate) (*domain.Profile, error) {
	if update.IsEmpty() {
		return s.GetProfile(ctx, id)
	}

	query := `UPDATE profiles SET updated_at = ?`
	args := []interface{}{time.Now().Unix()}

	if update.FullName != nil {
		query += `, full_name = ?`
		args = append(args, *update.FullName)
	}
	if update.AvatarURL != nil {
		query += `, avatar_url = ?`
		args = append(args, *update.AvatarURL)
	}
	if update.Company != nil {
		query += `, company = ?`
		args = append(args, *update.Company)
	}
	if update.JobTitle != nil {
		query += `, job_title = ?`
		args = append(args, *update.JobTitle)
	}
	if update.Bio != nil {
		query += `, bio = ?`
		args = append(args, *update.Bio)
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("profile not found")
	}

	return s.GetProfile(ctx, id)
}

// IncrementQueriesUsed bumps the assistant usage counter for a profile.
func (s *SQLiteStore) IncrementQueriesUsed(ctx context.Context, id string) error {
	query := `UPDATE profiles SET ai_queries_used = ai_queries_used + 1, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("increment queries used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("IncrementQueriesUsed affected 0 rows", "profile_id", id)
	}
	return nil
}

// CreateConversation stores a new conversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	query := `
	INSERT INTO conversations (id, user_id, title, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		conv.ID, conv.UserID, conv.Title,
		conv.CreatedAt.Unix(), conv.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var conv domain.Conversation
	var createdAt, updatedAt int64

	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation row: %w", err)
	}

	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)

	return &conv, nil
}

// AppendMessage stores a chat turn and touches its conversation.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	query := `
	INSERT INTO messages (id, conversation_id, role, content, feedback, tokens_used, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content,
		string(msg.Feedback), msg.TokensUsed, msg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	touch := `UPDATE conversations SET updated_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, touch, time.Now().Unix(), msg.ConversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// RecentMessages returns the last n messages of a conversation in
// chronological order.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, n int) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, role, content, feedback, tokens_used, created_at
		FROM (
			SELECT id, conversation_id, role, content, feedback, tokens_used, created_at
			FROM messages WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close recent messages rows", "error", closeErr)
		}
	}()

	var messages []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var role, feedback string
		var createdAt int64

		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &role, &msg.Content,
			&feedback, &msg.TokensUsed, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		msg.Role = domain.MessageRole(role)
		msg.Feedback = domain.Feedback(feedback)
		msg.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}

	return messages, nil
}

// GetMessage retrieves a message by id.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*domain.ChatMessage, error) {
	query := `SELECT id, conversation_id, role, content, feedback, tokens_used, created_at
		FROM messages WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var msg domain.ChatMessage
	var role, feedback string
	var createdAt int64

	err := row.Scan(
		&msg.ID, &msg.ConversationID, &role, &msg.Content,
		&feedback, &msg.TokensUsed, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan message row: %w", err)
	}

	msg.Role = domain.MessageRole(role)
	msg.Feedback = domain.Feedback(feedback)
	msg.CreatedAt = time.Unix(createdAt, 0)

	return &msg, nil
}

// SetMessageFeedback tags a message with user feedback.
func (s *SQLiteStore) SetMessageFeedback(ctx context.Context, messageID string, feedback domain.Feedback) error {
	query := `UPDATE messages SET feedback = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, string(feedback), messageID)
	if err != nil {
		return fmt.Errorf("set message feedback: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("message not found")
	}
	return nil
}

// CleanupExpiredConversations removes conversations idle longer than ttl.
func (s *SQLiteStore) CleanupExpiredConversations(ctx context.Context, ttl time.Duration) (int64, error) {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id IN
			(SELECT id FROM conversations WHERE updated_at < ?)`, threshold); err != nil {
		return 0, fmt.Errorf("cleanup expired messages: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired conversations: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
