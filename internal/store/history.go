package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Conversation struct {
	ID          int64     `json:"id"`
	Question    string    `json:"question"`
	SQL         string    `json:"sql_query"`
	Results     string    `json:"results"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"timestamp"`
	ExpiresAt   time.Time `json:"expires_at"`
}

const historyDDL = `
CREATE SEQUENCE IF NOT EXISTS conversation_history_id_seq;
CREATE TABLE IF NOT EXISTS conversation_history (
	id BIGINT PRIMARY KEY DEFAULT nextval('conversation_history_id_seq'),
	question VARCHAR NOT NULL,
	sql_query VARCHAR NOT NULL,
	results VARCHAR NOT NULL,
	explanation VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);`

// EnsureSchema creates the conversation history table and its id sequence.
// Called once at startup; idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.withDB(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, historyDDL); err != nil {
			return fmt.Errorf("ensure history schema: %w", err)
		}
		return nil
	})
}

// SaveConversation records one completed exchange. Expiry is always the
// creation time plus the configured TTL.
func (s *Store) SaveConversation(ctx context.Context, question, sqlQuery, results, explanation string, now time.Time) error {
	createdAt := now.UTC()
	expiresAt := createdAt.Add(s.historyTTL)
	return s.withDB(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO conversation_history (question, sql_query, results, explanation, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			question, sqlQuery, results, explanation, createdAt, expiresAt)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		return nil
	})
}

// PurgeExpired deletes every conversation whose expiry has passed and
// returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var purged int64
	err := s.withDB(func(db *sql.DB) error {
		result, err := db.ExecContext(ctx, `DELETE FROM conversation_history WHERE expires_at <= ?`, now.UTC())
		if err != nil {
			return fmt.Errorf("purge expired conversations: %w", err)
		}
		if affected, err := result.RowsAffected(); err == nil {
			purged = affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// RecentConversations returns all non-expired conversations, newest first.
// Expired records are purged before the read, not merely filtered out.
func (s *Store) RecentConversations(ctx context.Context, now time.Time) ([]Conversation, int64, error) {
	var (
		conversations []Conversation
		purged        int64
	)
	err := s.withDB(func(db *sql.DB) error {
		deleted, err := db.ExecContext(ctx, `DELETE FROM conversation_history WHERE expires_at <= ?`, now.UTC())
		if err != nil {
			return fmt.Errorf("purge expired conversations: %w", err)
		}
		if affected, err := deleted.RowsAffected(); err == nil {
			purged = affected
		}

		rows, err := db.QueryContext(ctx, `
			SELECT id, question, sql_query, results, explanation, created_at, expires_at
			FROM conversation_history
			WHERE expires_at > ?
			ORDER BY created_at DESC`, now.UTC())
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var conversation Conversation
			if err := rows.Scan(
				&conversation.ID,
				&conversation.Question,
				&conversation.SQL,
				&conversation.Results,
				&conversation.Explanation,
				&conversation.CreatedAt,
				&conversation.ExpiresAt,
			); err != nil {
				return fmt.Errorf("scan conversation: %w", err)
			}
			conversations = append(conversations, conversation)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return conversations, purged, nil
}
