package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEnsureSchemaCreatesHistoryTable(t *testing.T) {
	store, mock := newMockStore(t, 24*time.Hour)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS conversation_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSaveConversationExpiresExactlyTTLAfterCreation(t *testing.T) {
	store, mock := newMockStore(t, 24*time.Hour)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO conversation_history").
		WithArgs(
			"What are total sales?",
			"SELECT SUM(amount) FROM orders",
			`[{"total_sales":"₹1234.50"}]`,
			"Total sales come to ₹1234.50.",
			now,
			now.Add(24*time.Hour),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectClose()

	err := store.SaveConversation(
		context.Background(),
		"What are total sales?",
		"SELECT SUM(amount) FROM orders",
		`[{"total_sales":"₹1234.50"}]`,
		"Total sales come to ₹1234.50.",
		now,
	)
	if err != nil {
		t.Fatalf("SaveConversation() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPurgeExpiredReportsDeletedCount(t *testing.T) {
	store, mock := newMockStore(t, 24*time.Hour)
	now := time.Date(2024, 6, 2, 13, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM conversation_history WHERE expires_at <=").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectClose()

	purged, err := store.PurgeExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if purged != 3 {
		t.Fatalf("purged = %d", purged)
	}
}

func TestRecentConversationsPurgesBeforeReading(t *testing.T) {
	store, mock := newMockStore(t, 24*time.Hour)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := created.Add(23 * time.Hour)

	mock.ExpectExec("DELETE FROM conversation_history WHERE expires_at <=").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM conversation_history").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "question", "sql_query", "results", "explanation", "created_at", "expires_at",
		}).AddRow(
			int64(7),
			"What are total sales?",
			"SELECT SUM(amount) FROM orders",
			`[{"total_sales":"₹1234.50"}]`,
			"Total sales come to ₹1234.50.",
			created,
			created.Add(24*time.Hour),
		))
	mock.ExpectClose()

	conversations, purged, err := store.RecentConversations(context.Background(), now)
	if err != nil {
		t.Fatalf("RecentConversations() error = %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d", purged)
	}
	if len(conversations) != 1 || conversations[0].ID != 7 {
		t.Fatalf("conversations = %v", conversations)
	}
	if conversations[0].Question != "What are total sales?" {
		t.Fatalf("question = %q", conversations[0].Question)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecentConversationsEmptyHistory(t *testing.T) {
	store, mock := newMockStore(t, 24*time.Hour)
	now := time.Date(2024, 6, 2, 13, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM conversation_history WHERE expires_at <=").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM conversation_history").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "question", "sql_query", "results", "explanation", "created_at", "expires_at",
		}))
	mock.ExpectClose()

	conversations, purged, err := store.RecentConversations(context.Background(), now)
	if err != nil {
		t.Fatalf("RecentConversations() error = %v", err)
	}
	if purged != 0 || len(conversations) != 0 {
		t.Fatalf("purged = %d, conversations = %v", purged, conversations)
	}
}

func TestRecentConversationsSurfacesQueryError(t *testing.T) {
	store, mock := newMockStore(t, 24*time.Hour)
	now := time.Now()
	mock.ExpectExec("DELETE FROM conversation_history WHERE expires_at <=").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectClose()

	if _, _, err := store.RecentConversations(context.Background(), now); err == nil {
		t.Fatal("expected error when the purge fails")
	}
}
