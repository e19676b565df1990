package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yking-ly/nyaya/internal/core/domain"
)

func TestEnsureConversationInsertsAndReturnsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("user-1", "conv-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM conversations").
		WithArgs("user-1", "conv-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "conversation_id", "created_at", "updated_at"}).
			AddRow("user-1", "conv-1", created, created))

	repo := NewConversationRepository(db)
	conv, err := repo.EnsureConversation(context.Background(), "user-1", "conv-1")
	if err != nil {
		t.Fatalf("EnsureConversation() error = %v", err)
	}
	if conv.ConversationID != "conv-1" || conv.UserID != "user-1" {
		t.Fatalf("conversation = %+v", conv)
	}
	if !conv.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", conv.CreatedAt, created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendMessageFillsCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs("msg-1", "user-1", "conv-1", "user", "what is theft", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewConversationRepository(db)
	err = repo.AppendMessage(context.Background(), domain.ConversationMessage{
		ID:             "msg-1",
		UserID:         "user-1",
		ConversationID: "conv-1",
		Role:           "user",
		Content:        "what is theft",
	})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListRecentMessagesReturnsChronologicalOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	// SQL returns newest first; the repository reverses to chronological.
	rows := sqlmock.NewRows([]string{"id", "user_id", "conversation_id", "role", "content", "created_at"}).
		AddRow("m3", "user-1", "conv-1", "user", "third", base.Add(2*time.Minute)).
		AddRow("m2", "user-1", "conv-1", "assistant", "second", base.Add(time.Minute)).
		AddRow("m1", "user-1", "conv-1", "user", "first", base)
	mock.ExpectQuery("FROM conversation_messages").
		WithArgs("user-1", "conv-1", 3).
		WillReturnRows(rows)

	repo := NewConversationRepository(db)
	messages, err := repo.ListRecentMessages(context.Background(), "user-1", "conv-1", 3)
	if err != nil {
		t.Fatalf("ListRecentMessages() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(messages))
	}
	if messages[0].ID != "m1" || messages[2].ID != "m3" {
		t.Fatalf("order = [%s %s %s], want chronological", messages[0].ID, messages[1].ID, messages[2].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListRecentMessagesZeroLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewConversationRepository(db)
	messages, err := repo.ListRecentMessages(context.Background(), "user-1", "conv-1", 0)
	if err != nil {
		t.Fatalf("ListRecentMessages() error = %v", err)
	}
	if messages != nil {
		t.Fatalf("messages = %v, want nil", messages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
