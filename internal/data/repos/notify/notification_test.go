package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
)

func TestNotificationRepoReadState(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	me := testutil.SeedUser(t, ctx, tx, "me@example.com", "DPANEF")
	other := testutil.SeedUser(t, ctx, tx, "other@example.com", "DPANEF")

	repo := NewNotificationRepo(db, testutil.Logger(t))
	rows, err := repo.Create(dbc, []*types.Notification{
		{RecipientUserID: me.ID, Type: "VALIDATION", Title: "PDFCP concerté"},
		{RecipientUserID: me.ID, Type: "VALIDATION", Title: "PDFCP validé"},
		{RecipientUserID: other.ID, Type: "VALIDATION", Title: "PDFCP validé"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(rows) != 3 || rows[0].Severity != "info" {
		t.Fatalf("Create: unexpected rows: %+v", rows)
	}

	unread, err := repo.CountUnread(dbc, me.ID)
	if err != nil {
		t.Fatalf("CountUnread: %v", err)
	}
	if unread != 2 {
		t.Fatalf("CountUnread: expected 2, got %d", unread)
	}

	ok, err := repo.MarkRead(dbc, other.ID, rows[0].ID)
	if err != nil {
		t.Fatalf("MarkRead(other): %v", err)
	}
	if ok {
		t.Fatalf("MarkRead(other): must not touch another user's notification")
	}
	ok, err = repo.MarkRead(dbc, me.ID, rows[0].ID)
	if err != nil || !ok {
		t.Fatalf("MarkRead: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkRead(dbc, me.ID, uuid.New())
	if err != nil || ok {
		t.Fatalf("MarkRead(unknown): ok=%v err=%v", ok, err)
	}

	list, err := repo.ListForUser(dbc, me.ID, true, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 1 || list[0].ID != rows[1].ID {
		t.Fatalf("ListForUser: expected only the unread row, got %+v", list)
	}

	n, err := repo.MarkAllRead(dbc, me.ID)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if n != 1 {
		t.Fatalf("MarkAllRead: expected 1, got %d", n)
	}
	unread, err = repo.CountUnread(dbc, other.ID)
	if err != nil {
		t.Fatalf("CountUnread(other): %v", err)
	}
	if unread != 1 {
		t.Fatalf("CountUnread(other): expected 1, got %d", unread)
	}
}
