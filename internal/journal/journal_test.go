package journal_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/flitsinc/devserve/internal/journal"
	"github.com/flitsinc/devserve/internal/testutil"
)

func TestJournalRecordAndList(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	j := journal.New(db)
	ctx := context.Background()

	first, err := j.Record(ctx, journal.Entry{Method: http.MethodGet, Path: "/index.html", Status: 200, Bytes: 512, Duration: 3 * time.Millisecond, UserAgent: "test"})
	if err != nil {
		t.Fatalf("record first: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", first)
	}
	second, err := j.Record(ctx, journal.Entry{Method: http.MethodGet, Path: "/js/main.js", Status: 404})
	if err != nil {
		t.Fatalf("record second: %v", err)
	}

	items, err := j.List(ctx, journal.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(items))
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Fatalf("expected newest first")
	}
	if items[1].Duration != 3*time.Millisecond || items[1].Bytes != 512 || items[1].UserAgent != "test" {
		t.Fatalf("round trip lost fields: %+v", items[1])
	}

	missing, err := j.List(ctx, journal.ListOptions{Status: 404})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(missing) != 1 || missing[0].Path != "/js/main.js" {
		t.Fatalf("unexpected status filter result %+v", missing)
	}

	byPath, err := j.List(ctx, journal.ListOptions{Path: "/index.html", Limit: 10})
	if err != nil {
		t.Fatalf("list by path: %v", err)
	}
	if len(byPath) != 1 || byPath[0].ID != first.ID {
		t.Fatalf("unexpected path filter result %+v", byPath)
	}
}

func TestJournalRejectsIncompleteEntries(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	j := journal.New(db)
	if _, err := j.Record(context.Background(), journal.Entry{Path: "/"}); err == nil {
		t.Fatalf("expected error without method")
	}
	if _, err := j.Record(context.Background(), journal.Entry{Method: http.MethodGet}); err == nil {
		t.Fatalf("expected error without path")
	}
}

func TestJournalLimitPrunesOldest(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	j := journal.New(db)
	j.Limit = 3
	ctx := context.Background()

	var last journal.Entry
	for i := 0; i < 5; i++ {
		var err error
		last, err = j.Record(ctx, journal.Entry{Method: http.MethodGet, Path: "/", Status: 200})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	n, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows after pruning, got %d", n)
	}
	items, err := j.List(ctx, journal.ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].ID != last.ID {
		t.Fatalf("expected newest entry to survive")
	}
}

func TestJournalSubscribe(t *testing.T) {
	db, closeFn := testutil.OpenTestDB(t)
	defer closeFn()

	j := journal.New(db)
	ctx, cancel := context.WithCancel(context.Background())
	sub := j.Subscribe(ctx)
	if j.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}

	go func() {
		_, _ = j.Record(context.Background(), journal.Entry{Method: http.MethodGet, Path: "/css/app.css", Status: 200})
	}()

	select {
	case e := <-sub:
		if e.Path != "/css/app.css" {
			t.Fatalf("unexpected path %s", e.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for entry")
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := <-sub; !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("subscription not closed")
		default:
		}
	}
	if j.SubscriberCount() != 0 {
		t.Fatalf("expected subscriber removed")
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := journal.Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	j := journal.New(db)
	if _, err := j.Record(context.Background(), journal.Entry{Method: http.MethodHead, Path: "/"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	n, err := j.Count(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected 1 row, got %d (%v)", n, err)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")
	db, err := journal.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = db.Close()
}
