package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sw33tLie/valuestream/internal/utils"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.GetSetting(ctx, KeyOriginOverride); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.PutSetting(ctx, KeyOriginOverride, "https://a.example"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.PutSetting(ctx, KeyOriginOverride, "https://b.example"); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := db.GetSetting(ctx, KeyOriginOverride)
	if err != nil || v != "https://b.example" {
		t.Fatalf("expected overwritten value, got %q, %v", v, err)
	}
	if err := db.DeleteSetting(ctx, KeyOriginOverride); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetSetting(ctx, KeyOriginOverride); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSettingsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.sqlite")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.PutSetting(ctx, KeyOriginOverride, "https://c.example"); err != nil {
		t.Fatalf("put: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	v, err := db.GetSetting(ctx, KeyOriginOverride)
	if err != nil || v != "https://c.example" {
		t.Fatalf("expected persisted value, got %q, %v", v, err)
	}
}

func TestLogZapKeepsFirstRecord(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first := ZapEntry{RunID: "r1", ContentURL: "https://x.com/alice/status/1", ContentID: 7, AmountSats: 1000, Outcome: OutcomeDone, PaymentHash: "abc"}
	if err := db.LogZap(ctx, first); err != nil {
		t.Fatalf("log: %v", err)
	}
	dup := first
	dup.Outcome = OutcomeFailed
	if err := db.LogZap(ctx, dup); err != nil {
		t.Fatalf("log dup: %v", err)
	}
	if err := db.LogZap(ctx, ZapEntry{RunID: "r2", ContentURL: "https://x.com/bob/status/2", AmountSats: 1000, Outcome: OutcomeCancelled}); err != nil {
		t.Fatalf("log: %v", err)
	}

	got, err := db.ListRecentZaps(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	byRun := map[string]ZapEntry{}
	for _, e := range got {
		byRun[e.RunID] = e
	}
	if byRun["r1"].Outcome != OutcomeDone || byRun["r1"].ContentID != 7 || byRun["r1"].PaymentHash != "abc" {
		t.Fatalf("unexpected r1 entry: %+v", byRun["r1"])
	}
	if byRun["r2"].ContentID != 0 || byRun["r2"].PaymentHash != "" {
		t.Fatalf("expected nulls to scan as zero values: %+v", byRun["r2"])
	}
}

func TestLogZapRejectsIncompleteEntries(t *testing.T) {
	db := openTestDB(t)
	if err := db.LogZap(context.Background(), ZapEntry{ContentURL: "https://x.com/a/status/1"}); err == nil {
		t.Fatalf("expected error for missing run id")
	}
}

func TestNormalizeContentURL(t *testing.T) {
	cases := map[string]string{
		"https://X.com/alice/status/123?s=20&t=abc": "https://x.com/alice/status/123",
		"https://x.com/alice/status/123/":           "https://x.com/alice/status/123",
		"https://x.com/alice/status/123#frag":       "https://x.com/alice/status/123",
		"  ":                                        "",
		"not a url":                                 "not a url",
	}
	for in, want := range cases {
		if got := NormalizeContentURL(in); got != want {
			t.Fatalf("NormalizeContentURL(%q) = %q, want %q", in, got, want)
		}
	}
}

type countingLock struct {
	held, locks int
}

func (l *countingLock) Lock() error   { l.held++; l.locks++; return nil }
func (l *countingLock) Unlock() error { l.held--; return nil }

func TestWriteLockHeldOnlyAroundWrites(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	l := &countingLock{}
	db.SetWriteLock(l)

	if err := db.PutSetting(ctx, "k", "v"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.LogZap(ctx, ZapEntry{RunID: "r", ContentURL: "u", Outcome: OutcomeDone}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := db.DeleteSetting(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetSetting(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.ListRecentZaps(ctx, 5); err != nil {
		t.Fatalf("list: %v", err)
	}
	if l.locks != 3 || l.held != 0 {
		t.Fatalf("expected 3 balanced write locks, got locks=%d held=%d", l.locks, l.held)
	}
}

// A long-lived handle (the gateway) must not keep other processes from
// writing to the same database.
func TestServingHandleDoesNotBlockWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.sqlite")

	open := func() *DB {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		l, err := utils.NewDBLock(path)
		if err != nil {
			t.Fatalf("lock: %v", err)
		}
		db.SetWriteLock(l)
		t.Cleanup(func() { db.Close() })
		return db
	}
	serving := open()
	if err := serving.PutSetting(ctx, KeyOriginOverride, "https://a.example"); err != nil {
		t.Fatalf("serving put: %v", err)
	}

	writer := open()
	done := make(chan error, 1)
	go func() { done <- writer.PutSetting(ctx, KeyOriginOverride, "https://b.example") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("writer put: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("writer blocked while another handle is open")
	}

	if v, err := serving.GetSetting(ctx, KeyOriginOverride); err != nil || v != "https://b.example" {
		t.Fatalf("serving handle sees %q, %v", v, err)
	}
}
