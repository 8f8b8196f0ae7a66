package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func captureBase(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := L
	L = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { L = old })
	return &buf
}

func TestEventAppendsContextMeta(t *testing.T) {
	buf := captureBase(t)

	ctx := WithRID(context.Background(), "1:99:42")
	ctx = WithUpdateMeta(ctx, 1, 42, 99)
	Info(ctx, "tg", "update.received", slog.Int("update_id", 1))

	out := buf.String()
	for _, want := range []string{
		`"component":"tg"`,
		`"event":"update.received"`,
		`"rid":"1:99:42"`,
		`"user_id":42`,
		`"chat_id":99`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %s:\n%s", want, out)
		}
	}
}

func TestEventOmitsAbsentMeta(t *testing.T) {
	buf := captureBase(t)

	Info(context.Background(), "db", "orders.create")

	out := buf.String()
	for _, absent := range []string{`"rid"`, `"user_id"`, `"chat_id"`} {
		if strings.Contains(out, absent) {
			t.Errorf("log line must not carry %s without context meta:\n%s", absent, out)
		}
	}
}

func TestStatus(t *testing.T) {
	if got := Status(nil); got != "ok" {
		t.Errorf("Status(nil) = %q", got)
	}
	if got := Status(errors.New("boom")); got != "error" {
		t.Errorf("Status(err) = %q", got)
	}
}

func TestUpdateMetaRoundTrip(t *testing.T) {
	ctx := WithUpdateMeta(context.Background(), 7, 42, 99)

	if got := UserIDFrom(ctx); got != 42 {
		t.Errorf("user id = %d", got)
	}
	if got := ChatIDFrom(ctx); got != 99 {
		t.Errorf("chat id = %d", got)
	}
	if got := UserIDFrom(context.Background()); got != 0 {
		t.Errorf("user id without meta = %d", got)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\ncd", 3); got != "ab\n" {
		t.Errorf("sanitized = %q", got)
	}
	if got := SanitizeLimit("text", 0); got != "" {
		t.Errorf("zero limit = %q", got)
	}
}
