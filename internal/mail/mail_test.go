package mail

import (
	"context"
	"testing"
)

func TestOutboxKeepsLastCode(t *testing.T) {
	t.Parallel()

	outbox := NewOutbox()
	ctx := context.Background()
	_ = outbox.SendLoginCode(ctx, "Writer@Example.com", "111111")
	_ = outbox.SendLoginCode(ctx, "writer@example.com", "222222")

	code, ok := outbox.LastCode(" WRITER@example.com ")
	if !ok || code != "222222" {
		t.Fatalf("expected last code 222222, got %q (%v)", code, ok)
	}
	if _, ok := outbox.LastCode("other@example.com"); ok {
		t.Fatalf("expected no code for other address")
	}
	if err := (LogSender{From: "noreply@example.com"}).SendLoginCode(ctx, "writer@example.com", "333333"); err != nil {
		t.Fatalf("log sender: %v", err)
	}
}
