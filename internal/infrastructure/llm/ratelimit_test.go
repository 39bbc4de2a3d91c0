package llm

import (
	"context"
	"testing"

	"NewsCurator/internal/ports"
)

type countingModel struct {
	calls int
}

func (c *countingModel) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	c.calls++
	return "ok", nil
}

func TestNewRateLimitedDisabled(t *testing.T) {
	t.Parallel()

	inner := &countingModel{}
	if got := NewRateLimited(inner, 0); got != ports.ChatModel(inner) {
		t.Fatalf("expected passthrough when limit is disabled")
	}
}

func TestRateLimitedDelegates(t *testing.T) {
	t.Parallel()

	inner := &countingModel{}
	limited := NewRateLimited(inner, 600)
	if _, err := limited.Complete(context.Background(), ports.ChatRequest{}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected one delegated call, got %d", inner.calls)
	}
}

func TestRateLimitedHonorsContext(t *testing.T) {
	t.Parallel()

	inner := &countingModel{}
	limited := NewRateLimited(inner, 1)
	if _, err := limited.Complete(context.Background(), ports.ChatRequest{}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := limited.Complete(ctx, ports.ChatRequest{}); err == nil {
		t.Fatalf("expected context error on second call")
	}
	if inner.calls != 1 {
		t.Fatalf("cancelled call must not reach the model, calls=%d", inner.calls)
	}
}

func TestResponseTextSkipsEmptyCandidates(t *testing.T) {
	t.Parallel()

	if got := responseText(nil); got != "" {
		t.Fatalf("nil response should give empty text, got %q", got)
	}
}
