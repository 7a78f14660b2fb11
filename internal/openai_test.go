package internal

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// Generate must be safe to call from several goroutines at once: the
// analyzer fires its aspect sub-calls concurrently, so the lazy client
// init is the first thing they contend on.
func TestLLMGenerateConcurrentInit(t *testing.T) {
	llm := NewLLMWithKey("sk-test-not-a-real-key", NopLogger())

	// A canceled context makes every completion fail fast without the
	// network, while still driving the shared client setup.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := llm.Generate(ctx, ChatRequest{Model: "gpt-4o-mini", User: "hello"}); err == nil {
				t.Error("expected error from canceled context")
			}
		}()
	}
	wg.Wait()
}

func TestLLMGenerateMissingKey(t *testing.T) {
	llm := NewLLMWithKey("", NopLogger())

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = llm.Generate(context.Background(), ChatRequest{Model: "gpt-4o-mini", User: "hello"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
			t.Errorf("expected missing-key error, got %v", err)
		}
	}
}

func TestLLMInjectedClientBypassesKeyCheck(t *testing.T) {
	chat := &fakeChat{respond: func(req ChatRequest) (string, error) {
		return "ok", nil
	}}
	llm := NewLLM(chat, NopLogger())

	resp, err := llm.Generate(context.Background(), ChatRequest{Model: "gpt-4o-mini", User: "hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}
}
