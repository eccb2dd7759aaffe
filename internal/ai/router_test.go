package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amagraneronline/curso-python/internal/ai"
)

func named(name, response string) *ai.MockProvider {
	return &ai.MockProvider{ProviderName: name, Response: response}
}

func failing(name string, err error) *ai.MockProvider {
	return &ai.MockProvider{ProviderName: name, Err: err}
}

func TestRouter_SingleProvider(t *testing.T) {
	router := ai.NewRouter()
	router.Register(named("openai", "Hello!"))

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hello!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello!")
	}
}

func TestRouter_Fallback(t *testing.T) {
	router := ai.NewRouter()
	router.Register(failing("google", errors.New("rate limited")))
	router.Register(named("ollama", "Fallback response"))

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Fallback response" {
		t.Errorf("Content = %q, want %q", resp.Content, "Fallback response")
	}
}

func TestRouter_AllProvidersFail(t *testing.T) {
	router := ai.NewRouter()
	cause := errors.New("fail 2")
	router.Register(failing("openai", errors.New("fail 1")))
	router.Register(failing("ollama", cause))

	_, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err == nil {
		t.Fatal("Complete() should return error when all providers fail")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap each provider failure, got %v", err)
	}
}

func TestRouter_NoProviders(t *testing.T) {
	router := ai.NewRouter()

	_, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if !errors.Is(err, ai.ErrNoProvider) {
		t.Fatalf("Complete() error = %v, want ErrNoProvider", err)
	}
	if err := router.HealthCheck(context.Background()); !errors.Is(err, ai.ErrNoProvider) {
		t.Errorf("HealthCheck() error = %v, want ErrNoProvider", err)
	}
}

func TestRouter_CancelledContextStopsChain(t *testing.T) {
	router := ai.NewRouter()
	second := named("second", "never")
	router.Register(failing("first", errors.New("boom")))
	router.Register(second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := router.Complete(ctx, ai.CompletionRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
	if second.Calls() != 0 {
		t.Errorf("second provider called %d times, want 0", second.Calls())
	}
}

func TestRouter_HasProvider(t *testing.T) {
	router := ai.NewRouter()
	if router.HasProvider() {
		t.Error("HasProvider() should be false with no providers")
	}

	router.Register(ai.NewMockProvider("ok"))
	if !router.HasProvider() {
		t.Error("HasProvider() should be true after Register")
	}
}

func TestRouter_FallbackOrder(t *testing.T) {
	router := ai.NewRouter()

	// First registered should be tried first.
	router.Register(named("first", "first"))
	router.Register(named("second", "second"))

	resp, err := router.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "first" {
		t.Errorf("Content = %q, want %q (first registered should be tried first)", resp.Content, "first")
	}

	got := router.Providers()
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Providers() = %v, want [first second]", got)
	}
}

func TestRouter_ReRegisterKeepsPosition(t *testing.T) {
	router := ai.NewRouter()
	router.Register(named("a", "old"))
	router.Register(named("b", "b"))
	router.Register(named("a", "new"))

	resp, _ := router.Complete(context.Background(), ai.CompletionRequest{})
	if resp.Content != "new" {
		t.Errorf("Content = %q, want new", resp.Content)
	}
	if n := len(router.Providers()); n != 2 {
		t.Errorf("len(Providers()) = %d, want 2", n)
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router := ai.NewRouter()
	router.Register(failing("down", errors.New("down")))
	router.Register(named("up", "ok"))

	if err := router.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil when one provider is healthy", err)
	}
}
