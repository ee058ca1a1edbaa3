package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
		{"fence with trailing prose stripped only at edges", "```json\n{}\n```", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("StripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewClient_Providers(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		available bool
	}{
		{"disabled", Config{Provider: "disabled"}, false, false},
		{"empty provider", Config{}, false, false},
		{"anthropic without key", Config{Provider: "anthropic"}, true, false},
		{"openai without key", Config{Provider: "openai"}, true, false},
		{"anthropic with key", Config{Provider: "anthropic", APIKey: "k"}, false, true},
		{"openai with key", Config{Provider: "openai", APIKey: "k"}, false, true},
		{"unknown", Config{Provider: "bard"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewClient() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			if client.Available() != tt.available {
				t.Errorf("Available() = %v, want %v", client.Available(), tt.available)
			}
		})
	}
}

func TestNoOpClient_ReturnsNotConfigured(t *testing.T) {
	c := &NoOpClient{}
	_, err := c.Complete(context.Background(), "hello")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Complete() error = %v, want ErrNotConfigured", err)
	}
}

func TestOpenAIClient_CompleteStructuredAppendsInstruction(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	out, err := client.CompleteStructured(context.Background(), "extract things")
	if err != nil {
		t.Fatalf("CompleteStructured() error = %v", err)
	}
	if out != "{}" {
		t.Errorf("CompleteStructured() = %q, want {}", out)
	}
	if !strings.Contains(gotBody, "Respond ONLY with valid JSON") {
		t.Error("request body missing JSON-only instruction")
	}
}

func TestAnthropicClient_NonRetryableErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad prompt"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{Provider: "anthropic", APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Complete(context.Background(), "p")
	if err == nil || !strings.Contains(err.Error(), "bad prompt") {
		t.Errorf("Complete() error = %v, want API error with message", err)
	}
}

func TestScrubSecrets(t *testing.T) {
	in := "my key is sk-abcdefghijklmnopqrstuvwxyz123456 and password=hunter22"
	out := scrubSecrets(in)
	if strings.Contains(out, "sk-abcdefghijklmnop") {
		t.Error("OpenAI-style key not scrubbed")
	}
	if strings.Contains(out, "hunter22") {
		t.Error("password not scrubbed")
	}
}
