package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type staticKnowledge string

func (s staticKnowledge) Text(context.Context) string { return string(s) }

func TestAsk_EmptyKeyMakesNoRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL}, staticKnowledge("kb"))
	if got := c.Ask(context.Background(), "pergunta", ""); got != MsgNotConfigured {
		t.Errorf("Ask() = %q, want not-configured message", got)
	}
	if got := c.Ask(context.Background(), "pergunta", "   "); got != MsgNotConfigured {
		t.Errorf("Ask() with blank key = %q", got)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("server was called %d times", n)
	}
}

func TestAsk_SendsPromptAndReturnsAnswer(t *testing.T) {
	var gotKey, gotContentType, gotPrompt, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotKey = r.Header.Get("X-goog-api-key")
		gotContentType = r.Header.Get("Content-Type")
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"42"}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL}, staticKnowledge("A resposta é sempre 42."))
	got := c.Ask(context.Background(), "Qual a resposta?", "secret-key")
	if got != "42" {
		t.Errorf("Ask() = %q, want 42", got)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %s", gotMethod)
	}
	if gotKey != "secret-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if want := BuildPrompt("A resposta é sempre 42.", "Qual a resposta?"); gotPrompt != want {
		t.Errorf("prompt = %q, want %q", gotPrompt, want)
	}
}

func TestAsk_RequestBodyShape(t *testing.T) {
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	NewClient(Config{Endpoint: srv.URL}, nil).Ask(context.Background(), "q", "k")
	contents, ok := raw["contents"].([]interface{})
	if !ok || len(contents) != 1 || len(raw) != 1 {
		t.Fatalf("body = %v", raw)
	}
	parts := contents[0].(map[string]interface{})["parts"].([]interface{})
	if _, ok := parts[0].(map[string]interface{})["text"].(string); !ok {
		t.Errorf("parts[0].text missing: %v", parts)
	}
}

func TestAsk_UnexpectedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`},
		{"no content", `{"candidates":[{}]}`},
		{"no text", `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`},
		{"not json", `<html>oops</html>`},
		{"wrong type", `{"candidates":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()
			got := NewClient(Config{Endpoint: srv.URL}, nil).Ask(context.Background(), "q", "k")
			if !strings.HasPrefix(got, "⚠️ Erro ao interpretar a resposta da IA: ") {
				t.Errorf("Ask() = %q, want parse error message", got)
			}
		})
	}
}

func TestAsk_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	got := NewClient(Config{Endpoint: srv.URL}, nil).Ask(context.Background(), "q", "bad")
	if got != "⚠️ A IA retornou um erro (HTTP 403): API key not valid" {
		t.Errorf("Ask() = %q", got)
	}
}

func TestAsk_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	got := NewClient(Config{Endpoint: endpoint}, nil).Ask(context.Background(), "q", "k")
	if !strings.HasPrefix(got, "⚠️ Erro ao contatar a IA: ") {
		t.Errorf("Ask() = %q, want transport error", got)
	}
	if strings.Contains(got, endpoint) {
		t.Errorf("reply should not echo the endpoint: %q", got)
	}
}

func TestAsk_ClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	if got := c.Ask(context.Background(), "q", "k"); got != MsgTimeout {
		t.Errorf("Ask() = %q, want timeout message", got)
	}
}

func TestAsk_CallerDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c := NewClient(Config{Endpoint: srv.URL, Timeout: time.Minute}, nil)
	if got := c.Ask(ctx, "q", "k"); got != MsgTimeout {
		t.Errorf("Ask() = %q, want timeout message", got)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{}, nil)
	if c.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %s", c.endpoint)
	}
	if c.Timeout() != DefaultTimeout {
		t.Errorf("timeout = %v", c.Timeout())
	}
	c = NewClient(Config{Timeout: time.Second}, nil, WithHTTPClient(&http.Client{}))
	if c.Timeout() != time.Second {
		t.Errorf("custom client without timeout should get the configured bound, got %v", c.Timeout())
	}
}
