package discord

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/oboji/internal/bot"
)

type memInventory struct {
	mu    sync.Mutex
	items map[string][]string
}

func (m *memInventory) AddItem(_ context.Context, userID, item string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string][]string{}
	}
	m.items[userID] = append(m.items[userID], item)
	return len(m.items[userID]), nil
}

func (m *memInventory) Render(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.items[userID], ",")
}

type slowAsker struct {
	answer string
}

func (a slowAsker) Ask(ctx context.Context, question, _ string) string {
	select {
	case <-time.After(20 * time.Millisecond):
	case <-ctx.Done():
		return "timeout"
	}
	return a.answer + question
}

type captureFollowUps struct {
	mu      sync.Mutex
	token   string
	content string
}

func (c *captureFollowUps) EditOriginal(_ context.Context, token, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.content = content
	return nil
}

func newTestHandler(t *testing.T, opts ...HandlerOption) (*Handler, *memInventory) {
	t.Helper()
	inv := &memInventory{}
	router, err := bot.NewDefaultRouter(bot.Deps{Inventory: inv, AI: slowAsker{answer: "re: "}})
	if err != nil {
		t.Fatalf("NewDefaultRouter: %v", err)
	}
	return NewHandler(router, opts...), inv
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) (*httptest.ResponseRecorder, InteractionResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp InteractionResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestHandlerPing(t *testing.T) {
	h, _ := newTestHandler(t)
	rec, resp := post(t, h, `{"type":1}`, nil)
	if rec.Code != http.StatusOK || resp.Type != ResponsePong {
		t.Fatalf("got %d %+v", rec.Code, resp)
	}
}

func TestHandlerCommandFlow(t *testing.T) {
	h, inv := newTestHandler(t)

	_, resp := post(t, h, `{"type":2,"token":"t","member":{"user":{"id":"42"}},"data":{"name":"item_append","options":[{"name":"item","type":3,"value":" potion "}]}}`, nil)
	if resp.Type != ResponseChannelMessage || resp.Data == nil || resp.Data.Content != "✅ Item adicionado: potion" {
		t.Fatalf("item_append response = %+v", resp)
	}
	if got := inv.Render("42"); got != "potion" {
		t.Errorf("inventory = %q", got)
	}

	_, resp = post(t, h, `{"type":2,"token":"t","user":{"id":"42"},"data":{"name":"inventory"}}`, nil)
	if resp.Data == nil || resp.Data.Content != "potion" {
		t.Errorf("inventory response = %+v", resp)
	}
}

func TestHandlerRendersErrors(t *testing.T) {
	h, _ := newTestHandler(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown", `{"type":2,"user":{"id":"1"},"data":{"name":"dance"}}`, "⚠️ Comando desconhecido: dance"},
		{"missing option", `{"type":2,"user":{"id":"1"},"data":{"name":"item_append"}}`, "⚠️ Parâmetro obrigatório ausente: item"},
		{"wrong type", `{"type":2,"user":{"id":"1"},"data":{"name":"item_append","options":[{"name":"item","type":4,"value":7}]}}`, "⚠️ Parâmetro inválido: item"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := post(t, h, tt.body, nil)
			if resp.Data == nil || resp.Data.Content != tt.want {
				t.Errorf("response = %+v, want %q", resp, tt.want)
			}
		})
	}
}

func TestHandlerBadRequests(t *testing.T) {
	h, _ := newTestHandler(t)
	if rec, _ := post(t, h, `not json`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d", rec.Code)
	}
	if rec, _ := post(t, h, `{"type":9}`, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d", rec.Code)
	}
}

func TestHandlerSignature(t *testing.T) {
	pub, priv := newKeyPair(t)
	v, err := NewVerifier(hex.EncodeToString(pub))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	h, _ := newTestHandler(t, WithVerifier(v))
	body := `{"type":1}`

	rec, _ := post(t, h, body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unsigned status = %d, want 401", rec.Code)
	}

	ts := "1700000000"
	headers := map[string]string{
		HeaderSignature: hex.EncodeToString(ed25519.Sign(priv, []byte(ts+body))),
		HeaderTimestamp: ts,
	}
	rec, resp := post(t, h, body, headers)
	if rec.Code != http.StatusOK || resp.Type != ResponsePong {
		t.Errorf("signed ping = %d %+v", rec.Code, resp)
	}
}

func TestHandlerDeferredFollowUp(t *testing.T) {
	sender := &captureFollowUps{}
	h, _ := newTestHandler(t, WithFollowUps(sender), WithFollowUpTimeout(time.Second))

	_, resp := post(t, h, `{"type":2,"token":"itok","user":{"id":"7"},"data":{"name":"obojichat","options":[{"name":"message","type":3,"value":"oi"}]}}`, nil)
	if resp.Type != ResponseDeferredChannelMessage {
		t.Fatalf("response type = %d, want deferred", resp.Type)
	}
	h.Wait()

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.token != "itok" || sender.content != "re: oi" {
		t.Errorf("follow-up = %q %q", sender.token, sender.content)
	}
}

func TestHandlerDeferredWithoutSenderAnswersInline(t *testing.T) {
	h, _ := newTestHandler(t)
	_, resp := post(t, h, `{"type":2,"user":{"id":"7"},"data":{"name":"obojichat","options":[{"name":"message","type":3,"value":"oi"}]}}`, nil)
	if resp.Type != ResponseChannelMessage || resp.Data == nil || resp.Data.Content != "re: oi" {
		t.Errorf("response = %+v", resp)
	}
}

func TestMessageTruncates(t *testing.T) {
	resp := message(strings.Repeat("x", MaxContentLength*2))
	if len(resp.Data.Content) != MaxContentLength {
		t.Errorf("content length = %d", len(resp.Data.Content))
	}
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(resp)
	if !strings.Contains(buf.String(), `"type":4`) {
		t.Errorf("encoded = %s", buf.String())
	}
}
