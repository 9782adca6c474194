package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MEKXH/funbot/internal/bus"
	"github.com/MEKXH/funbot/internal/config"
	"github.com/MEKXH/funbot/internal/help"
	"github.com/MEKXH/funbot/internal/metrics"
	"github.com/MEKXH/funbot/internal/version"
)

type mockProcessor struct {
	gotChat      string
	gotSender    string
	gotMessage   string
	gotRequestID string
	resp         string
	err          error
}

func (m *mockProcessor) Process(ctx context.Context, channel, chatID, senderID, content string) (string, error) {
	m.gotChat = channel + ":" + chatID
	m.gotSender = senderID
	m.gotMessage = content
	m.gotRequestID = bus.RequestIDFromContext(ctx)
	if m.err != nil {
		return "", m.err
	}
	return m.resp, nil
}

func (m *mockProcessor) HelpTrees() []*help.Node {
	return []*help.Node{
		help.New().SetName("ping").SetDescription("Ping the bot"),
		help.New().SetName("quote").SetDescription("Request a quote from the internet").
			AddChild(help.New().SetName("random").SetDescription("Request a random quote")),
	}
}

func decodeJSON(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}
	if body["request_id"] == "" {
		t.Fatal("expected non-empty request_id")
	}
}

func TestVersionEndpoint(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	info := version.Get()
	if body["version"] != info.Version {
		t.Fatalf("expected version=%s, got %v", info.Version, body["version"])
	}
	if body["platform"] != info.Platform {
		t.Fatalf("expected platform=%s, got %v", info.Platform, body["platform"])
	}
}

func TestCommandUnauthorized(t *testing.T) {
	h := NewHandler("secret-token", &mockProcessor{resp: "ok"})
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(`{"command":"/ping"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "unauthorized" {
		t.Fatalf("expected code=unauthorized, got %v", body["code"])
	}
}

func TestCommandBadRequest(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(`{"command":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "bad_request" {
		t.Fatalf("expected code=bad_request, got %v", body["code"])
	}
}

func TestCommandBodyTooLarge(t *testing.T) {
	processor := &mockProcessor{resp: "ok"}
	h := NewHandler("", processor)
	payload := `{"command":"/quote random ` + strings.Repeat("a", maxCommandBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "too_large" {
		t.Fatalf("expected code=too_large, got %v", body["code"])
	}
	if processor.gotMessage != "" {
		t.Fatalf("oversized request must not reach the processor, got %q", processor.gotMessage)
	}
}

func TestCommandSuccess(t *testing.T) {
	processor := &mockProcessor{resp: "hello back"}
	h := NewHandler("secret-token", processor)
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(`{"command":"joke random","chat_id":"s1","sender_id":"u1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if processor.gotChat != "gateway:s1" {
		t.Fatalf("expected chat gateway:s1, got %s", processor.gotChat)
	}
	if processor.gotSender != "u1" {
		t.Fatalf("expected sender u1, got %s", processor.gotSender)
	}
	if processor.gotMessage != "/joke random" {
		t.Fatalf("expected slash-prefixed command, got %s", processor.gotMessage)
	}
	if processor.gotRequestID != "req-42" {
		t.Fatalf("expected request id passed through context, got %q", processor.gotRequestID)
	}

	body := decodeJSON(t, rr.Body)
	if body["response"] != "hello back" {
		t.Fatalf("expected response=hello back, got %v", body["response"])
	}
	if body["chat_id"] != "s1" || body["request_id"] != "req-42" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestCommandInternalError(t *testing.T) {
	processor := &mockProcessor{err: errors.New("dispatcher down")}
	h := NewHandler("", processor)
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(`{"command":"/ping"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "internal_error" {
		t.Fatalf("expected code=internal_error, got %v", body["code"])
	}
}

func TestCommandMissing(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(`{"command":"  "}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCommandMethodNotAllowed(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/command", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHelpEndpoint_Overview(t *testing.T) {
	h := NewHandler("secret-token", &mockProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/help", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 without token, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	want := "commands -- Available slash commands\n" +
		"    Subcommands:\n" +
		"        ping -- Ping the bot\n" +
		"        quote -- Request a quote from the internet\n" +
		"            Subcommands:\n" +
		"                        random -- Request a random quote\n" +
		"\n"
	if body["help"] != want {
		t.Fatalf("unexpected overview:\n%q\nwant\n%q", body["help"], want)
	}
}

func TestHelpEndpoint_SingleCommandText(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/help?command=/Ping&format=text", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("expected text/plain, got %s", rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != "ping -- Ping the bot" {
		t.Fatalf("unexpected help body: %q", rr.Body.String())
	}
}

func TestHelpEndpoint_UnknownCommand(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/help?command=nope", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	body := decodeJSON(t, rr.Body)
	if body["code"] != "not_found" {
		t.Fatalf("expected code=not_found, got %v", body["code"])
	}
}

func TestServerAddrDefaults(t *testing.T) {
	s := New(config.GatewayConfig{}, &mockProcessor{})
	if s.Addr() != "127.0.0.1:18791" {
		t.Fatalf("unexpected default addr: %s", s.Addr())
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown before start should be a no-op, got %v", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.NewRecorder("")
	_, _ = recorder.ObserveCommand("ping", 10*time.Millisecond, "pong", nil)

	h := NewHandlerWithMetrics("secret-token", &mockProcessor{}, recorder.Gatherer())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `funbot_commands_total{command="ping",result="ok"} 1`) {
		t.Fatalf("expected command counter in metrics output, got:\n%s", rr.Body.String())
	}
}

func TestMetricsEndpoint_AbsentWithoutGatherer(t *testing.T) {
	h := NewHandler("", &mockProcessor{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
