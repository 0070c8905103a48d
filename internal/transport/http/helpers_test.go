package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/auth"
	"github.com/motormarket/motorchat-server/internal/chat"
	"github.com/motormarket/motorchat-server/internal/config"
	"github.com/motormarket/motorchat-server/internal/proto"
	"github.com/motormarket/motorchat-server/internal/store"
	"github.com/motormarket/motorchat-server/internal/store/sqlite"
)

type testServer struct {
	t     *testing.T
	url   string
	store store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	logger := zerolog.Nop()
	authSvc := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})
	chatSvc := chat.NewService(st, &logger)

	srv := NewServer(chatSvc, authSvc, st, &cfg, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = st.Close()
	})

	return &testServer{t: t, url: ts.URL, store: st}
}

// registerUser creates an account through the API and returns its token and
// store id.
func (ts *testServer) registerUser(username string) (token string, id int64) {
	ts.t.Helper()

	resp := ts.request(stdhttp.MethodPost, "/api/register", "", RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		ts.t.Fatalf("register %s: status %d: %s", username, resp.StatusCode, body)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		ts.t.Fatalf("decode register response: %v", err)
	}

	user, err := ts.store.GetUserByUsername(context.Background(), username)
	if err != nil {
		ts.t.Fatalf("look up registered user: %v", err)
	}
	return authResp.Token, user.ID
}

func (ts *testServer) request(method, path, token string, body any) *stdhttp.Response {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := stdhttp.NewRequest(method, ts.url+path, reader)
	if err != nil {
		ts.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// requestJSON performs a request, asserts the status, and decodes the body.
func (ts *testServer) requestJSON(method, path, token string, body any, wantStatus int, out any) {
	ts.t.Helper()

	resp := ts.request(method, path, token, body)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatalf("read response body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		ts.t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			ts.t.Fatalf("decode response: %v: %s", err, raw)
		}
	}
}

// dialWS opens an authenticated socket connection.
func (ts *testServer) dialWS(ctx context.Context, token string) *websocket.Conn {
	ts.t.Helper()

	url := strings.Replace(ts.url, "http", "ws", 1) + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		ts.t.Fatalf("dial ws: %v", err)
	}
	ts.t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

// outboundEnvelope mirrors the wire envelope with a raw payload so tests can
// decode the part they care about.
type outboundEnvelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *proto.Error    `json:"error,omitempty"`
}

// readUntil reads frames until one matches the wanted type and event,
// skipping presence and unread pushes that connecting triggers.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, wantType, wantEvent string) outboundEnvelope {
	t.Helper()

	deadline, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for {
		var env outboundEnvelope
		if err := wsjson.Read(deadline, conn, &env); err != nil {
			t.Fatalf("waiting for %s/%s: %v", wantType, wantEvent, err)
		}
		if env.Type == wantType && (wantEvent == "" || env.Event == wantEvent) {
			return env
		}
	}
}

func writeInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}
