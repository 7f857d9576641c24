package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tutordex/internal/domain"
	"github.com/kailas-cloud/tutordex/internal/usecase/chat"
)

type mockChat struct {
	sendReq  chat.Request
	sendResp chat.Response
	sendErr  error
	session  domain.Session
	getErr   error
}

func (m *mockChat) Send(_ context.Context, req chat.Request) (chat.Response, error) {
	m.sendReq = req
	return m.sendResp, m.sendErr
}

func (m *mockChat) GetSession(_ context.Context, _ string) (domain.Session, error) {
	return m.session, m.getErr
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

func newTestRouter(svc *mockChat, pinger *mockPinger) http.Handler {
	r := gochi.NewRouter()
	NewServer(svc, pinger, zap.NewNop()).RegisterRoutes(r)
	return r
}

func TestSendMessage_OK(t *testing.T) {
	svc := &mockChat{sendResp: chat.Response{
		SessionID: "sess-abc",
		Answer:    "A node is a process.",
		Sources: []domain.RetrievalResult{{
			ChunkID: "cb-1",
			Unit: domain.ContentUnit{
				HeadingPath: []string{"ROS 2", "Nodes"},
				DocumentID:  "ch-3",
			},
			Score:   0.92,
			Excerpt: "A node...",
		}},
	}}
	router := newTestRouter(svc, &mockPinger{})

	body := `{"content": "What is a node?", "chapter_id": "ch-3", "selected_text": "node"}`
	req := httptest.NewRequest("POST", "/chat/message", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if svc.sendReq.ChapterID != "ch-3" || svc.sendReq.HighlightedText != "node" {
		t.Errorf("request mapping = %+v", svc.sendReq)
	}

	var resp chatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "sess-abc" || resp.Response != "A node is a process." {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Section != "ROS 2 > Nodes" {
		t.Errorf("sources = %+v", resp.Sources)
	}
	if resp.Error != nil {
		t.Errorf("error = %v, want null", *resp.Error)
	}
}

func TestSendMessage_DegradedCarriesDiagnostic(t *testing.T) {
	svc := &mockChat{sendResp: chat.Response{
		SessionID: "sess-abc",
		Answer:    "I apologize, but I encountered an error processing your question. Please try again.",
		Err:       "retrieval unavailable: index missing",
	}}
	router := newTestRouter(svc, &mockPinger{})

	req := httptest.NewRequest("POST", "/chat/message", strings.NewReader(`{"content": "q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("degraded responses stay 200, got %d", rr.Code)
	}
	var resp chatResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Error == nil || *resp.Error != "retrieval unavailable: index missing" {
		t.Errorf("error field = %v", resp.Error)
	}
}

func TestSendMessage_Validation(t *testing.T) {
	router := newTestRouter(&mockChat{}, &mockPinger{})

	tests := []struct {
		name string
		body string
	}{
		{"empty content", `{"content": ""}`},
		{"malformed json", `{"content": `},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/chat/message", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestGetSession_OK(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockChat{session: domain.Session{
		ID:        "sess-abc",
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
		Metadata:  map[string]string{"initial_chapter_id": "ch-1"},
		Turns: []domain.Turn{
			{ID: "msg-1", Role: domain.RoleUser, Content: "hi", CreatedAt: now},
			{ID: "msg-2", Role: domain.RoleAssistant, Content: "hello", CreatedAt: now,
				Sources: []domain.RetrievalResult{{ChunkID: "cb-1"}}},
		},
	}}
	router := newTestRouter(svc, &mockPinger{})

	req := httptest.NewRequest("GET", "/chat/sessions/sess-abc", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "sess-abc" || len(resp.Messages) != 2 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Messages[0].Role != "user" || resp.Messages[1].Sources[0].ChunkID != "cb-1" {
		t.Errorf("messages = %+v", resp.Messages)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	svc := &mockChat{getErr: domain.ErrSessionNotFound}
	router := newTestRouter(svc, &mockPinger{})

	req := httptest.NewRequest("GET", "/chat/sessions/sess-gone", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	var resp errorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Code != codeSessionNotFound {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestSendMessage_InternalError(t *testing.T) {
	svc := &mockChat{sendErr: errors.New("session store down")}
	router := newTestRouter(svc, &mockPinger{})

	req := httptest.NewRequest("POST", "/chat/message", strings.NewReader(`{"content": "q"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "session store down") {
		t.Error("internal error detail leaked to client")
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&mockChat{}, &mockPinger{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}

	router = newTestRouter(&mockChat{}, &mockPinger{err: errors.New("down")})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
