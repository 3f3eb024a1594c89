package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coinmint/internal/catalog"
	"coinmint/internal/clock"
	"coinmint/internal/config"
	"coinmint/internal/engine"
	"coinmint/internal/games"
	"coinmint/internal/ledger"
	"coinmint/internal/market"
	"coinmint/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	cat := catalog.Default()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	st := store.NewMemory()

	led := ledger.New(st, nil, clk)
	if err := led.Load(ctx); err != nil {
		t.Fatalf("ledger load: %v", err)
	}
	book := market.NewBook(st, nil, clk)
	if err := book.Load(ctx, cat); err != nil {
		t.Fatalf("book load: %v", err)
	}
	sessions := games.NewSessions(cat.Tuning.SessionWindow(), cat.Tuning.BlackjackWin, nil)
	eng := engine.New(led, book, sessions, cat, clk, nil)
	eng.Reseed(1)
	return New(config.APIConfig{}, nil, eng, nil)
}

func postCommand(t *testing.T, srv *Server, cmd engine.Command) (*httptest.ResponseRecorder, engine.Result) {
	t.Helper()
	body, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/commands", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var res engine.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return rec, res
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status got=%d", rec.Code)
	}
}

func TestCommandEndpointOK(t *testing.T) {
	srv := testServer(t)
	rec, res := postCommand(t, srv, engine.Command{AccountID: "alice", Name: "daily"})
	if rec.Code != http.StatusOK {
		t.Fatalf("daily status got=%d body=%s", rec.Code, rec.Body.String())
	}
	if !res.OK {
		t.Fatalf("daily failed: %+v", res)
	}
}

func TestCommandEndpointErrorStatuses(t *testing.T) {
	srv := testServer(t)
	// Prime the cooldown.
	if _, res := postCommand(t, srv, engine.Command{AccountID: "alice", Name: "daily"}); !res.OK {
		t.Fatalf("prime daily: %+v", res)
	}

	tests := []struct {
		name string
		cmd  engine.Command
		code int
		kind engine.Kind
	}{
		{
			name: "cooldown",
			cmd:  engine.Command{AccountID: "alice", Name: "daily"},
			code: http.StatusTooManyRequests,
			kind: engine.KindOnCooldown,
		},
		{
			name: "bad command",
			cmd:  engine.Command{AccountID: "alice", Name: "yeet"},
			code: http.StatusBadRequest,
			kind: engine.KindInvalidArgument,
		},
		{
			name: "missing asset",
			cmd:  engine.Command{AccountID: "alice", Name: "price", Args: map[string]any{"asset": "unobtainium"}},
			code: http.StatusNotFound,
			kind: engine.KindNotFound,
		},
		{
			name: "hit without hand",
			cmd:  engine.Command{AccountID: "alice", Name: "hit"},
			code: http.StatusNotFound,
			kind: engine.KindNotFound,
		},
	}
	for _, tc := range tests {
		rec, res := postCommand(t, srv, tc.cmd)
		if rec.Code != tc.code {
			t.Fatalf("%s: status got=%d want=%d", tc.name, rec.Code, tc.code)
		}
		if res.OK || res.ErrKind != tc.kind {
			t.Fatalf("%s: result got=%+v", tc.name, res)
		}
	}
}

func TestCommandEndpointRejectsUnknownFields(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/commands", bytes.NewReader([]byte(`{"account_id":"a","name":"daily","bogus":1}`)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status got=%d", rec.Code)
	}
}

func TestReadRoutes(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/v1/shop", "/v1/leaderboard", "/v1/assets/sword", "/v1/accounts/alice"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status got=%d body=%s", path, rec.Code, rec.Body.String())
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/assets/unobtainium", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing asset status got=%d", rec.Code)
	}
}
