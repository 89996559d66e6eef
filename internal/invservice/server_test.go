package invservice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/farmsync/internal/config"
	"github.com/gravitas-games/farmsync/internal/engine"
	"github.com/gravitas-games/farmsync/internal/gateway"
	"github.com/gravitas-games/farmsync/internal/items"
	"github.com/gravitas-games/farmsync/internal/session"
	"github.com/gravitas-games/farmsync/pkg/models"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.JWT.Secret = "test-secret"
	return cfg
}

func newTestServer(t *testing.T) (*Server, *MemStore, *config.Config) {
	t.Helper()
	cfg := testConfig()
	store := NewMemStore()
	return New(cfg, store), store, cfg
}

func issueToken(t *testing.T, cfg *config.Config, userID int64) string {
	t.Helper()
	token, err := session.IssueToken(cfg.JWT.Secret, cfg.JWT.Issuer, userID, "tester", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	h := srv.Handler()

	if w := doJSON(t, h, http.MethodGet, "/records", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/records", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
	token := issueToken(t, cfg, 42)
	if w := doJSON(t, h, http.MethodGet, "/records", token, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d: %s", w.Code, w.Body)
	}
}

func TestRecordLifecycle(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	h := srv.Handler()
	token := issueToken(t, cfg, 42)

	w := doJSON(t, h, http.MethodPost, "/records", token, models.CreateRequest{
		Item: "seed-carrot", Quantity: 5, Inventory: "Backpack", SlotIndex: 3,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body)
	}
	var created models.CreateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("expected create response with id, got %s (%v)", w.Body, err)
	}

	w = doJSON(t, h, http.MethodGet, "/records", token, nil)
	var list models.RecordList
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list.Records) != 1 || list.Records[0].ID != created.ID || list.Records[0].Quantity != 5 {
		t.Fatalf("unexpected record list: %+v", list.Records)
	}

	w = doJSON(t, h, http.MethodPut, "/records/"+created.ID, token, models.UpdateRequest{
		Item: "seed-carrot", Quantity: 2, Inventory: "Backpack", SlotIndex: 3,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on update, got %d: %s", w.Code, w.Body)
	}

	w = doJSON(t, h, http.MethodDelete, "/records/"+created.ID, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d: %s", w.Code, w.Body)
	}
	w = doJSON(t, h, http.MethodGet, "/records", token, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Records) != 0 {
		t.Fatalf("expected empty list after delete, got %s", w.Body)
	}
}

func TestCreateRejectsOccupiedSlot(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	h := srv.Handler()
	token := issueToken(t, cfg, 42)
	req := models.CreateRequest{Item: "seed-carrot", Quantity: 1, Inventory: "Toolbar", SlotIndex: 0}

	if w := doJSON(t, h, http.MethodPost, "/records", token, req); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	w := doJSON(t, h, http.MethodPost, "/records", token, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for occupied slot, got %d", w.Code)
	}
	var body models.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != models.ErrCodeSlotOccupied {
		t.Fatalf("expected code %q, got %q", models.ErrCodeSlotOccupied, body.Code)
	}
	if !strings.Contains(body.Message, "already exists at this position") {
		t.Fatalf("expected legacy prose in message, got %q", body.Message)
	}
}

func TestUpdateUnknownRecord(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	h := srv.Handler()
	token := issueToken(t, cfg, 42)

	w := doJSON(t, h, http.MethodPut, "/records/r999999", token, models.UpdateRequest{
		Item: "seed-carrot", Quantity: 1, Inventory: "Backpack", SlotIndex: 0,
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body models.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != models.ErrCodeNotFound || !strings.Contains(body.Message, "does not exist") {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestUpdateRejectsOccupiedSlot(t *testing.T) {
	srv, store, cfg := newTestServer(t)
	h := srv.Handler()
	token := issueToken(t, cfg, 42)
	ctx := context.Background()

	id1, _ := store.Insert(ctx, models.Record{OwnerID: "42", Item: "seed-carrot", Quantity: 1, Inventory: "Backpack", SlotIndex: 0})
	store.Insert(ctx, models.Record{OwnerID: "42", Item: "tool-hoe", Quantity: 1, Inventory: "Backpack", SlotIndex: 1})

	w := doJSON(t, h, http.MethodPut, "/records/"+id1, token, models.UpdateRequest{
		Item: "seed-carrot", Quantity: 1, Inventory: "Backpack", SlotIndex: 1,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 moving onto an occupied slot, got %d: %s", w.Code, w.Body)
	}
}

func TestOwnerIsolation(t *testing.T) {
	srv, store, cfg := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	id, _ := store.Insert(ctx, models.Record{OwnerID: "42", Item: "seed-carrot", Quantity: 3, Inventory: "Backpack", SlotIndex: 0})
	intruder := issueToken(t, cfg, 7)

	w := doJSON(t, h, http.MethodGet, "/records", intruder, nil)
	var list models.RecordList
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Records) != 0 {
		t.Fatalf("expected empty list for other owner, got %s", w.Body)
	}
	if w := doJSON(t, h, http.MethodGet, "/records?owner=42", intruder, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 listing another owner, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPut, "/records/"+id, intruder, models.UpdateRequest{
		Item: "seed-carrot", Quantity: 99, Inventory: "Backpack", SlotIndex: 0,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 updating another owner's record, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodDelete, "/records/"+id, intruder, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 deleting another owner's record, got %d", w.Code)
	}
	if rec, err := store.Get(ctx, id); err != nil || rec.Quantity != 3 {
		t.Fatalf("record must be untouched, got %+v (%v)", rec, err)
	}
}

func TestFeedBroadcastsCreates(t *testing.T) {
	srv, _, cfg := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer srv.feed.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial feed: %v", err)
	}
	defer conn.Close()

	token := issueToken(t, cfg, 42)
	payload, _ := json.Marshal(models.CreateRequest{Item: "crop-potato", Quantity: 2, Inventory: "Backpack", SlotIndex: 1})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/records", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.FeedEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read feed event: %v", err)
	}
	if ev.Type != models.FeedRecordCreated || ev.Record == nil || ev.Record.Item != "crop-potato" {
		t.Fatalf("unexpected feed event: %+v", ev)
	}
}

// TestEngineAgainstLiveService runs the full stack: reconciliation
// engine, HTTP gateway, JWT session and the reference service wired
// over httptest.
func TestEngineAgainstLiveService(t *testing.T) {
	srv, store, cfg := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	ctx := context.Background()

	prov := session.NewProvider(cfg.JWT.Issuer, cfg.JWT.Secret)
	if err := prov.SetToken(issueToken(t, cfg, 42)); err != nil {
		t.Fatalf("failed to install token: %v", err)
	}
	gw := gateway.NewHTTP(config.GatewayConfig{BaseURL: ts.URL, TimeoutMs: 5000}, prov)
	catalog := items.NewCatalog(items.Details{ID: "seed-carrot", Name: "Carrot Seeds", StackCap: 64})
	eng := engine.New(cfg.Engine, gw, prov, catalog)

	eng.AddItem(ctx, "Backpack", "seed-carrot", 5)

	records, err := store.ListByOwner(ctx, "42")
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one record after add, got %v (%v)", records, err)
	}
	if records[0].Item != "seed-carrot" || records[0].Quantity != 5 || records[0].SlotIndex != 0 {
		t.Fatalf("unexpected record: %+v", records[0])
	}

	eng.Consume(ctx, "Backpack", 0, 2)
	eng.Sync(ctx, "Backpack", engine.SyncOptions{ReloadAfter: true, IgnoreDebounce: true})
	records, _ = store.ListByOwner(ctx, "42")
	if len(records) != 1 || records[0].Quantity != 3 {
		t.Fatalf("expected quantity 3 after consume, got %+v", records)
	}

	eng.DeleteItem(ctx, "Backpack", 0)
	eng.Sync(ctx, "Backpack", engine.SyncOptions{ReloadAfter: true, IgnoreDebounce: true})
	records, _ = store.ListByOwner(ctx, "42")
	if len(records) != 0 {
		t.Fatalf("expected empty store after delete, got %+v", records)
	}
}
