package posts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/controller"
	"github.com/nimburion/postsvc/pkg/middleware/testutil"
	"github.com/nimburion/postsvc/pkg/repository/document/documenttest"
	ginrouter "github.com/nimburion/postsvc/pkg/server/router/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type harness struct {
	t       *testing.T
	handler http.Handler
	store   *documenttest.MemoryExecutor
	log     *testutil.MockLogger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := documenttest.NewMemoryExecutor()
	log := &testutil.MockLogger{}

	svc, err := NewService(store, log)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	h, err := NewHandler(svc, log)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	r := ginrouter.NewRouter()
	h.RegisterRoutes(r.Group("/api"))
	return &harness{t: t, handler: r, store: store, log: log}
}

func (h *harness) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewBufferString(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) create(name, author string) Post {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/posts", PostUpsert{Name: &name, Author: &author})
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return decode[Post](h.t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHandler_ListScenario(t *testing.T) {
	h := newHarness(t)
	const author = "X"
	for _, name := range []string{"One", "Two", "Three", "Four", "Five"} {
		h.create(name, author)
	}

	tests := []struct {
		name      string
		path      string
		wantNames []string
	}{
		{name: "defaults", path: "/api/posts", wantNames: []string{"One", "Two", "Three", "Four", "Five"}},
		{name: "author and name", path: "/api/posts?author=X&name=One", wantNames: []string{"One"}},
		{name: "no match", path: "/api/posts?name=jibberIsh87", wantNames: []string{}},
		{name: "second page of two", path: "/api/posts?number=1&count=2", wantNames: []string{"Three", "Four"}},
		{name: "last partial page", path: "/api/posts?number=2&count=2", wantNames: []string{"Five"}},
		{name: "invalid id matches nothing", path: "/api/posts?id=not-an-object-id", wantNames: []string{}},
		{name: "negative values use defaults", path: "/api/posts?number=-1&count=-5", wantNames: []string{"One", "Two", "Three", "Four", "Five"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodGet, tt.path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			got := decode[[]Post](t, rec)
			if got == nil {
				t.Fatal("list must be a JSON array, got null")
			}
			if len(got) != len(tt.wantNames) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.wantNames))
			}
			for i, p := range got {
				if p.Name == nil || *p.Name != tt.wantNames[i] {
					t.Errorf("record %d = %+v, want name %s", i, p, tt.wantNames[i])
				}
				if p.ID == nil || *p.Author != author {
					t.Errorf("record %d incomplete: %+v", i, p)
				}
			}
		})
	}
}

func TestHandler_ListRejectsNonIntegerPagination(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/posts?number=abc", "/api/posts?count=1.5", "/api/posts?count="} {
		rec := h.do(http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
		body := decode[controller.ErrorResponse](t, rec)
		if body.Code != apperror.CodeBadRequest || body.Status != "400 Bad Request" {
			t.Errorf("%s: body = %+v", path, body)
		}
	}
}

func TestHandler_CreateAndGetOne(t *testing.T) {
	h := newHarness(t)
	created := h.create("Hello", "Ann")
	if created.ID == nil || *created.ID == "" {
		t.Fatalf("created post has no id: %+v", created)
	}

	rec := h.do(http.MethodGet, "/api/posts/"+*created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[Post](t, rec)
	if *got.ID != *created.ID || *got.Name != "Hello" || *got.Author != "Ann" {
		t.Errorf("got %+v", got)
	}
}

func TestHandler_CreateWithPartialPayloadRendersNulls(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/posts", `{"name":"only"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	raw := decode[map[string]interface{}](t, rec)
	if v, ok := raw["author"]; !ok || v != nil {
		t.Errorf("absent author must render as null: %v", raw)
	}
}

func TestHandler_CreateIgnoresClientIdentifier(t *testing.T) {
	h := newHarness(t)
	supplied := primitive.NewObjectID().Hex()
	rec := h.do(http.MethodPost, "/api/posts", fmt.Sprintf(`{"id":%q,"name":"n"}`, supplied))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[Post](t, rec); got.ID == nil || *got.ID == supplied {
		t.Errorf("client identifier must not be used: %+v", got)
	}
}

func TestHandler_CreateRejectsBadJSON(t *testing.T) {
	h := newHarness(t)
	tests := map[string]string{
		"malformed":  `{"name":`,
		"wrong type": `{"name":42}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := h.do(http.MethodPost, "/api/posts", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
	if h.store.Len(CollectionName) != 0 {
		t.Fatal("rejected payloads must not be stored")
	}
}

func TestHandler_GetOneNotFound(t *testing.T) {
	h := newHarness(t)
	id := primitive.NewObjectID().Hex()

	rec := h.do(http.MethodGet, "/api/posts/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decode[controller.ErrorResponse](t, rec)
	want := fmt.Sprintf(`A post with given filter: '{"id":"%s","name":null,"author":null}' not found`, id)
	if body.Message != want {
		t.Errorf("message = %q, want %q", body.Message, want)
	}
	if body.Status != "404 Not Found" || body.Details["resource"] != "post" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandler_InvalidIdentifierIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.create("keep", "me")

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := h.do(method, "/api/posts/not-an-object-id", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", method, rec.Code)
		}
	}
	rec := h.do(http.MethodPut, "/api/posts/not-an-object-id", `{"name":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("PUT: status = %d, want 404", rec.Code)
	}

	if h.store.Len(CollectionName) != 1 {
		t.Fatal("an invalid identifier must never reach the store as a match-all filter")
	}
	if h.store.Calls("FindOne")+h.store.Calls("DeleteOne")+h.store.Calls("UpdateOne") != 0 {
		t.Fatal("store was called for an invalid identifier")
	}
}

func TestHandler_Update(t *testing.T) {
	h := newHarness(t)
	created := h.create("Draft", "Ann")
	path := "/api/posts/" + *created.ID

	rec := h.do(http.MethodPut, path, `{"name":"Final"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[Post](t, rec)
	if *got.ID != *created.ID || *got.Name != "Final" || *got.Author != "Ann" {
		t.Errorf("updated = %+v", got)
	}

	if rec := h.do(http.MethodPut, path, `{"name":`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: status = %d, want 400", rec.Code)
	}
	if rec := h.do(http.MethodPut, path, `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty update: status = %d, want 400", rec.Code)
	}

	missing := "/api/posts/" + primitive.NewObjectID().Hex()
	if rec := h.do(http.MethodPut, missing, `{"name":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("missing post: status = %d, want 404", rec.Code)
	}
}

func TestHandler_DeleteTwice(t *testing.T) {
	h := newHarness(t)
	created := h.create("Bye", "Ann")
	path := "/api/posts/" + *created.ID

	rec := h.do(http.MethodDelete, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first delete: status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("delete body = %q, want empty", rec.Body.String())
	}
	if rec := h.do(http.MethodDelete, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status = %d, want 404", rec.Code)
	}
	if rec := h.do(http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestHandler_StoreFailureIs503AndLogged(t *testing.T) {
	h := newHarness(t)
	h.store.FailWith(errors.New("no reachable servers"))

	rec := h.do(http.MethodGet, "/api/posts", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decode[controller.ErrorResponse](t, rec)
	if body.Message != "no reachable servers" || body.Code != apperror.CodeStore {
		t.Errorf("body = %+v", body)
	}

	var handlerLogged bool
	for _, e := range h.log.EntriesAt("error") {
		if e.Msg == "post request failed" && e.Fields["status"] == http.StatusServiceUnavailable {
			handlerLogged = true
		}
	}
	if !handlerLogged {
		t.Error("store failure was not logged by the handler")
	}
}

func TestNewHandler_Validation(t *testing.T) {
	if _, err := NewHandler(nil, &testutil.MockLogger{}); err == nil {
		t.Error("expected error for nil service")
	}
	svc, _ := NewService(documenttest.NewMemoryExecutor(), &testutil.MockLogger{})
	if _, err := NewHandler(svc, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}
