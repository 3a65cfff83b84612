package posts

import (
	"net/http"
	"testing"
	"time"

	mocklog "github.com/nimburion/postsvc/pkg/middleware/testutil"
	"github.com/nimburion/postsvc/pkg/repository/document"
	ginrouter "github.com/nimburion/postsvc/pkg/server/router/gin"
	mongostore "github.com/nimburion/postsvc/pkg/store/mongodb"
	"github.com/nimburion/postsvc/pkg/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestPosts_Integration runs the post routes against a real MongoDB.
func TestPosts_Integration(t *testing.T) {
	url := testutil.StartMongoDB(t)

	log := &mocklog.MockLogger{}
	adapter, err := mongostore.NewAdapter(mongostore.Config{
		URL:              url,
		Database:         "postsvc_integration",
		ConnectTimeout:   30 * time.Second,
		OperationTimeout: 10 * time.Second,
	}, log)
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	defer adapter.Close()

	executor, err := document.NewMongoDBExecutor(adapter)
	if err != nil {
		t.Fatalf("Failed to create executor: %v", err)
	}
	svc, err := NewService(executor, log)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	handler, err := NewHandler(svc, log)
	if err != nil {
		t.Fatalf("Failed to create handler: %v", err)
	}
	r := ginrouter.NewRouter()
	handler.RegisterRoutes(r.Group("/api"))
	h := &harness{t: t, handler: r, log: log}

	t.Run("ListScenario", func(t *testing.T) {
		h.t = t
		for _, name := range []string{"One", "Two", "Three", "Four", "Five"} {
			h.create(name, "X")
		}

		counts := map[string]int{
			"/api/posts":                      5,
			"/api/posts?author=X&name=One":    1,
			"/api/posts?name=jibberIsh87":     0,
			"/api/posts?number=1&count=2":     2,
			"/api/posts?number=100&count=100": 0,
		}
		for path, want := range counts {
			rec := h.do(http.MethodGet, path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
			}
			if got := decode[[]Post](t, rec); len(got) != want {
				t.Errorf("%s: got %d records, want %d", path, len(got), want)
			}
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		h.t = t
		created := h.create("Lifecycle", "Ann")
		path := "/api/posts/" + *created.ID

		if rec := h.do(http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Fatalf("get: status = %d", rec.Code)
		}

		rec := h.do(http.MethodPut, path, `{"author":"Bob"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if got := decode[Post](t, rec); *got.Author != "Bob" || *got.Name != "Lifecycle" {
			t.Errorf("updated = %+v", got)
		}

		if rec := h.do(http.MethodPut, path, `{"author":"Bob"}`); rec.Code != http.StatusNotFound {
			t.Errorf("unchanged update: status = %d, want 404", rec.Code)
		}

		if rec := h.do(http.MethodDelete, path, nil); rec.Code != http.StatusOK {
			t.Fatalf("delete: status = %d", rec.Code)
		}
		if rec := h.do(http.MethodDelete, path, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("second delete: status = %d, want 404", rec.Code)
		}
	})

	t.Run("GetOneMissing", func(t *testing.T) {
		h.t = t
		rec := h.do(http.MethodGet, "/api/posts/"+primitive.NewObjectID().Hex(), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}
