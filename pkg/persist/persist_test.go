package persist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	derrors "github.com/checklistapp/diagram/pkg/errors"
	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/store"
)

func TestHTTPSaveSendsCSRFHeader(t *testing.T) {
	var got pkgio.GraphDocument
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/projects/42/diagram/":
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok123", Path: "/"})
		case r.Method == http.MethodPost && r.URL.Path == "/projects/42/diagram/save/":
			if h := r.Header.Get("X-CSRFToken"); h != "tok123" {
				t.Errorf("X-CSRFToken = %q, want tok123", h)
			}
			if c, err := r.Cookie("csrftoken"); err != nil || c.Value != "tok123" {
				t.Errorf("csrftoken cookie = %v, %v", c, err)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode body: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"version": 3, "message": "ok"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	c, err := NewHTTPClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Save(context.Background(), "42", pkgio.Demo())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Version != 3 || res.ProjectID != "42" || res.Message != "ok" {
		t.Errorf("Result = %+v", res)
	}
	if len(got.Boxes) != 4 || len(got.Arrows) != 4 || got.Arrows[0].Label != "Suivant" {
		t.Errorf("posted document = %+v", got)
	}
}

func TestHTTPSaveWithPresetToken(t *testing.T) {
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		if r.Method == http.MethodPost && r.Header.Get("X-Test-CSRF") != "preset" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	c, _ := NewHTTPClient(server.URL, WithCSRF("csrftoken", "X-Test-CSRF"))
	c.SetCSRFToken("preset")
	if c.CSRFToken() != "preset" {
		t.Fatalf("CSRFToken() = %q", c.CSRFToken())
	}
	if _, err := c.Save(context.Background(), "p1", pkgio.GraphDocument{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if gets.Load() != 0 {
		t.Errorf("page fetched %d times, want 0 when a token is already held", gets.Load())
	}
}

func TestHTTPSaveFailureNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"forbidden", http.StatusForbidden},
		{"bad request", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					posts.Add(1)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c, _ := NewHTTPClient(server.URL)
			c.SetCSRFToken("t")
			_, err := c.Save(context.Background(), "p1", pkgio.Demo())
			if !derrors.Is(err, derrors.ErrCodePersistence) {
				t.Errorf("Save error = %v, want PERSISTENCE_FAILED", err)
			}
			if posts.Load() != 1 {
				t.Errorf("POST count = %d, want exactly 1", posts.Load())
			}
		})
	}
}

func TestHTTPSaveInvalidProject(t *testing.T) {
	c, _ := NewHTTPClient("http://127.0.0.1:1")
	if _, err := c.Save(context.Background(), "../etc", pkgio.Demo()); !derrors.Is(err, derrors.ErrCodeInvalidInput) {
		t.Errorf("Save error = %v, want INVALID_INPUT", err)
	}
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	if _, err := NewHTTPClient("ftp://example.com"); err == nil {
		t.Error("expected error for non-http URL")
	}
}

func TestHTTPLoad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/42/diagram/data/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Diagram-Version", "7")
		_ = pkgio.WriteJSON(pkgio.Demo(), w)
	}))
	defer server.Close()

	c, _ := NewHTTPClient(server.URL + "/")
	doc, res, err := c.Load(context.Background(), "42")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Version != 7 || len(doc.Boxes) != 4 {
		t.Errorf("Load = %d boxes, version %d", len(doc.Boxes), res.Version)
	}

	if _, _, err := c.Load(context.Background(), "43"); !derrors.Is(err, derrors.ErrCodeNotFound) {
		t.Errorf("Load missing error = %v, want NOT_FOUND", err)
	}
}

func TestHTTPLoadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = pkgio.WriteJSON(pkgio.Demo(), w)
	}))
	defer server.Close()

	c, _ := NewHTTPClient(server.URL)
	if _, _, err := c.Load(context.Background(), "42"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestStoreClient(t *testing.T) {
	ctx := context.Background()
	c := NewStoreClient(store.NewMemoryStore(), nil)

	if _, _, err := c.Load(ctx, "p1"); !derrors.Is(err, derrors.ErrCodeNotFound) {
		t.Fatalf("Load empty error = %v, want NOT_FOUND", err)
	}
	for want := 1; want <= 2; want++ {
		res, err := c.Save(ctx, "p1", pkgio.Demo())
		if err != nil {
			t.Fatal(err)
		}
		if res.Version != want {
			t.Errorf("Save version = %d, want %d", res.Version, want)
		}
	}
	doc, res, err := c.Load(ctx, "p1")
	if err != nil || res.Version != 2 || len(doc.Arrows) != 4 {
		t.Errorf("Load = %d arrows, version %d, err %v", len(doc.Arrows), res.Version, err)
	}
	vs, err := c.Versions(ctx, "p1")
	if err != nil || len(vs) != 2 {
		t.Errorf("Versions = %v, %v", vs, err)
	}
}

// blockingClient records the document it was given once released.
type blockingClient struct {
	release chan struct{}
	got     chan pkgio.GraphDocument
}

func (b *blockingClient) Save(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Result, error) {
	<-b.release
	b.got <- doc
	return Result{ProjectID: projectID, Version: 1}, nil
}

func (b *blockingClient) Load(ctx context.Context, projectID string) (pkgio.GraphDocument, Result, error) {
	return pkgio.GraphDocument{}, Result{}, nil
}

func TestSaveAsyncSnapshots(t *testing.T) {
	client := &blockingClient{release: make(chan struct{}), got: make(chan pkgio.GraphDocument, 1)}
	doc := pkgio.Demo()

	ch := SaveAsync(context.Background(), client, "p1", doc)
	doc.Boxes[0].Label = "edited while saving"
	close(client.release)

	out := <-ch
	if out.Err != nil || out.Result.Version != 1 {
		t.Fatalf("Outcome = %+v", out)
	}
	if saved := <-client.got; saved.Boxes[0].Label == "edited while saving" {
		t.Error("SaveAsync must save the document as it was when called")
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after the outcome")
	}
}

func TestSaveAsyncIndependentRequests(t *testing.T) {
	c := NewStoreClient(store.NewMemoryStore(), nil)
	a := SaveAsync(context.Background(), c, "p1", pkgio.Demo())
	b := SaveAsync(context.Background(), c, "p1", pkgio.Demo())

	va, vb := (<-a).Result.Version, (<-b).Result.Version
	if va == vb || va+vb != 3 {
		t.Errorf("versions = %d and %d, want 1 and 2 in some order", va, vb)
	}
}
