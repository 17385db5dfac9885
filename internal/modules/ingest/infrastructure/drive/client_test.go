package drive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientList(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		q := r.URL.Query()
		if q.Get("q") != "mimeType='text/csv' and trashed=false" {
			t.Errorf("query = %q", q.Get("q"))
		}
		if q.Get("pageSize") != "10" {
			t.Errorf("pageSize = %q", q.Get("pageSize"))
		}
		io.WriteString(w, `{"files":[
			{"id":"f-1","name":"austin.csv","modifiedTime":"2026-08-01T10:00:00Z","parents":["folder-9"]},
			{"id":"f-2","name":"dallas.csv","modifiedTime":"2026-08-02T10:00:00Z"}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	files, err := c.List(context.Background(), "mimeType='text/csv' and trashed=false", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0].ID != "f-1" || files[0].Name != "austin.csv" {
		t.Errorf("first file = %+v", files[0])
	}
	if len(files[0].Parents) != 1 || files[0].Parents[0] != "folder-9" {
		t.Errorf("parents = %v", files[0].Parents)
	}
}

func TestClientGetMetadata(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/sized":
			io.WriteString(w, `{"size":"2048"}`)
		case "/files/native":
			io.WriteString(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)

	meta, err := c.GetMetadata(context.Background(), "sized")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if !meta.SizeKnown || meta.Size != 2048 {
		t.Errorf("meta = %+v, want known size 2048", meta)
	}

	meta, err = c.GetMetadata(context.Background(), "native")
	if err != nil {
		t.Fatalf("GetMetadata native: %v", err)
	}
	if meta.SizeKnown {
		t.Errorf("native export reported a known size: %+v", meta)
	}
}

func TestClientGetMedia(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("alt = %q", r.URL.Query().Get("alt"))
		}
		io.WriteString(w, "name,city\nJoe's Diner,Austin\n")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	body, err := c.GetMedia(context.Background(), "f-1")
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if !strings.Contains(string(data), "Joe's Diner") {
		t.Errorf("media body = %q", data)
	}
}

func TestClientErrorCarriesStatusAndSnippet(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":"rate limit exceeded"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.List(context.Background(), "", 10)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("error = %q, want status and body snippet", err)
	}
}
