package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)
	c.SetTokenFunc(func() string { return "tok-123" })

	var out map[string]any
	if err := c.Get(context.Background(), "/api/auth/me", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}
}

func TestClientOmitsHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)
	c.SetTokenFunc(func() string { return "" })

	if err := c.Get(context.Background(), "/api/projects", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClientSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	hookCalled := false
	c := NewClient(srv.URL, 0, nil)
	c.SetSessionExpiredHook(func() { hookCalled = true })

	err := c.Get(context.Background(), "/api/notifications", nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !hookCalled {
		t.Error("session-expired hook was not invoked")
	}
}

func TestClientErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"forbidden", http.StatusForbidden, ErrPermissionDenied},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server error", http.StatusInternalServerError, ErrServer},
		{"bad gateway", http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, 0, nil)
			err := c.Get(context.Background(), "/api/tasks/1", nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientStatusErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"title is required"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)
	err := c.Post(context.Background(), "/api/projects/1/tasks", map[string]string{}, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", statusErr.StatusCode)
	}
	if statusErr.Message != "title is required" {
		t.Errorf("Message = %q, want %q", statusErr.Message, "title is required")
	}
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := NewClient(srv.URL, 0, nil)
	err := c.Get(context.Background(), "/api/projects", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, nil)
	err := c.Get(context.Background(), "/api/projects", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestClientDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		w.Write([]byte(`{"id":"42","content":"hello"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)
	var out struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	body := map[string]string{"content": "hello"}
	if err := c.Post(context.Background(), "/api/chat/projects/1/messages", body, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if out.ID != "42" || out.Content != "hello" {
		t.Errorf("decoded %+v", out)
	}
}

func TestUploadReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("reading file part: %v", err)
		}
		defer f.Close()
		if header.Filename != "report.txt" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Write([]byte(`{"id":"f1","fileName":"report.txt","size":11}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)

	var percents []int
	meta, err := c.Upload(context.Background(), "/api/files/upload", "report.txt",
		strings.NewReader("hello world"), func(p int) {
			percents = append(percents, p)
		})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if meta.ID != "f1" {
		t.Errorf("meta.ID = %q, want f1", meta.ID)
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("progress = %v, want final 100", percents)
	}
}
