package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/faceless-shorts/internal/platform"
	"github.com/franz/faceless-shorts/internal/util"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), &Config{
		HTTPClient: srv.Client(),
		Endpoint:   srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), &Config{Credentials: Credentials{ClientID: "id"}})
	if !errors.Is(err, util.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestFetchStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/videos") || r.URL.Query().Get("id") != "v1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"v1","statistics":{"viewCount":"300","likeCount":"12","commentCount":"3"}}]}`)
	})

	stats, err := c.FetchStats(context.Background(), "v1")
	if err != nil {
		t.Fatalf("FetchStats failed: %v", err)
	}
	if stats.Views != 300 || stats.Likes != 12 || stats.Comments != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestFetchStatsUnknownVideo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[]}`)
	})

	if _, err := c.FetchStats(context.Background(), "gone"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	var gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"abc123"}`)
	})

	video := filepath.Join(t.TempDir(), "v.mp4")
	if err := os.WriteFile(video, []byte("not really a video"), 0644); err != nil {
		t.Fatal(err)
	}

	id, err := c.Upload(context.Background(), platform.UploadRequest{
		VideoPath:  video,
		Title:      "T",
		CategoryID: "28",
		Privacy:    "public",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if id != "abc123" || gotMethod != http.MethodPost {
		t.Errorf("expected POST returning abc123, got %s %q", gotMethod, id)
	}
}

func TestUploadFailureWrapsErrUpload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"quota"}}`, http.StatusForbidden)
	})

	video := filepath.Join(t.TempDir(), "v.mp4")
	os.WriteFile(video, []byte("x"), 0644)

	_, err := c.Upload(context.Background(), platform.UploadRequest{VideoPath: video, Privacy: "public"})
	if !errors.Is(err, platform.ErrUpload) {
		t.Errorf("expected ErrUpload, got %v", err)
	}

	_, err = c.Upload(context.Background(), platform.UploadRequest{VideoPath: filepath.Join(t.TempDir(), "missing.mp4")})
	if !errors.Is(err, platform.ErrUpload) {
		t.Errorf("missing file: expected ErrUpload, got %v", err)
	}
}
