package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MEKXH/funbot/internal/config"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dog", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","message":"https://images.dog.ceo/a.jpg"}`))
	})
	mux.HandleFunc("/cat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"x","url":"https://cdn2.thecatapi.com/b.jpg"}]`))
	})
	mux.HandleFunc("/joke", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":false,"type":"twopart","setup":"Why?","delivery":"Because."}`))
	})
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":"Tag: ` + r.URL.Query().Get("tags") + `","author":"Someone"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testAPIConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIs.DogURL = baseURL + "/dog"
	cfg.APIs.CatURL = baseURL + "/cat"
	cfg.APIs.JokeURL = baseURL + "/joke"
	cfg.APIs.QuoteURL = baseURL + "/quote"
	return cfg
}

func TestFetchOne(t *testing.T) {
	srv := newAPIServer(t)
	cfg := testAPIConfig(srv.URL)

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"dog"}, want: "https://images.dog.ceo/a.jpg"},
		{args: []string{"CAT"}, want: "https://cdn2.thecatapi.com/b.jpg"},
		{args: []string{"joke"}, want: "Why?\nBecause."},
		{args: []string{"quote", "wisdom"}, want: `"Tag: wisdom" - Someone`},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			got, err := fetchOne(context.Background(), cfg, tt.args)
			if err != nil {
				t.Fatalf("fetchOne error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("fetchOne = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchOne_RejectsUnknownAndExtraArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	if _, err := fetchOne(context.Background(), cfg, []string{"horse"}); err == nil {
		t.Fatal("expected error for unknown api")
	}
	if _, err := fetchOne(context.Background(), cfg, []string{"dog", "extra"}); err == nil {
		t.Fatal("expected error for a tag on dog")
	}
}

func TestFetchOne_SurfacesFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.APIs.CatURL = srv.URL
	_, err := fetchOne(context.Background(), cfg, []string{"cat"})
	if err == nil || !strings.Contains(err.Error(), "EmptyResponseError") {
		t.Fatalf("expected empty response error, got %v", err)
	}
}
