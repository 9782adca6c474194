package joke

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MEKXH/funbot/internal/fetch"
)

func serveJoke(t *testing.T, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("blacklistFlags"); got != "racist,sexist" {
			t.Errorf("unexpected blacklistFlags: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewClient(fetch.NewClientWithHTTP(server.Client()), server.URL+"/joke/Any?blacklistFlags=racist,sexist")
}

func TestRandom_SingleJoke(t *testing.T) {
	c := serveJoke(t, `{"error":false,"category":"Programming","type":"single","joke":"There are 10 kinds of people."}`)

	got, err := c.Random(context.Background())
	if err != nil {
		t.Fatalf("Random error: %v", err)
	}
	if got != "There are 10 kinds of people." {
		t.Fatalf("unexpected joke: %q", got)
	}
}

func TestRandom_TwoPartJokeUsesSpoiler(t *testing.T) {
	c := serveJoke(t, `{"error":false,"type":"twopart","setup":"Why do programmers prefer dark mode?","delivery":"Because light attracts bugs."}`)

	got, err := c.Random(context.Background())
	if err != nil {
		t.Fatalf("Random error: %v", err)
	}
	want := "Why do programmers prefer dark mode?\n||Because light attracts bugs.||"
	if got != want {
		t.Fatalf("Random() = %q, want %q", got, want)
	}
}

func TestRandom_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind fetch.Kind
	}{
		{name: "missing type", body: `{"error":false}`, kind: fetch.KindInvalidJSON},
		{name: "unknown type", body: `{"error":false,"type":"limerick"}`, kind: fetch.KindResponseEmpty},
		{name: "twopart without delivery", body: `{"error":false,"type":"twopart","setup":"x"}`, kind: fetch.KindResponseEmpty},
		{name: "api error", body: `{"error":true,"message":"No matching joke found"}`, kind: fetch.KindRequestFailed},
		{name: "malformed", body: `[1,2`, kind: fetch.KindInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serveJoke(t, tt.body).Random(context.Background())
			if !fetch.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestHelp(t *testing.T) {
	want := "joke -- Request a bad joke from the internet\n" +
		"    Subcommands:\n" +
		"        random -- Request a random joke\n"
	if got := Help().Render(); got != want {
		t.Fatalf("Help().Render() = %q, want %q", got, want)
	}
}
