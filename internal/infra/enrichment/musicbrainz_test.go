package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMusicBrainzSearchRelease(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
	}{
		{
			name:   "high score wins",
			body:   `{"releases":[{"id":"low","score":60},{"id":"high","score":95,"release-group":{"id":"rg"}}]}`,
			wantID: "high",
		},
		{
			name:   "first result above 50 accepted",
			body:   `{"releases":[{"id":"first","score":70},{"id":"second","score":65}]}`,
			wantID: "first",
		},
		{
			name:   "low confidence rejected",
			body:   `{"releases":[{"id":"weak","score":40}]}`,
			wantID: "",
		},
		{
			name:   "no results",
			body:   `{"releases":[]}`,
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewMusicBrainzClient(WithMBBaseURL(server.URL), WithMBRateLimit(0))
			release, err := c.SearchRelease(context.Background(), "Artist", "Album")
			if err != nil {
				t.Fatalf("SearchRelease() error = %v", err)
			}
			if tt.wantID == "" {
				if release != nil {
					t.Errorf("SearchRelease() = %+v, want nil", release)
				}
				return
			}
			if release == nil || release.ID != tt.wantID {
				t.Errorf("SearchRelease() = %+v, want id %q", release, tt.wantID)
			}
		})
	}
}

func TestMusicBrainzQuery(t *testing.T) {
	var gotQuery, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path != "/release" {
			t.Errorf("path = %q, want /release", r.URL.Path)
		}
		w.Write([]byte(`{"releases":[]}`))
	}))
	defer server.Close()

	c := NewMusicBrainzClient(WithMBBaseURL(server.URL), WithMBRateLimit(0), WithMBUserAgent("test-agent/1.0"))
	if _, err := c.SearchRelease(context.Background(), "AC/DC", "Back in Black"); err != nil {
		t.Fatalf("SearchRelease() error = %v", err)
	}

	want := `artist:"AC\/DC" AND release:"Back in Black"`
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`say "hi"`, `say \"hi\"`},
		{"(live)", `\(live\)`},
		{"a+b-c", `a\+b\-c`},
	}
	for _, tt := range tests {
		if got := escapeQuery(tt.in); got != tt.want {
			t.Errorf("escapeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if strings.Contains(escapeQuery("x"), `\`) {
		t.Error("plain text should not be escaped")
	}
}
