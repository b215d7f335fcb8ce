package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func webTestConfig() WebConfig {
	cfg := DefaultWebConfig()
	cfg.TimeoutSeconds = 2
	return cfg
}

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebFetch(t *testing.T) {
	srv := serveHTML(t, `<html>
<head><title>  Test Page  </title><script>var hidden = 1;</script></head>
<body>
  <nav>skip nav</nav>
  <header>skip header</header>
  <p>Visible   paragraph.</p>
  <style>.x { color: red }</style>
  <footer>skip footer</footer>
</body></html>`)

	w := NewWebPreviewer(webTestConfig(), testLogger())
	got, ok := w.Fetch(context.Background(), srv.URL)
	if !ok {
		t.Fatal("expected a preview")
	}

	if !strings.HasPrefix(got, "Test Page\n") {
		t.Errorf("expected title on first line, got %q", got)
	}
	if !strings.Contains(got, "Visible paragraph.") {
		t.Errorf("expected body text, got %q", got)
	}
	for _, skipped := range []string{"hidden", "skip nav", "skip header", "skip footer", "color: red"} {
		if strings.Contains(got, skipped) {
			t.Errorf("expected %q stripped, got %q", skipped, got)
		}
	}
}

func TestWebFetchTruncates(t *testing.T) {
	cfg := webTestConfig()
	cfg.MaxContentChars = 50
	srv := serveHTML(t, "<html><head><title>T</title></head><body>"+strings.Repeat("word ", 200)+"</body></html>")

	w := NewWebPreviewer(cfg, testLogger())
	got, ok := w.Fetch(context.Background(), srv.URL)
	if !ok {
		t.Fatal("expected a preview")
	}
	if n := len([]rune(got)); n > 50 {
		t.Errorf("expected preview capped at 50 chars, got %d", n)
	}
}

func TestWebFetchRejects(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := serveHTML(t, "<html><body>hi</body></html>")
		cfg := webTestConfig()
		cfg.Enabled = false
		w := NewWebPreviewer(cfg, testLogger())
		if _, ok := w.Fetch(context.Background(), srv.URL); ok {
			t.Error("expected no preview when disabled")
		}
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		t.Cleanup(srv.Close)

		w := NewWebPreviewer(webTestConfig(), testLogger())
		if _, ok := w.Fetch(context.Background(), srv.URL); ok {
			t.Error("expected no preview for 404")
		}
	})

	t.Run("non-html content type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"a":1}`))
		}))
		t.Cleanup(srv.Close)

		w := NewWebPreviewer(webTestConfig(), testLogger())
		if _, ok := w.Fetch(context.Background(), srv.URL); ok {
			t.Error("expected no preview for JSON")
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		srv := serveHTML(t, "unused")
		srv.Close()

		w := NewWebPreviewer(webTestConfig(), testLogger())
		if _, ok := w.Fetch(context.Background(), srv.URL); ok {
			t.Error("expected no preview for dead server")
		}
	})
}

func TestWebFetchSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>x</title></head><body>y</body></html>"))
	}))
	t.Cleanup(srv.Close)

	cfg := webTestConfig()
	cfg.UserAgent = "test-agent/1.0"
	w := NewWebPreviewer(cfg, testLogger())
	if _, ok := w.Fetch(context.Background(), srv.URL); !ok {
		t.Fatal("expected a preview")
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("expected configured user agent, got %q", gotUA)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo wörld", 5); got != "héllo" {
		t.Errorf("got %q", got)
	}
	if got := truncateRunes("short", 100); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateRunes("anything", 0); got != "anything" {
		t.Errorf("expected no cap for 0, got %q", got)
	}
}
