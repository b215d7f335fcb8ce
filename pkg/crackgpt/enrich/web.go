// web.go implements the web-page previewer: one bounded GET per URL,
// title plus readable text extracted from the HTML, everything else
// (scripts, styles, navigation chrome) stripped.
package enrich

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxBodyBytes caps how much of a response body is read (2 MB).
const maxBodyBytes int64 = 2 * 1024 * 1024

// WebConfig holds web previewer configuration.
type WebConfig struct {
	// Enabled turns page previews on/off.
	Enabled bool `yaml:"enabled"`

	// UserAgent is sent with every request.
	UserAgent string `yaml:"user_agent"`

	// MaxContentChars limits the extracted text length.
	MaxContentChars int `yaml:"max_content_chars"`

	// TimeoutSeconds is the total time budget per request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// DefaultWebConfig returns a WebConfig with sensible defaults.
func DefaultWebConfig() WebConfig {
	return WebConfig{
		Enabled: true,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		MaxContentChars: 2000,
		TimeoutSeconds:  10,
	}
}

// WebPreviewer fetches a page and extracts a short text preview.
type WebPreviewer struct {
	cfg    WebConfig
	client *http.Client
	logger *slog.Logger
}

// NewWebPreviewer creates a previewer from config.
func NewWebPreviewer(cfg WebConfig, logger *slog.Logger) *WebPreviewer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxContentChars <= 0 {
		cfg.MaxContentChars = DefaultWebConfig().MaxContentChars
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = DefaultWebConfig().TimeoutSeconds
	}
	return &WebPreviewer{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger: logger.With("component", "web-preview"),
	}
}

// Name returns "web".
func (w *WebPreviewer) Name() string { return "web" }

// Fetch downloads the page and returns "title\nbody" truncated to the
// configured length. Any failure returns ok=false.
func (w *WebPreviewer) Fetch(ctx context.Context, rawURL string) (string, bool) {
	if !w.cfg.Enabled {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", w.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.7")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Debug("fetch failed", "url", rawURL, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.logger.Debug("fetch skipped", "url", rawURL, "status", resp.StatusCode)
		return "", false
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		w.logger.Debug("read failed", "url", rawURL, "error", err)
		return "", false
	}

	title, content := extractHTML(string(body))
	if title == "" && content == "" {
		return "", false
	}

	var out string
	if title != "" {
		out = title + "\n" + content
	} else {
		out = content
	}
	return truncateRunes(out, w.cfg.MaxContentChars), true
}

// ---------- HTML extraction ----------

// skipElements are HTML elements whose content is excluded from previews.
var skipElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Head:     true, // title is extracted separately
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
}

// extractHTML parses HTML and returns (title, readable text content).
func extractHTML(raw string) (string, string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", ""
	}

	title := strings.TrimSpace(findTitle(doc))

	var content strings.Builder
	extractText(doc, &content)

	return title, cleanWhitespace(content.String())
}

// findTitle walks the DOM looking for a <title> element.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// textContent returns concatenated text of all children.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// extractText recursively collects visible text from the DOM.
func extractText(n *html.Node, w *strings.Builder) {
	if n.Type == html.ElementNode && skipElements[n.DataAtom] {
		return
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			w.WriteString(text)
			w.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, w)
	}
}

// cleanWhitespace collapses runs of whitespace into single spaces.
func cleanWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes truncates a string to maxChars without breaking a
// multi-byte character.
func truncateRunes(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count >= maxChars {
			return s[:i]
		}
		count++
	}
	return s
}

var _ Fetcher = (*WebPreviewer)(nil)
