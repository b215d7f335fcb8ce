// Package enrich derives short contextual summaries from links shared in
// chat. Each fetcher is best-effort: it produces at most one summary for a
// URL within a bounded time, and any failure simply means "no result";
// enrichment never blocks or fails a reply.
package enrich

import (
	"context"
	"log/slog"
	"regexp"
)

// Fetcher produces zero or one short text summaries for a URL.
// The boolean reports whether a usable summary was produced.
type Fetcher interface {
	// Name returns the fetcher identifier for logging.
	Name() string

	// Fetch attempts to summarize the URL. Implementations must respect
	// ctx and their own timeouts, and must not return partial garbage:
	// ok=false means the caller omits this URL's contribution.
	Fetch(ctx context.Context, url string) (summary string, ok bool)
}

// urlPattern matches http(s) URLs in free text. Deliberately loose: the
// fetchers validate what they actually consume.
var urlPattern = regexp.MustCompile(`(?i)https?://[^\s>]+`)

// ExtractURLs returns all URLs found in the text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// Annotation couples a summary with the URL it was derived from.
type Annotation struct {
	URL  string
	Text string
}

// Chain runs fetchers in order for each URL and keeps the first hit.
type Chain struct {
	fetchers []Fetcher
	logger   *slog.Logger
}

// NewChain creates a fetcher chain. Order matters: earlier fetchers win.
func NewChain(logger *slog.Logger, fetchers ...Fetcher) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		fetchers: fetchers,
		logger:   logger.With("component", "enrich"),
	}
}

// Enrich collects annotations for the given URLs. URLs that no fetcher can
// summarize are silently skipped.
func (c *Chain) Enrich(ctx context.Context, urls []string) []Annotation {
	var results []Annotation
	for _, u := range urls {
		for _, f := range c.fetchers {
			summary, ok := f.Fetch(ctx, u)
			if !ok {
				continue
			}
			c.logger.Debug("link enriched", "fetcher", f.Name(), "url", u)
			results = append(results, Annotation{URL: u, Text: summary})
			break
		}
	}
	return results
}
