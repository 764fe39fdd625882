package card

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pardo/pkg/logger"
)

// clusterFeedTemplate expands a bare numeric cluster id into the full
// feed URL.
const clusterFeedTemplate = "https://www.pardo.com.ar/e-planning/cluster_%s.xml"

const fetchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// Strategy describes one way of reaching a feed through an intermediary:
// a URL-rewriting rule plus an optional envelope to unwrap. A non-nil Do
// bypasses HTTP entirely (used for the headless-browser fallback).
type Strategy struct {
	Name   string
	Build  func(target string) string
	Unwrap bool // response body is a JSON envelope with a "contents" field
	Do     func(ctx context.Context, target string) (string, error)
}

// DefaultStrategies returns the fixed relay order: a direct passthrough
// proxy first, a generic CORS relay second, and an envelope-wrapped
// relay last. Feed hosts are frequently CORS-restricted and any single
// relay may be rate-limited, so priority-ordered fallback matters.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name: "direct",
			Build: func(t string) string {
				return "https://corsproxy.io/?url=" + url.QueryEscape(t)
			},
		},
		{
			Name: "relay",
			Build: func(t string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(t)
			},
		},
		{
			Name: "envelope",
			Build: func(t string) string {
				return "https://api.allorigins.win/get?url=" + url.QueryEscape(t)
			},
			Unwrap: true,
		},
	}
}

// HTMLContentError records a relay that served an HTML document instead
// of the feed. Relays commonly degrade to returning their own error page,
// which must never be normalized as feed data. When the HTML was a real
// store page, any feed links discovered in it are carried along so the
// caller can retry against them.
type HTMLContentError struct {
	Strategy       string
	FeedCandidates []string
}

func (e *HTMLContentError) Error() string {
	if len(e.FeedCandidates) > 0 {
		return fmt.Sprintf("strategy %s returned HTML (discovered feed candidates: %s)",
			e.Strategy, strings.Join(e.FeedCandidates, ", "))
	}
	return fmt.Sprintf("strategy %s returned HTML instead of a feed", e.Strategy)
}

func (e *HTMLContentError) Unwrap() error { return ErrInvalidContent }

// Fetcher retrieves a raw feed document through an ordered list of
// transport strategies. The zero value is not usable; call NewFetcher.
type Fetcher struct {
	Client     *http.Client
	Strategies []Strategy
	// Template expands bare numeric cluster ids; empty means the
	// built-in cluster feed template.
	Template string
}

// NewFetcher builds a Fetcher with the default relay list and a
// conservative HTTP timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:     &http.Client{Timeout: 15 * time.Second},
		Strategies: DefaultStrategies(),
	}
}

func (f *Fetcher) template() string {
	if f.Template != "" {
		return f.Template
	}
	return clusterFeedTemplate
}

// Fetch resolves target (a bare cluster id or an absolute URL) and tries
// each strategy in order, returning the first successful body that is
// not an HTML document together with the name of the strategy that
// produced it. Transport failures never abort the loop; only exhausting
// the list does.
func (f *Fetcher) Fetch(ctx context.Context, target string) (string, string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", fmt.Errorf("fetch: empty target")
	}
	if isAllDigits(target) {
		target = fmt.Sprintf(f.template(), target)
	}

	var lastErr error
	for _, st := range f.Strategies {
		body, err := f.tryStrategy(ctx, st, target)
		if err != nil {
			logger.S().Debugw("strategy failed", "strategy", st.Name, "target", target, "err", err)
			lastErr = err
			continue
		}
		if looksLikeHTML(body) {
			herr := &HTMLContentError{
				Strategy:       st.Name,
				FeedCandidates: DiscoverFeedURLs(body, target),
			}
			logger.S().Debugw("strategy rejected", "strategy", st.Name, "target", target, "reason", herr)
			lastErr = herr
			continue
		}
		return body, st.Name, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no strategies configured")
	}
	return "", "", fmt.Errorf("fetch %q: %w: %w", target, ErrFetchExhausted, lastErr)
}

func (f *Fetcher) tryStrategy(ctx context.Context, st Strategy, target string) (string, error) {
	if st.Do != nil {
		return st.Do(ctx, target)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.Build(target), nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", st.Name, err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "application/xml,text/xml,application/json,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", st.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s: upstream status %d", st.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(decodeBody(resp))
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", st.Name, err)
	}
	if st.Unwrap {
		var env struct {
			Contents string `json:"contents"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return "", fmt.Errorf("%s: unwrap envelope: %w", st.Name, err)
		}
		if strings.TrimSpace(env.Contents) == "" {
			return "", fmt.Errorf("%s: empty envelope contents", st.Name)
		}
		return env.Contents, nil
	}
	return string(body), nil
}

// decodeBody undoes Content-Encoding; net/http only auto-decodes when it
// set Accept-Encoding itself.
func decodeBody(resp *http.Response) io.Reader {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		if gr, err := gzip.NewReader(resp.Body); err == nil {
			return gr
		}
	case "deflate":
		if zr, err := zlib.NewReader(resp.Body); err == nil {
			return zr
		}
		return flate.NewReader(resp.Body)
	}
	return resp.Body
}

// looksLikeHTML sniffs the leading window of a body for HTML document
// markers. Relays that fail upstream tend to answer with their own HTML
// error page and a 200 status.
func looksLikeHTML(body string) bool {
	head := strings.TrimLeft(body, " \t\r\n\ufeff")
	if len(head) > 2048 {
		head = head[:2048]
	}
	low := strings.ToLower(head)
	if strings.HasPrefix(low, "<!doctype html") || strings.HasPrefix(low, "<html") {
		return true
	}
	return strings.Contains(low, "<html")
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
