// Package walker crawls the HTML directory listings a Maven repository
// serves and hands the files a Policy wants to that Policy.
package walker

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"mavencrawler/shared/application/ports"
)

// Policy decides what is followed and consumes what is found.
type Policy interface {
	NormalizeURL(raw string) string
	ShouldVisit(referrer, url string) bool
	Wants(url string) bool
	Visit(ctx context.Context, url string, body io.Reader) error
}

// Stats counts one walk. Pages are listings fetched, Visited are files
// handed to the policy.
type Stats struct {
	Pages   int
	Visited int
	Failed  int
}

func (s *Stats) add(o Stats) {
	s.Pages += o.Pages
	s.Visited += o.Visited
	s.Failed += o.Failed
}

type page struct {
	url      string
	referrer string
	depth    int
}

type Walker struct {
	fetcher  ports.Fetcher
	policy   Policy
	maxDepth int
	delay    time.Duration
	logger   ports.Logger
	metrics  ports.Metrics
}

// New builds a walker. maxDepth bounds how many listings deep below a seed
// links are followed; zero means unbounded. delay is waited between two
// requests of the same seed.
func New(fetcher ports.Fetcher, policy Policy, maxDepth int, delay time.Duration, obs ports.Observability) (*Walker, error) {
	logger, metrics, err := obs.ComponentsScoped("walker")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &Walker{
		fetcher:  fetcher,
		policy:   policy,
		maxDepth: maxDepth,
		delay:    delay,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// WalkAll walks every seed concurrently, one goroutine per seed. It returns
// the summed stats and the first error, which is only ever a context error.
func (w *Walker) WalkAll(ctx context.Context, seeds []string) (Stats, error) {
	var (
		mu    sync.Mutex
		total Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, seed := range seeds {
		g.Go(func() error {
			stats, err := w.Walk(gctx, seed)
			mu.Lock()
			total.add(stats)
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return total, err
}

// Walk does a breadth-first traversal of the listing at seed. Fetch and
// visit failures are logged and counted; only cancellation stops it early.
func (w *Walker) Walk(ctx context.Context, seed string) (Stats, error) {
	var stats Stats
	startTime := time.Now()

	root := w.policy.NormalizeURL(strings.TrimRight(seed, "/") + "/")
	logger := w.logger.WithFields(map[string]interface{}{"seed": root})
	if !w.policy.ShouldVisit("", root) {
		logger.Info("Seed rejected by policy")
		return stats, nil
	}

	seen := map[string]bool{root: true}
	queue := []page{{url: root}}
	first := true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if !first {
			if err := wait(ctx, w.delay); err != nil {
				return stats, err
			}
		}
		first = false
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if isListing(current.url) {
			links, err := w.listing(ctx, current.url)
			if err != nil {
				stats.Failed++
				logger.Error("Failed to read listing", "url", current.url, "error", err)
				w.metrics.IncrementCounter("walker.failed", map[string]string{"kind": "listing"})
				continue
			}
			stats.Pages++
			w.metrics.IncrementCounter("walker.pages", nil)

			for _, link := range links {
				if seen[link] || !w.policy.ShouldVisit(current.url, link) {
					continue
				}
				if isListing(link) && w.maxDepth > 0 && current.depth+1 > w.maxDepth {
					continue
				}
				if !isListing(link) && !w.policy.Wants(link) {
					continue
				}
				seen[link] = true
				queue = append(queue, page{url: link, referrer: current.url, depth: current.depth + 1})
			}
			continue
		}

		if err := w.visit(ctx, current.url); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			logger.Error("Failed to visit page", "url", current.url, "referrer", current.referrer, "error", err)
			w.metrics.IncrementCounter("walker.failed", map[string]string{"kind": "file"})
			continue
		}
		stats.Visited++
		w.metrics.IncrementCounter("walker.visited", nil)
	}

	logger.Info("Walk completed",
		"pages", stats.Pages,
		"visited", stats.Visited,
		"failed", stats.Failed,
		"duration", time.Since(startTime).String())
	w.metrics.RecordHistogram("walker.duration_ms", float64(time.Since(startTime).Milliseconds()), nil)

	return stats, nil
}

func (w *Walker) visit(ctx context.Context, pageURL string) error {
	body, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return err
	}
	defer body.Close()
	return w.policy.Visit(ctx, pageURL, body)
}

func (w *Walker) listing(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	body, err := w.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var links []string
	for _, href := range ExtractLinks(body) {
		if link, ok := w.resolve(base, href); ok {
			links = append(links, link)
		}
	}
	return links, nil
}

// resolve makes href absolute against base. Sort links, anchors, parent
// links and foreign schemes are dropped.
func (w *Walker) resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "../") || href == ".." {
		return "", false
	}
	// Some listings emit ":name/"; it is a relative path, not a scheme.
	if strings.HasPrefix(href, ":") {
		href = "./" + href
	}
	ref, err := url.Parse(href)
	if err != nil || ref.RawQuery != "" || ref.Fragment != "" || strings.HasSuffix(href, "#") {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return w.policy.NormalizeURL(abs.String()), true
}

// ExtractLinks returns the href of every anchor in an HTML document, in
// document order. Tokenizing stops at the first error, including EOF.
func ExtractLinks(r io.Reader) []string {
	var links []string
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					links = append(links, string(val))
					break
				}
				if !more {
					break
				}
			}
		}
	}
}

func isListing(u string) bool {
	return strings.HasSuffix(u, "/")
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
