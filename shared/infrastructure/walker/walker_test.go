package walker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mavencrawler/shared/infrastructure/config"
	httpx "mavencrawler/shared/infrastructure/http"
	"mavencrawler/shared/infrastructure/observability/adapters/noop"
	"mavencrawler/shared/mocks"
)

var testObs = &mocks.Observability{Log: noop.Logger{}, Met: noop.Metrics{}}

func listing(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><h1>Index</h1><pre>")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<a href="%s" title="%s">%s</a>`+"\n", h, h, h)
	}
	b.WriteString("</pre></body></html>")
	return b.String()
}

func newRepoServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/maven2/": listing("../", "?C=N;O=D", "#top", "log4j/", "log4j/", "/other/",
			"http://elsewhere.example.com/x/", ":junit/", "archetype-catalog.xml"),
		"/maven2/log4j/":                               listing("../", "log4j/"),
		"/maven2/log4j/log4j/":                         listing("../", "1.2.17/", "maven-metadata.xml", "maven-metadata.xml.md5"),
		"/maven2/log4j/log4j/maven-metadata.xml":       "<metadata/>",
		"/maven2/log4j/log4j/1.2.17/":                  listing("../", "log4j-1.2.17.jar", "log4j-1.2.17.pom"),
		"/maven2/log4j/log4j/1.2.17/log4j-1.2.17.pom":  "<project/>",
		"/maven2/junit/":                               listing("../", "missing.pom"),
		"/snapshots/":                                  listing("app/"),
		"/snapshots/app/":                              listing("app-1.0.pom"),
		"/snapshots/app/app-1.0.pom":                   "<project/>",
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type recordingPolicy struct {
	mu      sync.Mutex
	visited []string
}

func (p *recordingPolicy) NormalizeURL(raw string) string {
	return strings.ReplaceAll(raw, "/:", "/")
}

func (p *recordingPolicy) ShouldVisit(referrer, url string) bool {
	if referrer != "" && !strings.HasPrefix(url, referrer) {
		return false
	}
	return !strings.HasSuffix(url, ".jar") && !strings.HasSuffix(url, ".md5") &&
		!strings.HasSuffix(url, "archetype-catalog.xml")
}

func (p *recordingPolicy) Wants(url string) bool {
	return strings.HasSuffix(url, ".pom") || strings.HasSuffix(url, "maven-metadata.xml")
}

func (p *recordingPolicy) Visit(_ context.Context, url string, body io.Reader) error {
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	return nil
}

func (p *recordingPolicy) sorted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.visited...)
	sort.Strings(out)
	return out
}

func newWalker(t *testing.T, policy Policy, maxDepth int) *Walker {
	t.Helper()
	client, err := httpx.NewClient(config.HTTPConfig{Timeout: 5 * time.Second}, testObs)
	require.NoError(t, err)
	w, err := New(client, policy, maxDepth, 0, testObs)
	require.NoError(t, err)
	return w
}

func TestWalk(t *testing.T) {
	srv := newRepoServer(t)
	ctx := context.Background()

	t.Run("follows listings and visits wanted files", func(t *testing.T) {
		policy := &recordingPolicy{}
		stats, err := newWalker(t, policy, 0).Walk(ctx, srv.URL+"/maven2")
		require.NoError(t, err)

		assert.Equal(t, Stats{Pages: 5, Visited: 2, Failed: 1}, stats)
		assert.Equal(t, []string{
			srv.URL + "/maven2/log4j/log4j/1.2.17/log4j-1.2.17.pom",
			srv.URL + "/maven2/log4j/log4j/maven-metadata.xml",
		}, policy.sorted())
	})

	t.Run("max depth bounds listings", func(t *testing.T) {
		policy := &recordingPolicy{}
		stats, err := newWalker(t, policy, 2).Walk(ctx, srv.URL+"/maven2/")
		require.NoError(t, err)

		assert.Equal(t, Stats{Pages: 4, Visited: 1, Failed: 1}, stats)
		assert.Equal(t, []string{srv.URL + "/maven2/log4j/log4j/maven-metadata.xml"}, policy.sorted())
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newWalker(t, &recordingPolicy{}, 0).Walk(cctx, srv.URL+"/maven2")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWalkAll(t *testing.T) {
	srv := newRepoServer(t)
	policy := &recordingPolicy{}

	stats, err := newWalker(t, policy, 0).WalkAll(context.Background(), []string{srv.URL + "/maven2", srv.URL + "/snapshots"})
	require.NoError(t, err)

	assert.Equal(t, Stats{Pages: 7, Visited: 3, Failed: 1}, stats)
	assert.Contains(t, policy.sorted(), srv.URL+"/snapshots/app/app-1.0.pom")
}

func TestExtractLinks(t *testing.T) {
	doc := `<html><body>
<a name="top"></a>
<a href="a/">a/</a>
<A HREF="b.pom">b</A>
<img src="x.png"/>
<a class="x" href="c/" />
</body></html>`

	assert.Equal(t, []string{"a/", "b.pom", "c/"}, ExtractLinks(strings.NewReader(doc)))
}

func TestWaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	assert.NoError(t, wait(context.Background(), 0))
}
