package weave_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	weave "github.com/frantjc/go-weave"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandlerNoMatch(t *testing.T) {
	handler := &weave.Handler{
		Addr:    "localhost:8080",
		Matcher: weave.NewMatcher(mustRoutes(t, "localhost:8080/api", "to", "http://example.com")),
		Log:     discard(),
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/nope", nil))

	result := recorder.Result()
	defer assert.NoError(t, result.Body.Close())
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	body, err := io.ReadAll(result.Body)
	assert.NoError(t, err)
	assert.Equal(t, "weave: no routes matched", string(body))
}

func FuzzHandlerNoMatch(f *testing.F) {
	f.Add("/notfound")
	f.Add("/alsonotfound")
	f.Add("/mismatch/extra")

	handler := &weave.Handler{
		Addr:    "localhost:8080",
		Matcher: weave.NewMatcher(mustRoutes(f, "localhost:8080/api", "to", "http://example.com")),
		Log:     discard(),
	}

	f.Fuzz(func(t *testing.T, target string) {
		for _, element := range strings.Split(target, "/") {
			if element == "api" {
				t.Skip()
			}
		}

		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/placeholder", nil)
		request.URL = &url.URL{Path: target}
		handler.ServeHTTP(recorder, request)

		result := recorder.Result()
		defer assert.NoError(t, result.Body.Close())
		assert.Equal(t, http.StatusNotFound, result.StatusCode)
	})
}

func TestHandlerProxy(t *testing.T) {
	var (
		body    = uuid.NewString()
		gotPath string
		gotRaw  string
		gotHost string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRaw = r.URL.RawQuery
		gotHost = r.Host
		w.Header().Set("X-Upstream", "1")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(upstream.Close)

	handler := &weave.Handler{
		Addr:    "localhost:8080",
		Matcher: weave.NewMatcher(mustRoutes(t, "localhost:8080/api", "to", upstream.URL)),
		Log:     discard(),
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/echo?x=1", nil))

	result := recorder.Result()
	defer assert.NoError(t, result.Body.Close())
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "1", result.Header.Get("X-Upstream"))

	got, err := io.ReadAll(result.Body)
	assert.NoError(t, err)
	assert.Equal(t, body, string(got))

	assert.Equal(t, "/echo", gotPath)
	assert.Equal(t, "x=1", gotRaw)

	// The inbound Host header must not leak upstream.
	u, err := url.Parse(upstream.URL)
	assert.NoError(t, err)
	assert.Equal(t, u.Host, gotHost)
}

func TestHandlerProxyStatusPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	t.Cleanup(upstream.Close)

	handler := &weave.Handler{
		Addr:    "localhost:8080",
		Matcher: weave.NewMatcher(mustRoutes(t, "localhost:8080/api", "to", upstream.URL)),
		Log:     discard(),
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api", nil))

	result := recorder.Result()
	defer assert.NoError(t, result.Body.Close())
	assert.Equal(t, http.StatusTeapot, result.StatusCode)
}

func TestHandlerProxyError(t *testing.T) {
	// Closing the upstream before proxying to it guarantees a
	// transport failure.
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	handler := &weave.Handler{
		Addr:    "localhost:8080",
		Matcher: weave.NewMatcher(mustRoutes(t, "localhost:8080/api", "to", target)),
		Log:     discard(),
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api", nil))

	result := recorder.Result()
	defer assert.NoError(t, result.Body.Close())
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	body, err := io.ReadAll(result.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "weave: ")
}

func TestHandlerServeFile(t *testing.T) {
	var (
		dir   = t.TempDir()
		index = uuid.NewString()
		css   = uuid.NewString()
	)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0600))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte(css), 0600))

	handler := &weave.Handler{
		Addr:    "localhost:8080",
		Matcher: weave.NewMatcher(mustRoutes(t, "localhost:8080", "to", dir)),
		Log:     discard(),
	}

	for _, tc := range []struct {
		path, body, contentType string
	}{
		// index.htm does not exist, so index.html wins.
		{"/", index, "text/html"},
		{"/index.html", index, "text/html"},
		{"/styles.css", css, "text/css"},
	} {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tc.path, nil))

		result := recorder.Result()
		defer assert.NoError(t, result.Body.Close())
		assert.Equal(t, http.StatusOK, result.StatusCode, tc.path)
		assert.Contains(t, result.Header.Get("Content-Type"), tc.contentType, tc.path)

		body, err := io.ReadAll(result.Body)
		assert.NoError(t, err)
		assert.Equal(t, tc.body, string(body), tc.path)
	}
}

func TestHandlerServeFileNotFound(t *testing.T) {
	dir := t.TempDir()

	handler := &weave.Handler{
		Addr:    "localhost:8080",
		Matcher: weave.NewMatcher(mustRoutes(t, "localhost:8080", "to", dir)),
		Log:     discard(),
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing.txt", nil))

	result := recorder.Result()
	defer assert.NoError(t, result.Body.Close())
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	body, err := io.ReadAll(result.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "weave: could not read file")
	assert.Contains(t, string(body), filepath.Join(dir, "missing.txt"))
}
