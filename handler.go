package weave

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Handler dispatches each request on one listener: it resolves the
// request path through its Matcher and either reverse-proxies to the
// resolved URL or serves the resolved file, emitting one structured
// log line per request.
type Handler struct {
	// Addr is the listen address the Handler serves, used only for
	// logging the request source.
	Addr string
	// Matcher resolves request paths. Required.
	Matcher *Matcher
	// Client sends proxied requests. Defaults to http.DefaultClient.
	Client *http.Client
	// Log receives one line per request. Defaults to slog.Default().
	Log *slog.Logger
}

var _ http.Handler = new(Handler)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		start = time.Now()
		log   = h.log().With("src", h.Addr+r.URL.RequestURI())
	)

	resolved := h.Matcher.Resolve(r.URL)
	if resolved == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "weave: no routes matched")
		log.Warn("no matching routes", "duration", time.Since(start))
		return
	}

	log = log.With("dest", resolved.String())

	var (
		status int
		err    error
	)
	if resolved.URL != nil {
		status, err = h.proxy(w, r, resolved)
	} else {
		status, err = h.serveFile(w, resolved)
	}

	if err != nil {
		log.Warn(err.Error(), "status", status, "duration", time.Since(start))
		return
	}

	log.Info("handled", "status", status, "duration", time.Since(start))
}

// proxy sends the request on to the resolved URL and passes the
// upstream response through verbatim. Any transport failure becomes a
// 500 whose body embeds the underlying error.
func (h *Handler) proxy(w http.ResponseWriter, r *http.Request, resolved *ResolvedLocation) (int, error) {
	out := r.Clone(r.Context())
	out.URL = resolved.URL
	out.RequestURI = ""
	// Clear the inbound host so the client derives it from the
	// resolved URL's authority.
	out.Host = ""
	out.Header.Del("Host")

	res, err := h.client().Do(out)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "weave: %v", err)
		return http.StatusInternalServerError, err
	}
	defer res.Body.Close()

	header := w.Header()
	for key, values := range res.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(res.StatusCode)
	_, _ = io.Copy(w, res.Body)

	return res.StatusCode, nil
}

// indexCandidates are appended to a resolved file path in order until
// one is readable.
var indexCandidates = []string{"", "index.htm", "index.html"}

// serveFile responds with the first readable of the resolved path and
// its index candidates, inferring the content type from the winning
// candidate's extension. Every read failure collapses to a 404 naming
// the resolved path and the underlying error.
func (h *Handler) serveFile(w http.ResponseWriter, resolved *ResolvedLocation) (int, error) {
	var (
		name string
		b    []byte
		err  error
	)
	for _, index := range indexCandidates {
		name = filepath.Join(resolved.File, index)
		if b, err = os.ReadFile(name); err == nil {
			break
		}
	}
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "weave: could not read file '%s': %v", resolved.File, err)
		return http.StatusNotFound, err
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)

	return http.StatusOK, nil
}

func (h *Handler) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}

	return http.DefaultClient
}

func (h *Handler) log() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}

	return slog.Default()
}
