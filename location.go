package weave

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// SrcLocation identifies which listener a route belongs to and which
// request paths it matches. Its literal syntax is "host:port[/path-prefix]",
// the path prefix defaulting to "/".
type SrcLocation struct {
	Addr       string
	PathPrefix string
}

// ParseSrcLocation parses a source location token. It fails if the
// address part is not a syntactically valid host:port.
func ParseSrcLocation(token string) (*SrcLocation, error) {
	addr, path, _ := strings.Cut(strings.TrimSpace(token), "/")
	addr = strings.TrimSpace(addr)

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("%q is not a valid host:port", addr)
	}

	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		return nil, fmt.Errorf("%q is not a valid port", port)
	}

	prefix, err := url.JoinPath("/", strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("invalid path prefix %q", path)
	}

	return &SrcLocation{
		Addr:       net.JoinHostPort(host, port),
		PathPrefix: prefix,
	}, nil
}

func (s *SrcLocation) String() string {
	return s.Addr + s.PathPrefix
}

// DestLocation is where a matched request ends up: a remote origin to
// reverse-proxy to when URL is non-nil, a local filesystem root
// otherwise. Exactly one of the two is ever populated.
type DestLocation struct {
	URL  *url.URL
	Path string
}

// ParseDestLocation parses a destination location token. A token with
// an http or https scheme becomes a remote origin; anything else is
// taken as a filesystem path, absolute or relative to the working
// directory. It fails only on tokens that are invalid as either, i.e.
// an http-like token with broken URL syntax.
func ParseDestLocation(token string) (*DestLocation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("empty destination")
	}

	u, err := url.Parse(token)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if u.Host == "" {
			return nil, fmt.Errorf("url %q has no host", token)
		}

		// Root the base path so that appending a remainder always
		// produces an absolute path.
		if u.Path == "" {
			u.Path = "/"
		}

		return &DestLocation{URL: u}, nil
	} else if err != nil && (strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://")) {
		return nil, err
	}

	return &DestLocation{Path: token}, nil
}

func (d *DestLocation) String() string {
	if d.URL != nil {
		return d.URL.String()
	}

	return d.Path
}
