package handlers

import (
	"net/url"
	"strings"
)

// originSet holds the configured browser origins ("scheme://host[:port]")
type originSet map[string]bool

func newOriginSet(origins []string) originSet {
	set := make(originSet, len(origins))
	for _, o := range origins {
		set[strings.TrimRight(o, "/")] = true
	}
	return set
}

// allows reports whether origin is configured or "*" is
func (s originSet) allows(origin string) bool {
	return s["*"] || s[origin]
}

// allowsRedirect reports whether target is an absolute http(s) URL on an
// explicitly configured origin. "*" does not cover redirects.
func (s originSet) allowsRedirect(target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || u.User != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return s[u.Scheme+"://"+u.Host]
}
