package utils

import (
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// LinkRewriter swaps the storage host of file links for the host users
// should see. Path, query and fragment are left untouched.
type LinkRewriter struct {
	canonicalHost string
	displayHost   string
}

// NewLinkRewriter creates a rewriter from canonicalHost to displayHost. An
// empty host on either side disables rewriting.
func NewLinkRewriter(canonicalHost, displayHost string) *LinkRewriter {
	return &LinkRewriter{
		canonicalHost: normalizeHost(canonicalHost),
		displayHost:   normalizeHost(displayHost),
	}
}

// Enabled reports whether links will be rewritten at all
func (r *LinkRewriter) Enabled() bool {
	return r != nil && r.canonicalHost != "" && r.displayHost != "" && r.canonicalHost != r.displayHost
}

// Rewrite returns link with its host replaced when it matches the canonical
// host. Links that do not parse are returned unchanged.
func (r *LinkRewriter) Rewrite(link string) string {
	if !r.Enabled() {
		return link
	}

	u, err := url.Parse(link)
	if err != nil {
		logrus.Tracef("LinkRewriter.Rewrite: leaving unparsable link %q: %v", link, err)
		return link
	}

	host, ok := r.rewriteHost(u.Hostname())
	if !ok {
		return link
	}

	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	return u.String()
}

// rewriteHost maps the canonical host and its subdomains onto the display
// host, keeping any subdomain labels: www.filemoon.sx becomes www.filemoon.in
func (r *LinkRewriter) rewriteHost(host string) (string, bool) {
	host = strings.ToLower(host)
	if host == r.canonicalHost {
		return r.displayHost, true
	}
	if sub, ok := strings.CutSuffix(host, "."+r.canonicalHost); ok && sub != "" {
		return sub + "." + r.displayHost, true
	}
	return "", false
}

// normalizeHost strips a scheme and trailing slash so config values such as
// "https://filemoon.in/" still work
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimSuffix(host, "/")
	return strings.ToLower(host)
}
