// Package identity derives canonical identity keys for content items.
//
// Two items are the same resource iff their canonical keys match. Keys are
// derived, never stored: origin+path for path-addressed LMSes, origin+path
// plus a fixed query-parameter allow-list for query-addressed LMSes, and a
// content hash when no usable URL exists. CanonicalID is pure and total —
// malformed URLs degrade to the hash fallback instead of erroring.
package identity

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"

	"github.com/NoelSason/canvascope/internal/lms"
)

// paramAllowList is the fixed set of identity-bearing query parameters for
// query-addressed LMSes, in the order they are serialized into the key.
// ou is the org unit (course), the rest identify the resource itself.
var paramAllowList = []string{"ou", "db", "qi", "forumId", "topicId", "newsId", "itemId"}

// canonicalSegments mark a URL path as a canonical resource address rather
// than a generic module-item redirect.
var canonicalSegments = []string{
	"/assignments",
	"/quizzes",
	"/files",
	"/discussion_topics",
	"/pages",
	"/announcements",
	"/dropbox",
	"/quizzing",
	"/discussions",
	"/news",
}

// CanonicalID computes the canonical identity key for an item.
func CanonicalID(item lms.ContentItem) string {
	u, ok := parseURL(item.URL)
	if !ok {
		return hashFallback(item)
	}

	base := origin(u) + u.Path

	if isQueryAddressed(u) {
		q := u.Query()
		var parts []string
		for _, key := range paramAllowList {
			if v := q.Get(key); v != "" {
				parts = append(parts, key+"="+v)
			}
		}
		if len(parts) > 0 {
			return base + "?" + strings.Join(parts, "&")
		}
	}

	// Query strings are dropped for all other systems: items differing only
	// by a tracking or session parameter collapse.
	return base
}

// IsCanonicalURL reports whether a URL addresses a resource directly, as
// opposed to a generic module-item redirect.
func IsCanonicalURL(rawURL string) bool {
	u, ok := parseURL(rawURL)
	if !ok {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, seg := range canonicalSegments {
		if strings.Contains(path, seg) {
			return true
		}
	}
	return false
}

// URLPath returns the path portion of a URL for click-feedback keying,
// or "" when the URL is unusable.
func URLPath(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return ""
	}
	return u.Path
}

// isQueryAddressed detects LMSes that encode item identity in query
// parameters (Brightspace-style ".d2l" paths or d2l hosts).
func isQueryAddressed(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	host := strings.ToLower(u.Hostname())
	return strings.HasPrefix(path, "/d2l/") ||
		strings.HasSuffix(path, ".d2l") ||
		strings.Contains(host, "d2l") ||
		strings.Contains(host, "brightspace")
}

func parseURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

func hashFallback(item lms.ContentItem) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(item.Title)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(item.CourseName)))
	h.Write([]byte{0})
	h.Write([]byte(item.Type))
	return "hash:" + fmt.Sprintf("%x", h.Sum(nil))
}
