package models

import (
	"net/url"
	"strings"
	"time"
)

// SessionCookie is a single browser cookie captured after login.
// Expires is seconds since epoch; -1 marks a session cookie.
type SessionCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// IsSessionCookie reports whether the cookie lives only as long as the browser
func (c *SessionCookie) IsSessionCookie() bool {
	return c.Expires <= 0
}

// IsExpired reports whether a persistent cookie has passed its expiry at t
func (c *SessionCookie) IsExpired(t time.Time) bool {
	if c.IsSessionCookie() {
		return false
	}
	return time.Unix(int64(c.Expires), 0).Before(t)
}

// StorageItem is one localStorage entry
type StorageItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OriginState holds the localStorage captured for a single origin
type OriginState struct {
	Origin       string        `json:"origin"`
	LocalStorage []StorageItem `json:"localStorage"`
}

// SessionState is the serialized authentication context of one site.
// The cookies/origins layout matches a browser storage-state export so the
// artifact can be produced or inspected with other tooling.
type SessionState struct {
	Site       string          `json:"site"`
	LoginURL   string          `json:"login_url,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	CapturedAt time.Time       `json:"captured_at"`
	Cookies    []SessionCookie `json:"cookies"`
	Origins    []OriginState   `json:"origins"`
}

// SiteDomain returns the host the session belongs to, derived from Site or LoginURL
func (s *SessionState) SiteDomain() string {
	for _, raw := range []string{s.Site, s.LoginURL} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			return strings.ToLower(raw)
		}
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return strings.ToLower(u.Host)
		}
	}
	return ""
}

// IsEmpty reports whether the state carries nothing to authenticate with:
// no site, no cookies and no storage
func (s *SessionState) IsEmpty() bool {
	return s.SiteDomain() == "" && len(s.Cookies) == 0 && len(s.Origins) == 0
}

// ExpiredCookies counts persistent cookies already past their expiry at t
func (s *SessionState) ExpiredCookies(t time.Time) int {
	count := 0
	for i := range s.Cookies {
		if s.Cookies[i].IsExpired(t) {
			count++
		}
	}
	return count
}

// SessionRecord is the badger representation of a SessionState, keyed by site domain
type SessionRecord struct {
	SiteDomain string `badgerhold:"key"`
	State      []byte
	CreatedAt  int64
	UpdatedAt  int64
}
