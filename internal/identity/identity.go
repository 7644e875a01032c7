// Package identity resolves the display identity of the person behind a
// Cloudflare Access protected request. The result is presentation metadata
// only and must never be used for authorization.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// AccessInfoCookie carries the base64 JSON user info set by Access.
	AccessInfoCookie = "__Secure-cf_access_info"
	// EmailHeader is added by Access to proxied requests.
	EmailHeader = "Cf-Access-Authenticated-User-Email"
	// FallbackEmail is shown when no real identity is available.
	FallbackEmail = "authenticated-user@example.com"
	// LogoutPath ends the Access session.
	LogoutPath = "/cdn-cgi/access/logout"
	// SessionCookie scopes the identity cache to one browser.
	SessionCookie = "mc_session"

	maxSessions = 1024
)

// Source names where an identity came from.
type Source string

const (
	SourceCookie   Source = "cookie"
	SourceHeader   Source = "header"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// User is the resolved identity.
type User struct {
	Email     string `json:"email"`
	Source    Source `json:"source"`
	Protected bool   `json:"protected"`
	LogoutURL string `json:"logoutUrl"`
}

// Resolver extracts identities and remembers the last real email seen per
// browser session, so one client's identity never answers for another.
type Resolver struct {
	mu       sync.Mutex
	sessions map[string]string
	order    []string
	max      int
}

// NewResolver returns a resolver with an empty cache.
func NewResolver() *Resolver {
	return &Resolver{sessions: make(map[string]string), max: maxSessions}
}

// Resolve walks the fallback chain: Access cookie, Access header, the last
// real email seen in this session, then FallbackEmail. A request without a
// valid session cookie is issued one on w.
func (res *Resolver) Resolve(w http.ResponseWriter, r *http.Request) User {
	user := User{
		Protected: IsAccessProtected(r),
		LogoutURL: LogoutPath,
	}
	session := ensureSession(w, r)

	if email := emailFromCookie(r); email != "" {
		res.remember(session, email)
		user.Email, user.Source = email, SourceCookie
		return user
	}

	if email := strings.TrimSpace(r.Header.Get(EmailHeader)); email != "" && email != FallbackEmail {
		res.remember(session, email)
		user.Email, user.Source = email, SourceHeader
		return user
	}

	if cached := res.Cached(session); cached != "" {
		user.Email, user.Source = cached, SourceCache
		return user
	}

	user.Email, user.Source = FallbackEmail, SourceFallback
	return user
}

// Cached returns the last real email seen in session, if any.
func (res *Resolver) Cached(session string) string {
	if session == "" {
		return ""
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	return res.sessions[session]
}

// Forget clears the email cached for the request's session, as a logout does.
func (res *Resolver) Forget(r *http.Request) {
	session := sessionFromRequest(r)
	if session == "" {
		return
	}
	res.mu.Lock()
	delete(res.sessions, session)
	res.mu.Unlock()
}

func (res *Resolver) remember(session, email string) {
	if session == "" || email == "" || email == FallbackEmail {
		return
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	if _, ok := res.sessions[session]; !ok {
		res.order = append(res.order, session)
		for len(res.order) > res.max {
			delete(res.sessions, res.order[0])
			res.order = res.order[1:]
		}
	}
	res.sessions[session] = email
}

func sessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// ensureSession returns the request's session id, issuing a new cookie on w
// when there is none. A nil w yields no session and so no caching.
func ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id := sessionFromRequest(r); id != "" {
		return id
	}
	if w == nil {
		return ""
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// IsAccessProtected reports whether the request carries any Access cookie.
func IsAccessProtected(r *http.Request) bool {
	for _, c := range r.Cookies() {
		if strings.HasPrefix(c.Name, "__Secure-cf") || strings.HasPrefix(c.Name, "cf_") {
			return true
		}
	}
	return false
}

type accessInfo struct {
	Email string `json:"email"`
}

func emailFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessInfoCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}

	email, err := decodeAccessInfo(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("Access info cookie could not be decoded")
		return ""
	}
	return email
}

func decodeAccessInfo(value string) (string, error) {
	unescaped, err := url.PathUnescape(value)
	if err != nil {
		return "", err
	}

	raw, err := decodeBase64(unescaped)
	if err != nil {
		return "", err
	}

	var info accessInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return "", err
	}
	return strings.TrimSpace(info.Email), nil
}

func decodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
