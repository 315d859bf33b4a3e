package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Principal                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// Principal is the authenticated caller. It is looked up fresh on every
// request and passed explicitly to every action.
type Principal struct {
	ID          primitive.ObjectID `json:"id"`
	Username    string             `json:"username"`
	Email       string             `json:"email,omitempty"`
	DisplayName string             `json:"display_name"`
	IsAdmin     bool               `json:"is_admin"`
}

type ctxKey string

const principalKey ctxKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// CurrentPrincipal returns the principal & "found?" flag.
func CurrentPrincipal(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Collaborators                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// PrincipalFetcher loads the current state of a user. It returns nil when the
// user no longer exists.
type PrincipalFetcher interface {
	FetchPrincipal(ctx context.Context, userID primitive.ObjectID) *Principal
}

// TokenStore resolves an opaque auth token to its unexpired session.
type TokenStore interface {
	FindActive(ctx context.Context, token string, now time.Time) (models.AuthSession, error)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session cookie                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// TokenKey is the session value holding the auth token.
const TokenKey = "auth_token"

// SessionManager reads the auth token from the signed session cookie.
// Issuing the cookie is the login flow's job; this side only reads it.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionManager builds the cookie store. The `secure` flag controls
// whether cookies are marked Secure and which SameSite mode is used.
func NewSessionManager(sessionKey, name, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.String("name", name))

	return &SessionManager{store: store, name: name}, nil
}

// CookieToken returns the auth token stored in the session cookie, or "".
func (sm *SessionManager) CookieToken(r *http.Request) string {
	if sm == nil {
		return ""
	}
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return ""
	}
	if v, ok := sess.Values[TokenKey].(string); ok {
		return v
	}
	return ""
}

// SaveToken writes token into the session cookie.
func (sm *SessionManager) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[TokenKey] = token
	return sess.Save(r, w)
}

// TokenFromRequest prefers an Authorization bearer token and falls back to
// the session cookie.
func (sm *SessionManager) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return sm.CookieToken(r)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authenticator                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// Authenticator resolves the request's principal from its auth token.
type Authenticator struct {
	sessions *SessionManager
	tokens   TokenStore
	fetcher  PrincipalFetcher
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthenticator wires the cookie reader, the token store and the
// principal fetcher.
func NewAuthenticator(sm *SessionManager, tokens TokenStore, fetcher PrincipalFetcher, log *zap.Logger) *Authenticator {
	return &Authenticator{
		sessions: sm,
		tokens:   tokens,
		fetcher:  fetcher,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ErrNoToken means the request carried no auth token at all.
var ErrNoToken = errors.New("no auth token")

// Principal returns the caller for r, or nil with the reason.
func (a *Authenticator) Principal(r *http.Request) (*Principal, error) {
	token := a.sessions.TokenFromRequest(r)
	if token == "" {
		return nil, ErrNoToken
	}
	sess, err := a.tokens.FindActive(r.Context(), token, a.now())
	if err != nil {
		return nil, err
	}
	p := a.fetcher.FetchPrincipal(r.Context(), sess.UserID)
	if p == nil {
		return nil, fmt.Errorf("user %s for session not found", sess.UserID.Hex())
	}
	return p, nil
}

// LoadPrincipal injects the principal into the request context when the
// request is authenticated. Unauthenticated requests pass through; the
// dispatcher decides which actions need a principal.
func (a *Authenticator) LoadPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Principal(r)
		switch {
		case err == nil:
			r = r.WithContext(WithPrincipal(r.Context(), p))
		case !errors.Is(err, ErrNoToken):
			a.log.Debug("auth token rejected", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}
