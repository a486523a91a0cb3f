package theme

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the session cookie carrying the client id.
const CookieName = "ps_session"

// Sessions issues and validates anonymous client-id cookies.
type Sessions struct {
	Secret []byte
	TTL    time.Duration
	Secure bool
}

// ClientID returns the client id from a valid session cookie.
func (s Sessions) ClientID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	tok, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", false
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

// Ensure returns the request's client id, issuing a new session cookie when
// there is none.
func (s Sessions) Ensure(w http.ResponseWriter, r *http.Request) string {
	if id, ok := s.ClientID(r); ok {
		return id
	}
	id := uuid.NewString()
	s.issue(w, id)
	return id
}

func (s Sessions) issue(w http.ResponseWriter, id string) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": id,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	})
	ss, _ := token.SignedString(s.Secret)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    ss,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}
