package web

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/JonMunkholm/sheetflow/internal/config"
	"github.com/JonMunkholm/sheetflow/internal/logging"
)

// sessionIDKey is the cookie value holding the upload session id. The
// cookie never carries tables or credentials.
const sessionIDKey = "sid"

func newCookieStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// sessionID returns the upload session id for the browser, issuing a new
// cookie when none is present or the old one cannot be decoded. The upload
// session is created on first sight, so a cookie that outlived an expired
// session simply starts idle. It must run before anything is written to w.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	id := s.cookieSessionID(w, r)
	s.service.Sessions().Ensure(id)
	return id
}

func (s *Server) cookieSessionID(w http.ResponseWriter, r *http.Request) string {
	log := logging.FromContext(r.Context())

	sess, err := s.cookies.Get(r, s.cfg.Session.CookieName)
	if err != nil {
		log.Debug("discarding unreadable session cookie", "error", err)
	}
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		log.Warn("save session cookie", "error", err)
	}
	return id
}
