// Package server contains the HTTP API of the service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/Hchautard/CerisoNet-back/internal/server/middleware"
	"github.com/Hchautard/CerisoNet-back/internal/service"
	"github.com/Hchautard/CerisoNet-back/internal/session"
)

var log = logrus.WithField("layer", "server")

const healthTimeout = 5 * time.Second

// Pinger reports whether an underlying store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type sessionContextKey struct{}

type server struct {
	s        service.Service
	sessions *session.Store

	cookieName string
	cookieTTL  time.Duration

	pingers []Pinger
}

// Config ...
type Config struct {
	CookieName string
	CookieTTL  time.Duration
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, sessions *session.Store, cfg Config, r chi.Router, pingers ...Pinger) {
	r.Use(
		middleware.Logger,
		chimiddleware.StripSlashes,
		cors.AllowAll().Handler,
		middleware.Recoverer,
	)

	srv := server{
		s:          s,
		sessions:   sessions,
		cookieName: cfg.CookieName,
		cookieTTL:  cfg.CookieTTL,
		pingers:    pingers,
	}

	r.Get("/health", srv.health)
	r.Post("/login", srv.login)
	r.Post("/logout", srv.logout)
	r.Get("/error", srv.getError)

	r.Group(func(r chi.Router) {
		r.Use(srv.authenticated)

		r.Get("/user", srv.getUser)
		r.Get("/users/connected", srv.getConnectedUsers)
		r.Get("/posts", srv.listPosts)
	})
}

// authenticated rejects requests which don't carry a live session cookie.
func (s server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		sess, err := s.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				s.clearSessionCookie(w)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			log.WithError(err).Error("failed to get session")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey{}, sess)))
	})
}

func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess
}

func (s server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cookieTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (s server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (s server) healthContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), healthTimeout)
}
