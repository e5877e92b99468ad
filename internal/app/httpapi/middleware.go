package httpapi

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vendnet/vendops/internal/app/domain/audit"
	"github.com/vendnet/vendops/internal/app/domain/user"
)

type ctxKey int

const ctxUserKey ctxKey = iota

// currentUser reads the authenticated user from the request context.
func currentUser(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ctxUserKey).(user.User)
	return u, ok
}

// authMiddleware validates the Bearer token and stores the user in the
// request context.
func (h *handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing bearer token"))
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		u, err := h.app.Auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey, u)))
	})
}

// requirePermission gates a handler on module:action. Admins pass via
// the wildcard permission.
func (h *handler) requirePermission(module, action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("not authenticated"))
			return
		}
		if !u.HasPermission(module, action) {
			writeError(w, http.StatusForbidden, fmt.Errorf("missing permission %s:%s", module, action))
			return
		}
		next(w, r)
	}
}

// auditMiddleware appends one log entry per authenticated mutating
// request. The append runs off the response path, best effort.
func (h *handler) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		entry := audit.Entry{
			Time:       time.Now().UTC(),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			RemoteAddr: clientIP(r),
			UserAgent:  r.UserAgent(),
		}
		if u, ok := currentUser(r.Context()); ok {
			entry.UserID = u.ID
			entry.Username = u.Username
			if names := u.RoleNames(); len(names) > 0 {
				entry.Role = strings.Join(names, ",")
			}
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := h.audit.AppendAudit(ctx, entry); err != nil {
				h.log.WithError(err).Warn("audit append failed")
			}
		}()
	})
}

// rateLimitMiddleware applies a per-client token bucket.
func (h *handler) rateLimitMiddleware(next http.Handler) http.Handler {
	limiters := &limiterPool{
		rps:      rate.Limit(h.cfg.RateLimitRPS),
		burst:    h.cfg.RateLimitBurst,
		limiters: make(map[string]*rate.Limiter),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type limiterPool struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func (p *limiterPool) allow(key string) bool {
	p.mu.Lock()
	lim, ok := p.limiters[key]
	if !ok {
		lim = rate.NewLimiter(p.rps, p.burst)
		p.limiters[key] = lim
	}
	p.mu.Unlock()
	return lim.Allow()
}

// corsMiddleware answers preflight requests and sets the allow headers.
func (h *handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.cfg.CORSOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the middleware chain.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
