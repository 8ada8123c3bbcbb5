package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// Throttler is a coarse per-IP token bucket in front of the public
// routes. It is separate from the login lockout: this one caps raw
// request volume, the lockout counts failed credential checks.
type Throttler struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
}

func NewThrottler(rps float64, burst int) *Throttler {
	t := &Throttler{
		clients: make(map[string]*client),
		r:       rate.Limit(rps),
		burst:   burst,
	}
	// cleanup stale entries every minute
	go func() {
		for {
			time.Sleep(time.Minute)
			t.mu.Lock()
			for ip, c := range t.clients {
				if time.Since(c.seen) > 3*time.Minute {
					delete(t.clients, ip)
				}
			}
			t.mu.Unlock()
		}
	}()
	return t
}

func (t *Throttler) get(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[ip]; ok {
		c.seen = time.Now()
		return c.lim
	}
	l := rate.NewLimiter(t.r, t.burst)
	t.clients[ip] = &client{lim: l, seen: time.Now()}
	return l
}

func Throttle(t *Throttler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.get(ClientIP(r)).Allow() {
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers X-Forwarded-For (first hop) over the socket address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
