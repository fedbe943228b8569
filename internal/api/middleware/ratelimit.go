package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter table; idle entries are evicted first.
const maxTrackedClients = 10000

// RateLimiter hands each client IP its own token bucket.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	idle       time.Duration
	maxClients int

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:      rate.Limit(rps),
		burst:      burst,
		idle:       10 * time.Minute,
		maxClients: maxTrackedClients,
		clients:    make(map[string]*clientLimiter),
		now:        time.Now,
	}
}

// Handler rejects requests over the client's budget with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil || rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := rl.get(clientIP(r))
		if !lim.Allow() {
			retry := time.Duration(float64(time.Second) / float64(rl.limit))
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(retry.Seconds()+0.5))))
			writeDetail(w, http.StatusTooManyRequests, "Too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if c, ok := rl.clients[ip]; ok {
		c.lastSeen = now
		return c.limiter
	}

	if len(rl.clients) >= rl.maxClients {
		rl.evict(now)
	}

	c := &clientLimiter{
		limiter:  rate.NewLimiter(rl.limit, rl.burst),
		lastSeen: now,
	}
	rl.clients[ip] = c
	return c.limiter
}

// evict drops idle clients. When every client is active it drops only the
// least recently seen one, so busy clients keep their spent budget.
func (rl *RateLimiter) evict(now time.Time) {
	var (
		oldestIP string
		oldest   time.Time
	)
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.idle {
			delete(rl.clients, ip)
			continue
		}
		if oldestIP == "" || c.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, c.lastSeen
		}
	}
	if len(rl.clients) >= rl.maxClients {
		delete(rl.clients, oldestIP)
	}
}

// clientIP strips the port RemoteAddr carries unless RealIP already did.
// RemoteAddr only reflects forwarding headers when the router trusts a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
