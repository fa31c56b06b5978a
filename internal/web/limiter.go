package web

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Entries idle longer than this are dropped on the next sweep.
const limiterIdle = 10 * time.Minute

type limits struct {
	every time.Duration
	burst int
}

func perMinute(n int) limits {
	if n <= 0 {
		n = 1
	}
	return limits{every: time.Minute / time.Duration(n), burst: n}
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client address.
type clientLimiter struct {
	mu        sync.Mutex
	limits    limits
	clients   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(l limits) *clientLimiter {
	return &clientLimiter{
		limits:  l,
		clients: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) > limiterIdle {
		for k, e := range c.clients {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(c.clients, k)
			}
		}
		c.lastSweep = now
	}

	e, ok := c.clients[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Every(c.limits.every), c.limits.burst)}
		c.clients[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

// reset applies new limits; existing buckets start over.
func (c *clientLimiter) reset(l limits) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limits = l
	c.clients = make(map[string]*limiterEntry)
}
