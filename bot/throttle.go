package bot

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Throttle limits how often a single chat can trigger a query. Limiters of
// chats that stay quiet for the idle period are dropped. A nil *Throttle
// allows everything.
type Throttle struct {
	every time.Duration
	burst int

	mu       sync.Mutex
	limiters *cache.Cache
}

func NewThrottle(every time.Duration, burst int, idle time.Duration) *Throttle {
	return &Throttle{
		every:    every,
		burst:    burst,
		limiters: cache.New(idle, 2*idle),
	}
}

// Allow reports whether chatID may run another query now.
func (t *Throttle) Allow(chatID int64) bool {
	if t == nil {
		return true
	}
	key := strconv.FormatInt(chatID, 10)

	t.mu.Lock()
	defer t.mu.Unlock()

	var l *rate.Limiter
	if v, ok := t.limiters.Get(key); ok {
		l = v.(*rate.Limiter)
	} else {
		l = rate.NewLimiter(rate.Every(t.every), t.burst)
	}
	// Re-setting pushes the idle expiry forward.
	t.limiters.SetDefault(key, l)
	return l.Allow()
}

// Chats returns the number of chats currently tracked.
func (t *Throttle) Chats() int {
	if t == nil {
		return 0
	}
	return t.limiters.ItemCount()
}
