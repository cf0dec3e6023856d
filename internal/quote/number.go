package quote

import (
	"fmt"
	"sync"
	"time"
)

// FormatNumber builds a quote number of the form Q-YYYYMMDD-NNNNN, where
// NNNNN is the last five digits of the epoch-millisecond timestamp.
func FormatNumber(now time.Time) string {
	return fmt.Sprintf("Q-%s-%05d", now.Format("20060102"), now.UnixMilli()%100000)
}

// Numberer hands out one quote number per customer session.
type Numberer struct {
	mu      sync.Mutex
	current string
}

// Current returns the session's quote number, creating it on first use.
func (n *Numberer) Current(now time.Time) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == "" {
		n.current = FormatNumber(now)
	}
	return n.current
}

// Reset discards the number so the next customer gets a fresh one.
func (n *Numberer) Reset() {
	n.mu.Lock()
	n.current = ""
	n.mu.Unlock()
}
