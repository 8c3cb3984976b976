package xid

import (
	"math/rand/v2"
	"sync"
	"time"
)

var (
	mu   sync.Mutex
	last int64
)

// LocalID returns an id for a record created without the cloud mirror:
// the current Unix time in milliseconds plus a small jitter, strictly
// increasing within the process.
func LocalID() int64 {
	return localIDAt(time.Now())
}

func localIDAt(now time.Time) int64 {
	id := now.UnixMilli() + rand.Int64N(8)

	mu.Lock()
	defer mu.Unlock()
	if id <= last {
		id = last + 1
	}
	last = id
	return id
}
