package ratelimit

import "sync"

// SenderLimiter throttles chat messages per sender so one noisy contact
// cannot monopolize the assistant. Each sender gets an independent
// token bucket.
type SenderLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*Bucket
	burst     float64
	perMinute float64
}

// NewSenderLimiter allows perMinute messages per sender with bursts of
// up to burst messages. perMinute <= 0 disables limiting.
func NewSenderLimiter(perMinute, burst int) *SenderLimiter {
	if burst < 1 {
		burst = 1
	}
	return &SenderLimiter{
		buckets:   make(map[string]*Bucket),
		burst:     float64(burst),
		perMinute: float64(perMinute),
	}
}

// Allow reports whether sender may send another message now.
func (l *SenderLimiter) Allow(sender string) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	bucket, ok := l.buckets[sender]
	if !ok {
		bucket = NewBucket(l.burst, l.perMinute/60.0)
		l.buckets[sender] = bucket
	}
	l.mu.Unlock()

	return bucket.TryConsume(1)
}
