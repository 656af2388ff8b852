// Package ratelimit throttles booking confirmations. Every confirm fans out
// into real-money payment authorizations, so the limiter sits in front of
// the confirm endpoint with a short per-payer cooldown plus hourly caps per
// payer and per IP.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	ConfirmCooldown     time.Duration // minimum gap between confirms per payer
	ConfirmMaxPerHour   int
	ConfirmMaxIPPerHour int

	// Clock for testing; nil uses real time.
	Clock Clock
}

func DefaultConfig() *Config {
	return &Config{
		ConfirmCooldown:     5 * time.Second,
		ConfirmMaxPerHour:   30,
		ConfirmMaxIPPerHour: 60,
	}
}

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string
}

// bucket is one subject's rolling-hour window.
type bucket struct {
	count   int
	firstAt time.Time
	lastAt  time.Time
}

// Limiter tracks confirm attempts per payer and per IP. Subjects are
// stored under hashed keys so raw emails and addresses never sit in
// memory longer than the request.
type Limiter struct {
	config *Config
	clock  Clock

	mu      sync.RWMutex
	buckets map[string]*bucket

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		buckets:       make(map[string]*bucket),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// CheckConfirm reports whether a confirm attempt may proceed. It does not
// record the attempt; call RecordConfirm once the request passes
// validation.
func (l *Limiter) CheckConfirm(payer, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	if b := l.buckets[payerKey(payer)]; b != nil {
		if gap := now.Sub(b.lastAt); gap < l.config.ConfirmCooldown {
			return LimitResult{
				RetryAfter: l.config.ConfirmCooldown - gap,
				Reason:     "cooldown",
			}
		}
		if now.Sub(b.firstAt) < time.Hour && b.count >= l.config.ConfirmMaxPerHour {
			return LimitResult{
				RetryAfter: time.Hour - now.Sub(b.firstAt),
				Reason:     "hourly_limit",
			}
		}
	}

	if b := l.buckets[ipKey(ip)]; b != nil {
		if now.Sub(b.firstAt) < time.Hour && b.count >= l.config.ConfirmMaxIPPerHour {
			return LimitResult{
				RetryAfter: time.Hour - now.Sub(b.firstAt),
				Reason:     "ip_hourly_limit",
			}
		}
	}

	return LimitResult{Allowed: true}
}

// RecordConfirm counts an accepted confirm attempt against both subjects.
func (l *Limiter) RecordConfirm(payer, ip string) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(payerKey(payer), now)
	l.record(ipKey(ip), now)
}

func (l *Limiter) record(key string, now time.Time) {
	b := l.buckets[key]
	if b == nil || now.Sub(b.firstAt) >= time.Hour {
		l.buckets[key] = &bucket{count: 1, firstAt: now, lastAt: now}
		return
	}
	b.count++
	b.lastAt = now
}

func payerKey(payer string) string {
	// Lowercased so case variations cannot dodge the cooldown.
	return hashKey("confirm:payer:", strings.ToLower(strings.TrimSpace(payer)))
}

func ipKey(ip string) string {
	return hashKey("confirm:ip:", ip)
}

func hashKey(prefix, value string) string {
	sum := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(sum[:8])
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.dropStale()
				}
			}
		}()
	})
}

func (l *Limiter) dropStale() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastAt) > time.Hour {
			delete(l.buckets, key)
		}
	}
}

// GetClientIP extracts the client IP from a request. With trustProxy set
// it honors X-Forwarded-For (rightmost public hop) and X-Real-IP; without
// it those headers are ignored, since a client can forge them.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop := strings.TrimSpace(hops[i])
				if hop != "" && !isPrivateIP(hop) {
					return hop
				}
			}
			return strings.TrimSpace(hops[len(hops)-1])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		if candidate := r.RemoteAddr[:idx]; net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	return r.RemoteAddr
}

var privateNetworks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

func isPrivateIP(value string) bool {
	ip := net.ParseIP(value)
	if ip == nil {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SanitizePayer masks a payer identifier for logging.
func SanitizePayer(payer string) string {
	payer = strings.ToLower(strings.TrimSpace(payer))
	if at := strings.Index(payer, "@"); at >= 0 {
		local, domain := payer[:at], payer[at+1:]
		if len(local) > 2 {
			return local[:2] + "***@" + domain
		}
		return "***@" + domain
	}
	if len(payer) >= 4 {
		return "***" + payer[len(payer)-4:]
	}
	return "***"
}

// LogRateLimitExceeded logs a throttled confirm with the payer masked.
func LogRateLimitExceeded(payer, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("payer", SanitizePayer(payer)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Booking confirm rate limit exceeded")
}
