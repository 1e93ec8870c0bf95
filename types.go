package goGuard

import (
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal"
	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/clientip"
	"github.com/MrEthical07/goGuard/internal/rate"
)

// User is the authenticated principal attached to a request context by the
// authentication middleware.
type User struct {
	ID   string
	Role string
}

// Requester is the identity both guards scope their records to.
//
// An authenticated requester is identified by its user id. An anonymous one is
// identified by a digest of its address and user agent, so authenticating
// invalidates tokens issued before login.
type Requester struct {
	UserID    string
	IP        string
	UserAgent string
}

// Authenticated reports whether the requester carries a user id.
func (r Requester) Authenticated() bool {
	return r.UserID != ""
}

// Identifier returns the key used to bind CSRF tokens to this requester.
func (r Requester) Identifier() string {
	if r.UserID != "" {
		return internal.UserIdentifier(r.UserID)
	}
	return internal.FingerprintIdentifier(r.IP, r.UserAgent)
}

// RateLimitIdentifier returns "user_<id>" when authenticated and the client
// address otherwise. An IP field that is not an address maps to "unknown" so
// it can never collide with a user window.
func (r Requester) RateLimitIdentifier() string {
	if r.UserID != "" {
		return internal.UserIdentifier(r.UserID)
	}
	if ip := clientip.Parse(r.IP); ip != "" {
		return ip
	}
	return clientip.Unknown
}

// CSRFToken is an issued anti-forgery token.
type CSRFToken struct {
	Value     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// Limit is a request budget per fixed window.
type Limit = rate.Limit

// RateLimitDecision describes an admitted request.
type RateLimitDecision = rate.Decision

// RateLimitStatus is a read-only view of an identifier's window.
type RateLimitStatus = rate.Status

// Policy names a Limit and how its identifier is chosen.
type Policy struct {
	Name    string
	Limit   Limit
	PerUser bool
}

// FailurePolicy decides what a check does when the cache backend fails.
type FailurePolicy int

const (
	// FailClosed rejects the request with ErrBackendUnavailable.
	FailClosed FailurePolicy = iota
	// FailOpen admits the request and records the fault.
	FailOpen
)

func (p FailurePolicy) String() string {
	switch p {
	case FailClosed:
		return "fail_closed"
	case FailOpen:
		return "fail_open"
	default:
		return "unknown"
	}
}

// AuditEvent is the audit record emitted for admission decisions.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per audit event.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs audit events through zap.
type ZapSink = internalaudit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
