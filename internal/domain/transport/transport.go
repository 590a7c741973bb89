// Package transport defines how a user message is delivered and a reply received.
package transport

import (
	"context"
	"fmt"
	"strings"
)

// Kind names a transport variant.
type Kind string

const (
	KindLive    Kind = "live"
	KindRequest Kind = "request"
)

// SendOptions carries per-message delivery context.
type SendOptions struct {
	Language string
	// UseLocalFallback asks the server to answer from its simpler local dataset.
	UseLocalFallback bool
}

// Channel delivers one user message and returns the assistant reply.
type Channel interface {
	// Kind identifies the variant.
	Kind() Kind

	// Available reports whether the channel can be used right now. It is
	// re-evaluated for every message.
	Available() bool

	// SendAndAwaitReply sends text and blocks until the reply arrives, ctx is
	// done, or delivery fails with a transport or content error.
	SendAndAwaitReply(ctx context.Context, text string, opts SendOptions) (string, error)
}

// FallbackCapable is implemented by channels that accept the local fallback flag.
type FallbackCapable interface {
	Channel
	SupportsLocalFallback() bool
}

// Restarter is implemented by channels that can tell the server a new chat started.
type Restarter interface {
	Restart(ctx context.Context, language string) error
}

// ParsePreference parses a comma separated preference list such as "live,request".
func ParsePreference(raw string) ([]Kind, error) {
	var out []Kind
	seen := map[Kind]bool{}
	for _, part := range strings.Split(raw, ",") {
		k := Kind(strings.ToLower(strings.TrimSpace(part)))
		if k == "" {
			continue
		}
		if k != KindLive && k != KindRequest {
			return nil, fmt.Errorf("unknown transport %q", part)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("transport preference is empty")
	}
	return out, nil
}

// Order returns channels sorted by preference. Channels whose kind is not in
// the preference list are dropped.
func Order(channels []Channel, preference []Kind) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, k := range preference {
		for _, ch := range channels {
			if ch != nil && ch.Kind() == k {
				out = append(out, ch)
			}
		}
	}
	return out
}
