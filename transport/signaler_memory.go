// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Signaler = (*MemorySignaler)(nil)

const signalKeySeparator = "|"

// MemorySignaler is an in-process Signaler for tests and loopback demo
// mode. Claims and SDP exchange go through internal maps; two
// WebRTCTransport instances sharing a MemorySignaler can establish
// PeerConnections without any network signaling.
type MemorySignaler struct {
	mu       sync.Mutex
	claims   map[string]bool
	offers   map[string]SignalMessage // key: "from|target"
	answers  map[string]SignalMessage // key: "offerer|answerer"
	lastSeen map[string]time.Time     // per-consumer dedup state
}

// NewMemorySignaler creates an empty in-process signaler.
func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{
		claims:   make(map[string]bool),
		offers:   make(map[string]SignalMessage),
		answers:  make(map[string]SignalMessage),
		lastSeen: make(map[string]time.Time),
	}
}

func (s *MemorySignaler) Claim(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims[identity] {
		return ErrIdentityTaken
	}
	s.claims[identity] = true
	return nil
}

func (s *MemorySignaler) Release(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, identity)
	return nil
}

func (s *MemorySignaler) PublishOffer(_ context.Context, from, target, sdp string) error {
	s.publish(s.offers, from+signalKeySeparator+target, from, sdp)
	return nil
}

func (s *MemorySignaler) PublishAnswer(_ context.Context, offerer, from, sdp string) error {
	s.publish(s.answers, offerer+signalKeySeparator+from, from, sdp)
	return nil
}

func (s *MemorySignaler) publish(store map[string]SignalMessage, key, from, sdp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store[key] = SignalMessage{
		PeerIdentity: from,
		SDP:          sdp,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// PollOffers returns offers whose key's target half matches identity.
func (s *MemorySignaler) PollOffers(_ context.Context, identity string) ([]SignalMessage, error) {
	return s.poll("offers", s.offers, identity, func(key string) bool {
		_, target, ok := strings.Cut(key, signalKeySeparator)
		return ok && target == identity
	}), nil
}

// PollAnswers returns answers whose key's offerer half matches identity.
func (s *MemorySignaler) PollAnswers(_ context.Context, identity string) ([]SignalMessage, error) {
	return s.poll("answers", s.answers, identity, func(key string) bool {
		offerer, _, ok := strings.Cut(key, signalKeySeparator)
		return ok && offerer == identity
	}), nil
}

// poll returns matching messages not yet seen by this consumer,
// tracking per-consumer timestamps so a republished signal (newer
// timestamp) is delivered again.
func (s *MemorySignaler) poll(storeLabel string, store map[string]SignalMessage, identity string, match func(key string) bool) []SignalMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []SignalMessage
	for key, message := range store {
		if !match(key) {
			continue
		}
		timestamp, err := time.Parse(time.RFC3339Nano, message.Timestamp)
		if err != nil {
			continue
		}
		seenKey := storeLabel + ":" + identity + ":" + key
		if last, ok := s.lastSeen[seenKey]; ok && !timestamp.After(last) {
			continue
		}
		s.lastSeen[seenKey] = timestamp
		messages = append(messages, message)
	}
	return messages
}
