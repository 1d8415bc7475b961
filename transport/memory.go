// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sync"
)

// Compile-time interface checks.
var (
	_ Transport    = (*MemoryTransport)(nil)
	_ Registration = (*memoryRegistration)(nil)
	_ Channel      = (*memoryChannel)(nil)
)

// channelBuffer is the per-direction payload buffer. Sends block once
// the receiver falls this far behind, mirroring a real channel's
// backpressure.
const channelBuffer = 64

// offerBuffer is how many undispatched inbound channels a registration
// holds before connecting peers block.
const offerBuffer = 4

// MemoryTransport is a complete in-process Transport. Registrations
// share a registry map; channels are paired in-memory queues. Two
// nodes sharing the same MemoryTransport can connect without any
// network, which is how tests and loopback demo mode run.
type MemoryTransport struct {
	mu            sync.Mutex
	registrations map[string]*memoryRegistration
}

// NewMemoryTransport creates an empty in-process transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		registrations: make(map[string]*memoryRegistration),
	}
}

// Register claims identity in the shared registry. A duplicate claim
// fails with ErrIdentityTaken — the registry is the collision
// authority.
func (t *MemoryTransport) Register(_ context.Context, identity string) (Registration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, taken := t.registrations[identity]; taken {
		return nil, ErrIdentityTaken
	}
	registration := &memoryRegistration{
		transport: t,
		identity:  identity,
		offers:    make(chan Channel, offerBuffer),
		done:      make(chan struct{}),
	}
	t.registrations[identity] = registration
	return registration, nil
}

// lookup returns the live registration for identity.
func (t *MemoryTransport) lookup(identity string) (*memoryRegistration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	registration, ok := t.registrations[identity]
	return registration, ok
}

// release removes a closed registration from the registry, freeing the
// identity for a new claim.
func (t *MemoryTransport) release(registration *memoryRegistration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.registrations[registration.identity] == registration {
		delete(t.registrations, registration.identity)
	}
}

type memoryRegistration struct {
	transport *MemoryTransport
	identity  string
	offers    chan Channel
	done      chan struct{}
	closeOnce sync.Once
}

func (r *memoryRegistration) Identity() string { return r.identity }

func (r *memoryRegistration) Offers() <-chan Channel { return r.offers }

func (r *memoryRegistration) Done() <-chan struct{} { return r.done }

// Connect pairs two in-memory channel halves and delivers the far half
// to the target's offer queue.
func (r *memoryRegistration) Connect(ctx context.Context, target string) (Channel, error) {
	select {
	case <-r.done:
		return nil, ErrRegistrationClosed
	default:
	}

	remote, ok := r.transport.lookup(target)
	if !ok {
		return nil, ErrUnknownIdentity
	}

	local, far := newMemoryChannelPair(r.identity, target)

	select {
	case remote.offers <- far:
		return local, nil
	case <-remote.done:
		local.Close()
		return nil, ErrUnknownIdentity
	case <-r.done:
		local.Close()
		return nil, ErrRegistrationClosed
	case <-ctx.Done():
		local.Close()
		return nil, ctx.Err()
	}
}

func (r *memoryRegistration) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.transport.release(r)
	})
	return nil
}

// pairState is shared by both halves of a channel pair: either side's
// Close terminates both.
type pairState struct {
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func (p *pairState) terminate(err error) {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	})
}

func (p *pairState) fault() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

type memoryChannel struct {
	remote   string
	incoming chan []byte
	peer     *memoryChannel
	pair     *pairState
}

// newMemoryChannelPair builds the two halves of a channel between the
// dialer (identity a) and the target (identity b). The first return is
// the dialer's half.
func newMemoryChannelPair(a, b string) (*memoryChannel, *memoryChannel) {
	pair := &pairState{done: make(chan struct{})}
	dialer := &memoryChannel{
		remote:   b,
		incoming: make(chan []byte, channelBuffer),
		pair:     pair,
	}
	target := &memoryChannel{
		remote:   a,
		incoming: make(chan []byte, channelBuffer),
		pair:     pair,
	}
	dialer.peer = target
	target.peer = dialer
	return dialer, target
}

func (c *memoryChannel) RemoteIdentity() string { return c.remote }

func (c *memoryChannel) Receive() <-chan []byte { return c.incoming }

func (c *memoryChannel) Done() <-chan struct{} { return c.pair.done }

func (c *memoryChannel) Err() error { return c.pair.fault() }

func (c *memoryChannel) Send(payload []byte) error {
	// Copy so the caller can reuse its buffer after Send returns.
	data := make([]byte, len(payload))
	copy(data, payload)

	select {
	case c.peer.incoming <- data:
		return nil
	case <-c.pair.done:
		return ErrChannelClosed
	}
}

func (c *memoryChannel) Close() error {
	c.pair.terminate(nil)
	return nil
}
