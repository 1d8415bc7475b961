// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/peerwire-chat/peerwire/transport"
)

// State is the connection state machine position.
type State int

const (
	// StateOffline means no identity is registered. The initial state,
	// and the result of power-off from anywhere.
	StateOffline State = iota

	// StateInitializing means identity registration is in flight.
	StateInitializing

	// StateReady means the identity is registered and no channel is
	// active.
	StateReady

	// StateConnecting means an outbound dial is in flight.
	StateConnecting

	// StateConnected means exactly one channel is open.
	StateConnected

	// StateError means registration failed. Terminal until PowerOn is
	// retried or the identity is changed.
	StateError
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "offline"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Errors returned synchronously by session operations.
var (
	// ErrNoIdentity means PowerOn was called before SetIdentity.
	ErrNoIdentity = errors.New("session: no identity chosen")

	// ErrNotOffline means PowerOn was called while already powered.
	ErrNotOffline = errors.New("session: already powered on")

	// ErrNotReady means Connect was called outside StateReady.
	ErrNotReady = errors.New("session: not ready to connect")

	// ErrSelfConnect means the dial target is the node's own identity.
	ErrSelfConnect = errors.New("session: cannot connect to self")

	// ErrNoActiveLink means the operation requires an open channel.
	ErrNoActiveLink = errors.New("session: no active link")
)

// Session is the connection lifecycle state machine. All methods are
// safe for concurrent use; transitions are serialized under one mutex
// and reported in order on Events.
type Session struct {
	transport transport.Transport
	logger    *slog.Logger
	queue     *eventQueue

	mu           sync.Mutex
	state        State
	identity     string
	registration transport.Registration
	channel      transport.Channel
	peer         string

	// generation invalidates callbacks from superseded registrations;
	// linkSeq invalidates callbacks from superseded channels. Both only
	// ever increase.
	generation uint64
	linkSeq    uint64

	// genCtx is cancelled on teardown, aborting in-flight register and
	// dial calls of the current generation.
	genCtx context.Context
	cancel context.CancelFunc
}

// New creates a session in StateOffline. Call Close when done to stop
// event delivery.
func New(t transport.Transport, logger *slog.Logger) *Session {
	return &Session{
		transport: t,
		logger:    logger,
		queue:     newEventQueue(),
		state:     StateOffline,
	}
}

// Events delivers session events in transition order. Closed by Close.
func (s *Session) Events() <-chan Event {
	return s.queue.out
}

// State returns the current state machine position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the chosen identity, registered or not.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Peer returns the linked peer's identity, or "" when not connected.
func (s *Session) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// SetIdentity chooses the node's identity. While powered on this is a
// full re-registration cycle: the active channel and registration are
// torn down and a new registration begins with the new identity.
func (s *Session) SetIdentity(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = identity
	if s.state == StateOffline {
		return
	}
	s.teardownLocked()
	s.beginRegistrationLocked()
}

// PowerOn boots the session: registers the chosen identity and moves
// to StateReady on success or StateError on failure. Valid from
// StateOffline and, as an explicit retry, from StateError.
func (s *Session) PowerOn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOffline && s.state != StateError {
		return ErrNotOffline
	}
	if s.identity == "" {
		return ErrNoIdentity
	}
	s.beginRegistrationLocked()
	return nil
}

// PowerOff tears down the registration and any active channel from any
// state and returns to StateOffline.
func (s *Session) PowerOff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.setStateLocked(StateOffline)
}

// Close powers off and stops event delivery. The Events channel is
// closed after already-queued events drain.
func (s *Session) Close() {
	s.PowerOff()
	s.queue.close()
}

// Connect dials target. Valid only from StateReady; dialing the node's
// own identity is rejected without a transition. The dial runs in the
// background: success surfaces as PeerLinked, failure as ConnectFailed
// with a return to StateReady.
func (s *Session) Connect(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return ErrNotReady
	}
	if target == s.identity {
		return ErrSelfConnect
	}

	s.linkSeq++
	seq := s.linkSeq
	generation := s.generation
	registration := s.registration
	ctx := s.genCtx
	s.setStateLocked(StateConnecting)

	go s.dial(ctx, generation, seq, registration, target)
	return nil
}

// Disconnect closes the active channel (or abandons an in-flight dial)
// and returns to StateReady.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnected:
		channel := s.channel
		peer := s.peer
		s.channel = nil
		s.peer = ""
		s.linkSeq++
		s.setStateLocked(StateReady)
		s.queue.push(PeerUnlinked{Peer: peer})
		channel.Close()
		return nil
	case StateConnecting:
		s.linkSeq++
		s.setStateLocked(StateReady)
		return nil
	default:
		return ErrNoActiveLink
	}
}

// Send transmits one payload on the active channel.
func (s *Session) Send(payload []byte) error {
	s.mu.Lock()
	if s.state != StateConnected || s.channel == nil {
		s.mu.Unlock()
		return ErrNoActiveLink
	}
	channel := s.channel
	s.mu.Unlock()

	return channel.Send(payload)
}

// setStateLocked transitions the state machine and queues the event.
func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.logger.Info("session state change", "from", s.state, "to", state)
	s.state = state
	s.queue.push(StateChanged{State: state})
}

// teardownLocked invalidates the current generation and releases the
// channel and registration. Superseded callbacks see a stale
// generation and discard themselves.
func (s *Session) teardownLocked() {
	s.generation++
	s.linkSeq++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	s.peer = ""
	if s.registration != nil {
		// Synchronous: the claim must be released before any
		// re-registration begins, or the node collides with itself.
		s.registration.Close()
		s.registration = nil
	}
}

// beginRegistrationLocked starts a registration attempt for the
// current identity under a fresh generation.
func (s *Session) beginRegistrationLocked() {
	s.generation++
	generation := s.generation
	identity := s.identity

	ctx, cancel := context.WithCancel(context.Background())
	s.genCtx = ctx
	s.cancel = cancel

	s.setStateLocked(StateInitializing)
	go s.register(ctx, generation, identity)
}

func (s *Session) register(ctx context.Context, generation uint64, identity string) {
	registration, err := s.transport.Register(ctx, identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		// Superseded by power-off or identity change.
		if err == nil {
			go registration.Close()
		}
		return
	}

	if err != nil {
		collision := errors.Is(err, transport.ErrIdentityTaken)
		s.logger.Error("registration failed",
			"identity", identity,
			"collision", collision,
			"error", err,
		)
		s.setStateLocked(StateError)
		s.queue.push(RegistrationFailed{
			Identity:  identity,
			Collision: collision,
			Err:       err,
		})
		return
	}

	s.registration = registration
	s.setStateLocked(StateReady)
	go s.offerLoop(generation, registration)
}

// offerLoop accepts or rejects channels opened by remote peers for the
// life of one registration generation.
func (s *Session) offerLoop(generation uint64, registration transport.Registration) {
	for {
		select {
		case channel := <-registration.Offers():
			s.handleOffer(generation, channel)
		case <-registration.Done():
			s.mu.Lock()
			if generation == s.generation {
				// The registration died underneath us rather than
				// through our own teardown.
				s.setStateLocked(StateError)
				s.queue.push(RegistrationFailed{
					Identity: s.identity,
					Err:      transport.ErrRegistrationClosed,
				})
			}
			s.mu.Unlock()
			return
		}
	}
}

// handleOffer applies the first-offer-wins rule: an inbound channel is
// accepted only from StateReady with no channel active; otherwise it
// is closed immediately and the existing link is untouched.
func (s *Session) handleOffer(generation uint64, channel transport.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		go channel.Close()
		return
	}
	if s.state != StateReady || s.channel != nil {
		peer := channel.RemoteIdentity()
		s.logger.Warn("inbound offer rejected, link already active", "peer", peer)
		s.queue.push(OfferRejected{Peer: peer})
		go channel.Close()
		return
	}

	s.linkSeq++
	s.attachLocked(generation, s.linkSeq, channel)
}

func (s *Session) dial(ctx context.Context, generation, seq uint64, registration transport.Registration, target string) {
	channel, err := registration.Connect(ctx, target)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation || seq != s.linkSeq || s.state != StateConnecting {
		// Superseded by disconnect, power-off, or identity change.
		if err == nil {
			go channel.Close()
		}
		return
	}

	if err != nil {
		s.logger.Warn("outbound connect failed", "target", target, "error", err)
		s.setStateLocked(StateReady)
		s.queue.push(ConnectFailed{Target: target, Err: err})
		return
	}

	s.attachLocked(generation, seq, channel)
}

// attachLocked adopts an open channel as the active link.
func (s *Session) attachLocked(generation, seq uint64, channel transport.Channel) {
	s.channel = channel
	s.peer = channel.RemoteIdentity()
	s.setStateLocked(StateConnected)
	s.queue.push(PeerLinked{Peer: s.peer})
	go s.readLoop(generation, seq, channel)
}

// readLoop pumps inbound payloads for one channel and handles its
// termination.
func (s *Session) readLoop(generation, seq uint64, channel transport.Channel) {
	for {
		select {
		case payload := <-channel.Receive():
			s.mu.Lock()
			if generation == s.generation && seq == s.linkSeq {
				s.queue.push(InboundPayload{Peer: s.peer, Payload: payload})
			}
			s.mu.Unlock()

		case <-channel.Done():
			s.mu.Lock()
			if generation == s.generation && seq == s.linkSeq && s.channel == channel {
				err := channel.Err()
				peer := s.peer
				s.channel = nil
				s.peer = ""
				s.linkSeq++
				if err != nil {
					s.logger.Warn("channel fault", "peer", peer, "error", err)
				}
				s.setStateLocked(StateReady)
				s.queue.push(PeerUnlinked{Peer: peer, Err: err})
			}
			s.mu.Unlock()
			return
		}
	}
}
