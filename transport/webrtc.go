// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
)

// Compile-time interface checks.
var (
	_ Transport    = (*WebRTCTransport)(nil)
	_ Registration = (*webrtcRegistration)(nil)
	_ Channel      = (*webrtcChannel)(nil)
)

// defaultOfferPollInterval is how often a registration polls the
// signaler for inbound offers when no interval is configured.
const defaultOfferPollInterval = 2 * time.Second

// iceGatherTimeout is the maximum time to wait for ICE candidate
// gathering to complete before publishing the SDP.
const iceGatherTimeout = 15 * time.Second

// defaultAnswerPollInterval is how often the dialer polls for an SDP
// answer after publishing an offer, when no interval is configured.
const defaultAnswerPollInterval = 500 * time.Millisecond

// answerTimeout is the maximum time to wait for an SDP answer before
// the dial fails.
const answerTimeout = 30 * time.Second

// channelOpenTimeout is the maximum time to wait for the data channel
// to open after the SDP exchange completes.
const channelOpenTimeout = 30 * time.Second

// chatChannelLabel is the data channel each link runs on. One link, one
// ordered reliable channel.
const chatChannelLabel = "chat"

// releaseTimeout bounds the signaler call made while closing a
// registration.
const releaseTimeout = 5 * time.Second

// ICEConfig holds the ICE servers used for new PeerConnections.
type ICEConfig struct {
	Servers []webrtc.ICEServer
}

// WebRTCTransport connects peers over WebRTC data channels. Signaling
// goes through the Signaler interface (an HTTP rendezvous in
// production, in-process maps in tests). Connection establishment uses
// vanilla ICE: all candidates are gathered before the SDP is
// published, so signaling requires exactly one round-trip per link.
type WebRTCTransport struct {
	signaler     Signaler
	iceConfig    ICEConfig
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewWebRTCTransport creates a WebRTC transport using the given
// signaler for identity claims and SDP exchange. pollInterval sets how
// often the signaler is polled for inbound offers and answers; zero
// selects the defaults (2s for offers, 500ms for answers).
func NewWebRTCTransport(signaler Signaler, iceConfig ICEConfig, pollInterval time.Duration, logger *slog.Logger) *WebRTCTransport {
	if logger == nil {
		// Unattributed writes to stderr would corrupt the caller's
		// terminal UI.
		logger = slog.New(slog.DiscardHandler)
	}
	return &WebRTCTransport{
		signaler:     signaler,
		iceConfig:    iceConfig,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (t *WebRTCTransport) offerPollInterval() time.Duration {
	if t.pollInterval > 0 {
		return t.pollInterval
	}
	return defaultOfferPollInterval
}

func (t *WebRTCTransport) answerPollInterval() time.Duration {
	if t.pollInterval > 0 {
		return t.pollInterval
	}
	return defaultAnswerPollInterval
}

// Register claims identity with the signaler and starts polling for
// inbound offers. The signaler is the collision authority: a claim
// held by another node fails with ErrIdentityTaken.
func (t *WebRTCTransport) Register(ctx context.Context, identity string) (Registration, error) {
	if err := t.signaler.Claim(ctx, identity); err != nil {
		return nil, err
	}
	registration := &webrtcRegistration{
		transport: t,
		identity:  identity,
		offers:    make(chan Channel, offerBuffer),
		done:      make(chan struct{}),
	}
	go registration.pollOffers()
	return registration, nil
}

// newPeerConnection creates a pion PeerConnection with the transport's
// ICE config. Loopback candidates are enabled so two nodes on the same
// machine (and tests) can connect without any external interface.
func (t *WebRTCTransport) newPeerConnection() (*webrtc.PeerConnection, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: t.iceConfig.Servers,
	})
}

type webrtcRegistration struct {
	transport *WebRTCTransport
	identity  string
	offers    chan Channel
	done      chan struct{}
	closeOnce sync.Once
}

func (r *webrtcRegistration) Identity() string { return r.identity }

func (r *webrtcRegistration) Offers() <-chan Channel { return r.offers }

func (r *webrtcRegistration) Done() <-chan struct{} { return r.done }

func (r *webrtcRegistration) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := r.transport.signaler.Release(ctx, r.identity); err != nil {
			r.transport.logger.Warn("releasing identity claim failed",
				"identity", r.identity,
				"error", err,
			)
		}
	})
	return nil
}

// Connect dials target: publish a complete SDP offer, poll for the
// answer, then wait for the chat data channel to open.
func (r *webrtcRegistration) Connect(ctx context.Context, target string) (Channel, error) {
	select {
	case <-r.done:
		return nil, ErrRegistrationClosed
	default:
	}

	pc, err := r.transport.newPeerConnection()
	if err != nil {
		return nil, fmt.Errorf("transport: creating PeerConnection: %w", err)
	}

	ordered := true
	dc, err := pc.CreateDataChannel(chatChannelLabel, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("transport: creating data channel: %w", err)
	}

	channel := newWebRTCChannel(pc, dc, target)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("transport: creating SDP offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		channel.Close()
		return nil, fmt.Errorf("transport: setting local description: %w", err)
	}

	// Vanilla ICE: wait for gathering before publishing.
	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		channel.Close()
		return nil, fmt.Errorf("transport: ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		channel.Close()
		return nil, ctx.Err()
	}

	completeSDP := pc.LocalDescription().SDP
	if err := r.transport.signaler.PublishOffer(ctx, r.identity, target, completeSDP); err != nil {
		channel.Close()
		return nil, fmt.Errorf("transport: publishing SDP offer: %w", err)
	}
	r.transport.logger.Info("offer published", "peer", target)

	answerSDP, err := r.waitForAnswer(ctx, target)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("transport: waiting for SDP answer from %s: %w", target, err)
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}); err != nil {
		channel.Close()
		return nil, fmt.Errorf("transport: setting remote description: %w", err)
	}

	select {
	case <-channel.opened:
	case <-channel.done:
		err := channel.Err()
		if err == nil {
			err = ErrChannelClosed
		}
		return nil, fmt.Errorf("transport: channel closed before opening: %w", err)
	case <-time.After(channelOpenTimeout):
		channel.Close()
		return nil, fmt.Errorf("transport: data channel did not open within %s", channelOpenTimeout)
	case <-ctx.Done():
		channel.Close()
		return nil, ctx.Err()
	}

	r.transport.logger.Info("outbound link established", "peer", target)
	return channel, nil
}

// waitForAnswer polls the signaler until target answers the published
// offer.
func (r *webrtcRegistration) waitForAnswer(ctx context.Context, target string) (string, error) {
	deadline := time.After(answerTimeout)
	ticker := time.NewTicker(r.transport.answerPollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return "", fmt.Errorf("timed out after %s", answerTimeout)
		case <-ctx.Done():
			return "", ctx.Err()
		case <-r.done:
			return "", ErrRegistrationClosed
		case <-ticker.C:
			answers, err := r.transport.signaler.PollAnswers(ctx, r.identity)
			if err != nil {
				r.transport.logger.Warn("polling for SDP answer failed", "error", err)
				continue
			}
			for _, answer := range answers {
				if answer.PeerIdentity == target {
					return answer.SDP, nil
				}
			}
		}
	}
}

// pollOffers runs for the life of the registration and answers inbound
// offers.
func (r *webrtcRegistration) pollOffers() {
	ticker := time.NewTicker(r.transport.offerPollInterval())
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.done
		cancel()
	}()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			offers, err := r.transport.signaler.PollOffers(ctx, r.identity)
			if err != nil {
				select {
				case <-r.done:
					return
				default:
				}
				r.transport.logger.Warn("polling for SDP offers failed", "error", err)
				continue
			}
			for _, offer := range offers {
				if err := r.answerOffer(ctx, offer); err != nil {
					r.transport.logger.Error("answering offer failed",
						"peer", offer.PeerIdentity,
						"error", err,
					)
				}
			}
		}
	}
}

// answerOffer builds a PeerConnection in response to an inbound offer
// and delivers the resulting channel once its data channel opens.
func (r *webrtcRegistration) answerOffer(ctx context.Context, offer SignalMessage) error {
	pc, err := r.transport.newPeerConnection()
	if err != nil {
		return fmt.Errorf("creating PeerConnection: %w", err)
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != chatChannelLabel {
			dc.Close()
			return
		}
		channel := newWebRTCChannel(pc, dc, offer.PeerIdentity)
		go func() {
			select {
			case <-channel.opened:
			case <-channel.done:
				return
			case <-r.done:
				channel.Close()
				return
			}
			select {
			case r.offers <- channel:
			case <-r.done:
				channel.Close()
			}
		}()
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.SDP,
	}); err != nil {
		pc.Close()
		return fmt.Errorf("setting remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return fmt.Errorf("setting local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		pc.Close()
		return fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}

	completeSDP := pc.LocalDescription().SDP
	if err := r.transport.signaler.PublishAnswer(ctx, offer.PeerIdentity, r.identity, completeSDP); err != nil {
		pc.Close()
		return fmt.Errorf("publishing SDP answer: %w", err)
	}

	r.transport.logger.Info("inbound offer answered", "peer", offer.PeerIdentity)
	return nil
}

// webrtcChannel adapts a pion data channel to the Channel interface.
// Messages stay message-oriented: one dc.Send per payload, one
// OnMessage per delivery, ordered and reliable.
type webrtcChannel struct {
	remote string
	pc     *webrtc.PeerConnection
	dc     *webrtc.DataChannel

	opened   chan struct{}
	incoming chan []byte

	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newWebRTCChannel(pc *webrtc.PeerConnection, dc *webrtc.DataChannel, remote string) *webrtcChannel {
	c := &webrtcChannel{
		remote:   remote,
		pc:       pc,
		dc:       dc,
		opened:   make(chan struct{}),
		incoming: make(chan []byte, channelBuffer),
		done:     make(chan struct{}),
	}

	dc.OnOpen(func() {
		close(c.opened)
	})
	dc.OnMessage(func(message webrtc.DataChannelMessage) {
		// pion reuses its buffer after the callback returns.
		payload := make([]byte, len(message.Data))
		copy(payload, message.Data)
		select {
		case c.incoming <- payload:
		case <-c.done:
		}
	})
	dc.OnClose(func() {
		c.terminate(nil)
	})
	dc.OnError(func(err error) {
		c.terminate(fmt.Errorf("transport: data channel error: %w", err))
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed:
			c.terminate(fmt.Errorf("transport: peer connection failed"))
		case webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			c.terminate(nil)
		}
	})

	return c
}

func (c *webrtcChannel) RemoteIdentity() string { return c.remote }

func (c *webrtcChannel) Receive() <-chan []byte { return c.incoming }

func (c *webrtcChannel) Done() <-chan struct{} { return c.done }

func (c *webrtcChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *webrtcChannel) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	if err := c.dc.Send(payload); err != nil {
		return fmt.Errorf("transport: sending payload: %w", err)
	}
	return nil
}

func (c *webrtcChannel) Close() error {
	c.terminate(nil)
	return nil
}

// terminate marks the channel done exactly once and tears down the
// underlying PeerConnection.
func (c *webrtcChannel) terminate(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
		c.dc.Close()
		c.pc.Close()
	})
}
