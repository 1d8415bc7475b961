// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/peerwire-chat/peerwire/lib/testutil"
)

// TestWebRTCConnectAndExchange establishes a real loopback link between
// two WebRTCTransports sharing an in-process MemorySignaler and
// verifies ordered bidirectional payload exchange.
func TestWebRTCConnectAndExchange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping WebRTC loopback test in short mode")
	}

	signaler := NewMemorySignaler()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Empty ICE config means host candidates only (loopback). The tight
	// poll interval keeps signaling fast against the in-process
	// signaler.
	alphaTransport := NewWebRTCTransport(signaler, ICEConfig{}, 50*time.Millisecond, logger)
	betaTransport := NewWebRTCTransport(signaler, ICEConfig{}, 50*time.Millisecond, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	alpha, err := alphaTransport.Register(ctx, "alpha")
	if err != nil {
		t.Fatalf("Register alpha error: %v", err)
	}
	defer alpha.Close()

	beta, err := betaTransport.Register(ctx, "beta")
	if err != nil {
		t.Fatalf("Register beta error: %v", err)
	}
	defer beta.Close()

	outbound, err := alpha.Connect(ctx, "beta")
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer outbound.Close()

	inbound := testutil.RequireReceive(t, beta.Offers(), 30*time.Second, "inbound channel")
	defer inbound.Close()

	if outbound.RemoteIdentity() != "beta" {
		t.Errorf("outbound RemoteIdentity = %q, want beta", outbound.RemoteIdentity())
	}
	if inbound.RemoteIdentity() != "alpha" {
		t.Errorf("inbound RemoteIdentity = %q, want alpha", inbound.RemoteIdentity())
	}

	for _, payload := range []string{"one", "two", "three"} {
		if err := outbound.Send([]byte(payload)); err != nil {
			t.Fatalf("Send(%q) error: %v", payload, err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		got := testutil.RequireReceive(t, inbound.Receive(), 10*time.Second, "payload %q", want)
		if string(got) != want {
			t.Errorf("received %q, want %q", got, want)
		}
	}

	if err := inbound.Send([]byte("back")); err != nil {
		t.Fatalf("reverse Send error: %v", err)
	}
	got := testutil.RequireReceive(t, outbound.Receive(), 10*time.Second, "reverse payload")
	if string(got) != "back" {
		t.Errorf("received %q, want back", got)
	}

	// Closing one end terminates both.
	outbound.Close()
	testutil.RequireClosed(t, inbound.Done(), 10*time.Second, "peer Done after close")
	if err := outbound.Send([]byte("late")); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send after close = %v, want ErrChannelClosed", err)
	}
}

func TestWebRTCPollIntervalSelection(t *testing.T) {
	configured := NewWebRTCTransport(NewMemorySignaler(), ICEConfig{}, 100*time.Millisecond, nil)
	if got := configured.offerPollInterval(); got != 100*time.Millisecond {
		t.Errorf("offer poll interval = %v, want 100ms", got)
	}
	if got := configured.answerPollInterval(); got != 100*time.Millisecond {
		t.Errorf("answer poll interval = %v, want 100ms", got)
	}

	defaulted := NewWebRTCTransport(NewMemorySignaler(), ICEConfig{}, 0, nil)
	if got := defaulted.offerPollInterval(); got != defaultOfferPollInterval {
		t.Errorf("default offer poll interval = %v, want %v", got, defaultOfferPollInterval)
	}
	if got := defaulted.answerPollInterval(); got != defaultAnswerPollInterval {
		t.Errorf("default answer poll interval = %v, want %v", got, defaultAnswerPollInterval)
	}
}

func TestWebRTCRegisterCollision(t *testing.T) {
	signaler := NewMemorySignaler()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport := NewWebRTCTransport(signaler, ICEConfig{}, 0, logger)

	ctx := context.Background()
	first, err := transport.Register(ctx, "alpha")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if _, err := transport.Register(ctx, "alpha"); !errors.Is(err, ErrIdentityTaken) {
		t.Fatalf("duplicate Register = %v, want ErrIdentityTaken", err)
	}

	// Closing the registration releases the claim.
	first.Close()
	second, err := transport.Register(ctx, "alpha")
	if err != nil {
		t.Fatalf("Register after Close error: %v", err)
	}
	second.Close()
}
