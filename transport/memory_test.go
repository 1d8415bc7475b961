// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peerwire-chat/peerwire/lib/testutil"
)

func TestMemoryRegisterCollision(t *testing.T) {
	mt := NewMemoryTransport()
	ctx := context.Background()

	first, err := mt.Register(ctx, "AAA111")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	defer first.Close()

	_, err = mt.Register(ctx, "AAA111")
	if !errors.Is(err, ErrIdentityTaken) {
		t.Fatalf("second Register error = %v, want ErrIdentityTaken", err)
	}

	// Releasing the claim frees the identity.
	first.Close()
	second, err := mt.Register(ctx, "AAA111")
	if err != nil {
		t.Fatalf("Register after Close error: %v", err)
	}
	second.Close()
}

func TestMemoryConnectUnknownIdentity(t *testing.T) {
	mt := NewMemoryTransport()
	reg, err := mt.Register(context.Background(), "AAA111")
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	_, err = reg.Connect(context.Background(), "NOBODY")
	if !errors.Is(err, ErrUnknownIdentity) {
		t.Fatalf("Connect error = %v, want ErrUnknownIdentity", err)
	}
}

func TestMemoryConnectDeliversOffer(t *testing.T) {
	mt := NewMemoryTransport()
	ctx := context.Background()

	alpha, _ := mt.Register(ctx, "alpha")
	defer alpha.Close()
	beta, _ := mt.Register(ctx, "beta")
	defer beta.Close()

	outbound, err := alpha.Connect(ctx, "beta")
	if err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer outbound.Close()

	inbound := testutil.RequireReceive(t, beta.Offers(), time.Second, "inbound offer")
	if inbound.RemoteIdentity() != "alpha" {
		t.Errorf("inbound RemoteIdentity = %q, want alpha", inbound.RemoteIdentity())
	}
	if outbound.RemoteIdentity() != "beta" {
		t.Errorf("outbound RemoteIdentity = %q, want beta", outbound.RemoteIdentity())
	}
}

func TestMemoryChannelSendReceiveOrdered(t *testing.T) {
	mt := NewMemoryTransport()
	ctx := context.Background()

	alpha, _ := mt.Register(ctx, "alpha")
	defer alpha.Close()
	beta, _ := mt.Register(ctx, "beta")
	defer beta.Close()

	outbound, err := alpha.Connect(ctx, "beta")
	if err != nil {
		t.Fatal(err)
	}
	inbound := testutil.RequireReceive(t, beta.Offers(), time.Second, "offer")

	for _, payload := range []string{"one", "two", "three"} {
		if err := outbound.Send([]byte(payload)); err != nil {
			t.Fatalf("Send(%q) error: %v", payload, err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		got := testutil.RequireReceive(t, inbound.Receive(), time.Second, "payload %q", want)
		if string(got) != want {
			t.Errorf("received %q, want %q", got, want)
		}
	}

	// And the reverse direction.
	if err := inbound.Send([]byte("back")); err != nil {
		t.Fatal(err)
	}
	got := testutil.RequireReceive(t, outbound.Receive(), time.Second, "reverse payload")
	if string(got) != "back" {
		t.Errorf("received %q, want back", got)
	}
}

func TestMemoryChannelCloseTerminatesBothEnds(t *testing.T) {
	mt := NewMemoryTransport()
	ctx := context.Background()

	alpha, _ := mt.Register(ctx, "alpha")
	defer alpha.Close()
	beta, _ := mt.Register(ctx, "beta")
	defer beta.Close()

	outbound, _ := alpha.Connect(ctx, "beta")
	inbound := testutil.RequireReceive(t, beta.Offers(), time.Second, "offer")

	outbound.Close()
	testutil.RequireClosed(t, inbound.Done(), time.Second, "peer Done after close")
	testutil.RequireClosed(t, outbound.Done(), time.Second, "local Done after close")

	if err := inbound.Send([]byte("late")); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send after close = %v, want ErrChannelClosed", err)
	}
	if err := inbound.Err(); err != nil {
		t.Errorf("Err = %v after clean close, want nil", err)
	}

	// Close is idempotent from either end.
	if err := inbound.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
}

func TestMemorySendCopiesPayload(t *testing.T) {
	mt := NewMemoryTransport()
	ctx := context.Background()

	alpha, _ := mt.Register(ctx, "alpha")
	defer alpha.Close()
	beta, _ := mt.Register(ctx, "beta")
	defer beta.Close()

	outbound, _ := alpha.Connect(ctx, "beta")
	inbound := testutil.RequireReceive(t, beta.Offers(), time.Second, "offer")

	payload := []byte("original")
	if err := outbound.Send(payload); err != nil {
		t.Fatal(err)
	}
	payload[0] = 'X'

	got := testutil.RequireReceive(t, inbound.Receive(), time.Second, "payload")
	if string(got) != "original" {
		t.Errorf("received %q, want original", got)
	}
}

func TestMemoryRegistrationClose(t *testing.T) {
	mt := NewMemoryTransport()
	ctx := context.Background()

	alpha, _ := mt.Register(ctx, "alpha")
	beta, _ := mt.Register(ctx, "beta")
	defer beta.Close()

	alpha.Close()
	testutil.RequireClosed(t, alpha.Done(), time.Second, "registration Done")

	if _, err := alpha.Connect(ctx, "beta"); !errors.Is(err, ErrRegistrationClosed) {
		t.Errorf("Connect on closed registration = %v, want ErrRegistrationClosed", err)
	}
	if _, err := beta.Connect(ctx, "alpha"); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("Connect to released identity = %v, want ErrUnknownIdentity", err)
	}
}
