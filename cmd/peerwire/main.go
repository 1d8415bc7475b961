// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// peerwire is a direct peer-to-peer chat client. Two users claim short
// identities at a shared rendezvous, open a WebRTC data channel between
// themselves, and exchange messages with no server in the middle.
//
// Two modes of operation:
//
// Rendezvous mode (default): signaling.url in the config file points at
// an HTTP rendezvous used only to claim identities and exchange session
// descriptions. All chat traffic flows peer to peer.
//
// Loopback mode (--loopback, or an empty signaling.url): an in-process
// transport for trying the client without any network. Both identities
// must live in the same process, so this is only useful for demos and
// tests.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/pflag"

	"github.com/peerwire-chat/peerwire/client"
	"github.com/peerwire-chat/peerwire/lib/config"
	"github.com/peerwire-chat/peerwire/lib/identity"
	"github.com/peerwire-chat/peerwire/lib/version"
	"github.com/peerwire-chat/peerwire/transport"
	"github.com/peerwire-chat/peerwire/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var identityFlag string
	var connectFlag string
	var loopback bool
	var logOutput string

	flagSet := pflag.NewFlagSet("peerwire", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $PEERWIRE_CONFIG)")
	flagSet.StringVar(&identityFlag, "identity", "", "identity to claim (default: persisted or generated)")
	flagSet.StringVar(&connectFlag, "connect", "", "peer identity to dial once registered")
	flagSet.BoolVar(&loopback, "loopback", false, "use the in-process transport instead of a rendezvous")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (in addition to the diagnostics pane)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("peerwire %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store := identity.NewStore(cfg.IdentityFile())
	id, err := resolveIdentity(store, identityFlag)
	if err != nil {
		return err
	}

	var logger *slog.Logger
	if logOutput != "" {
		file, err := os.Create(logOutput)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", logOutput, err)
		}
		defer file.Close()
		logger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	tr, err := buildTransport(cfg, loopback, logger)
	if err != nil {
		return err
	}

	c := client.New(client.Options{
		Transport:      tr,
		Logger:         logger,
		TypingDebounce: cfg.TypingDebounce,
		DownloadDir:    cfg.DownloadDir,
		AutoConnect:    connectFlag,
	})
	defer c.Close()

	if err := c.SetIdentity(id); err != nil {
		return err
	}
	if err := c.PowerOn(); err != nil {
		return err
	}

	return tui.Run(c, tui.DetectTheme())
}

// resolveIdentity picks the identity to claim: the --identity flag if
// given (and persists it for next time), else the saved identity, else
// a freshly generated one.
func resolveIdentity(store *identity.Store, flagValue string) (string, error) {
	if flagValue != "" {
		if err := store.Save(flagValue); err != nil {
			return "", err
		}
		return flagValue, nil
	}

	saved, err := store.Load()
	if err != nil {
		return "", err
	}
	if saved != "" {
		return saved, nil
	}

	generated := identity.Generate()
	if err := store.Save(generated); err != nil {
		return "", err
	}
	return generated, nil
}

// buildTransport selects the transport from the config: an HTTP
// rendezvous plus WebRTC when signaling.url is set, the in-process
// loopback otherwise.
func buildTransport(cfg config.Config, loopback bool, logger *slog.Logger) (transport.Transport, error) {
	if loopback || cfg.Signaling.URL == "" {
		return transport.NewMemoryTransport(), nil
	}

	servers := make([]webrtc.ICEServer, 0, len(cfg.ICE.Servers))
	for _, s := range cfg.ICE.Servers {
		server := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
		}
		servers = append(servers, server)
	}

	signaler := transport.NewHTTPSignaler(cfg.Signaling.URL, nil)
	iceConfig := transport.ICEConfig{Servers: servers}
	return transport.NewWebRTCTransport(signaler, iceConfig, cfg.Signaling.PollInterval, logger), nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Peerwire — direct peer-to-peer chat in the terminal.

On startup the client claims your identity at the configured
rendezvous and waits. Use /connect <identity> in the UI (or --connect)
to dial a peer; once linked, messages and files travel over a direct
WebRTC data channel.

Configuration is read from --config, or the file named by
$PEERWIRE_CONFIG, or built-in defaults.

Usage:
  peerwire [flags]

Examples:
  # Claim the persisted (or a generated) identity and wait
  peerwire

  # Claim a specific identity and dial a peer immediately
  peerwire --identity ALICE1 --connect BOB442

  # Record background logs for post-mortem debugging
  peerwire --log-output /tmp/peerwire.jsonl

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
