// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/peerwire-chat/peerwire/diag"
)

// Theme defines the color palette for the chat UI. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Sender name colors.
	LocalSender  lipgloss.Color
	RemoteSender lipgloss.Color
	SystemText   lipgloss.Color

	// Message body.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Delivery status glyphs.
	StatusSending   lipgloss.Color
	StatusDelivered lipgloss.Color

	// Connection state colors for the status bar.
	StateConnected lipgloss.Color
	StateReady     lipgloss.Color
	StateError     lipgloss.Color

	// Diagnostic severities.
	DiagInfo    lipgloss.Color
	DiagSuccess lipgloss.Color
	DiagWarning lipgloss.Color
	DiagError   lipgloss.Color

	// UI chrome.
	BorderColor   lipgloss.Color
	StatusBarText lipgloss.Color
	HelpText      lipgloss.Color
}

// SeverityColor returns the color for a diagnostic severity.
func (theme Theme) SeverityColor(severity diag.Severity) lipgloss.Color {
	switch severity {
	case diag.SeveritySuccess:
		return theme.DiagSuccess
	case diag.SeverityWarning:
		return theme.DiagWarning
	case diag.SeverityError:
		return theme.DiagError
	default:
		return theme.DiagInfo
	}
}

// DarkTheme is the palette for dark-background terminals, the common
// case.
var DarkTheme = Theme{
	LocalSender:  lipgloss.Color("75"),  // blue
	RemoteSender: lipgloss.Color("114"), // green
	SystemText:   lipgloss.Color("245"), // gray

	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("240"),

	StatusSending:   lipgloss.Color("220"), // amber
	StatusDelivered: lipgloss.Color("114"), // green

	StateConnected: lipgloss.Color("114"),
	StateReady:     lipgloss.Color("220"),
	StateError:     lipgloss.Color("196"),

	DiagInfo:    lipgloss.Color("245"),
	DiagSuccess: lipgloss.Color("114"),
	DiagWarning: lipgloss.Color("220"),
	DiagError:   lipgloss.Color("196"),

	BorderColor:   lipgloss.Color("240"),
	StatusBarText: lipgloss.Color("255"),
	HelpText:      lipgloss.Color("241"),
}

// LightTheme is the palette for light-background terminals.
var LightTheme = Theme{
	LocalSender:  lipgloss.Color("26"),  // blue
	RemoteSender: lipgloss.Color("28"),  // green
	SystemText:   lipgloss.Color("243"), // gray

	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("248"),

	StatusSending:   lipgloss.Color("130"),
	StatusDelivered: lipgloss.Color("28"),

	StateConnected: lipgloss.Color("28"),
	StateReady:     lipgloss.Color("130"),
	StateError:     lipgloss.Color("124"),

	DiagInfo:    lipgloss.Color("243"),
	DiagSuccess: lipgloss.Color("28"),
	DiagWarning: lipgloss.Color("130"),
	DiagError:   lipgloss.Color("124"),

	BorderColor:   lipgloss.Color("248"),
	StatusBarText: lipgloss.Color("232"),
	HelpText:      lipgloss.Color("246"),
}

// DetectTheme picks the palette matching the terminal background.
func DetectTheme() Theme {
	if termenv.HasDarkBackground() {
		return DarkTheme
	}
	return LightTheme
}
