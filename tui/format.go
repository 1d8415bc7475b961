// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/peerwire-chat/peerwire/chat"
	"github.com/peerwire-chat/peerwire/diag"
)

// replyLineLimit caps the rendered reply preview width.
const replyLineLimit = 60

// statusGlyph renders the delivery state of a locally authored
// message.
func statusGlyph(status chat.Status) string {
	switch status {
	case chat.StatusSending:
		return "…"
	case chat.StatusSent:
		return "✓"
	case chat.StatusDelivered:
		return "✓✓"
	default:
		return ""
	}
}

// renderMessage formats one transcript line. ordinal is the 1-based
// position shown to the user for /reply, /edit, /delete, and /save.
func renderMessage(theme Theme, m chat.Message, ordinal int) string {
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(theme.NormalText)

	var b strings.Builder

	if m.Reply != nil {
		preview := ansi.Truncate(m.Reply.Preview, replyLineLimit, "…")
		b.WriteString(faint.Render(fmt.Sprintf("     ↳ %s", preview)))
		b.WriteString("\n")
	}

	prefix := faint.Render(fmt.Sprintf("%3d %s ", ordinal, m.CreatedAt.Format("15:04")))
	b.WriteString(prefix)

	switch m.Sender {
	case chat.SenderSystem:
		b.WriteString(lipgloss.NewStyle().Foreground(theme.SystemText).Render("— " + m.Content))
		return b.String()
	case chat.SenderLocal:
		b.WriteString(lipgloss.NewStyle().Foreground(theme.LocalSender).Render("you"))
	case chat.SenderRemote:
		b.WriteString(lipgloss.NewStyle().Foreground(theme.RemoteSender).Render(m.SenderIdentity))
	}
	b.WriteString(faint.Render(": "))

	if m.Deleted {
		b.WriteString(faint.Render("(deleted)"))
		return b.String()
	}

	content := m.Content
	if m.Kind == chat.KindFile {
		content = "📎 " + content
	}
	b.WriteString(normal.Render(content))

	if m.Edited {
		b.WriteString(faint.Render(" (edited)"))
	}
	if glyph := statusGlyph(m.Status); glyph != "" {
		color := theme.StatusSending
		if m.Status == chat.StatusDelivered {
			color = theme.StatusDelivered
		}
		b.WriteString(" " + lipgloss.NewStyle().Foreground(color).Render(glyph))
	}
	return b.String()
}

// renderTranscript formats the whole conversation.
func renderTranscript(theme Theme, messages []chat.Message) string {
	if len(messages) == 0 {
		return lipgloss.NewStyle().Foreground(theme.FaintText).
			Render("No messages yet. /connect <identity> to start a conversation.")
	}
	lines := make([]string, 0, len(messages))
	for i, m := range messages {
		lines = append(lines, renderMessage(theme, m, i+1))
	}
	return strings.Join(lines, "\n")
}

// renderDiagnostics formats the diagnostic feed, most recent last.
func renderDiagnostics(theme Theme, entries []diag.Entry) string {
	if len(entries) == 0 {
		return lipgloss.NewStyle().Foreground(theme.FaintText).Render("No diagnostics.")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		style := lipgloss.NewStyle().Foreground(theme.SeverityColor(e.Severity))
		lines = append(lines, fmt.Sprintf("%s %s",
			lipgloss.NewStyle().Foreground(theme.FaintText).Render(e.Timestamp.Format("15:04:05")),
			style.Render(e.Message),
		))
	}
	return strings.Join(lines, "\n")
}
