package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/worker"
)

// ProviderListing renders the Markdown reply for a booking. providers must be non-empty.
func ProviderListing(category string, providers []catalog.Provider) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 *Müsait Görevliler – %s*\n\n", EscapeMarkdown(category))
	for i, p := range providers {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s – %s (%s ⭐)", i+1, EscapeMarkdown(p.FullName), EscapeMarkdown(p.Location), formatRating(p.Rating))
	}
	return sb.String()
}

// WorkerListing renders the Markdown reply for the worker list command. An empty
// category means the list is unfiltered.
func WorkerListing(category string, records []worker.Record) string {
	var sb strings.Builder
	sb.WriteString("📋 *İşçi Listesi")
	if category != "" {
		sb.WriteString(" - ")
		sb.WriteString(EscapeMarkdown(category))
	}
	sb.WriteString("*\n\n")
	for i, r := range records {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s - %s (%s ⭐)", i+1, EscapeMarkdown(r.FullName), EscapeMarkdown(r.Location), formatRating(r.Rating))
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown makes user text literal inside a Telegram Markdown message.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}
