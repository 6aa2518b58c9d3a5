package telegramtmpl

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/GoPolymarket/range-market/internal/market"
)

// CreatedData describes the data required to render a market-created message.
type CreatedData struct {
	Mode       string
	MarketID   string
	Title      string
	Category   string
	Unit       string
	Expiry     string
	Domain     string
	Tx         string
	TopBuckets []string
}

// FailedData describes the data required to render a registration failure.
type FailedData struct {
	Mode   string
	Title  string
	Reason string
}

// BuildCreatedData normalizes a created market into a renderable payload.
// Only the three heaviest seed buckets are listed.
func BuildCreatedData(mode string, m market.Market) CreatedData {
	seed := append(m.Seed[:0:0], m.Seed...)
	sort.SliceStable(seed, func(i, j int) bool { return seed[i].Weight > seed[j].Weight })
	if len(seed) > 3 {
		seed = seed[:3]
	}
	buckets := make([]string, 0, len(seed))
	for _, b := range seed {
		if b.Weight <= 0 {
			continue
		}
		buckets = append(buckets, fmt.Sprintf("[%g, %g] %.1f%%", b.Range.Lo, b.Range.Hi, b.Weight*100))
	}
	return CreatedData{
		Mode:       strings.ToUpper(strings.TrimSpace(mode)),
		MarketID:   m.ID,
		Title:      m.Title,
		Category:   m.Category,
		Unit:       m.Unit,
		Expiry:     m.Expiry.UTC().Format(time.RFC3339),
		Domain:     fmt.Sprintf("[%g, %g]", m.Domain.Min, m.Domain.Max),
		Tx:         m.Tx,
		TopBuckets: buckets,
	}
}

// BuildFailedData normalizes a registration failure into a renderable payload.
func BuildFailedData(mode, title, reason string) FailedData {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	return FailedData{
		Mode:   strings.ToUpper(strings.TrimSpace(mode)),
		Title:  strings.TrimSpace(title),
		Reason: reason,
	}
}

// RenderCreatedHTML renders a market-created message in Telegram HTML parse mode.
func RenderCreatedHTML(d CreatedData) string {
	var b strings.Builder
	b.WriteString("<b>Market Created</b>\n")
	if d.Mode != "" {
		b.WriteString(fmt.Sprintf("Mode: %s\n", d.Mode))
	}
	b.WriteString(fmt.Sprintf("Title: %s\n", html.EscapeString(d.Title)))
	b.WriteString(fmt.Sprintf("Category: %s\nUnit: %s\n", html.EscapeString(d.Category), html.EscapeString(d.Unit)))
	b.WriteString(fmt.Sprintf("Domain: %s\nExpiry: %s\n", d.Domain, d.Expiry))
	b.WriteString(fmt.Sprintf("ID: <code>%s</code>\n", html.EscapeString(d.MarketID)))
	if d.Tx != "" {
		b.WriteString(fmt.Sprintf("Tx: <code>%s</code>\n", html.EscapeString(d.Tx)))
	}
	if len(d.TopBuckets) > 0 {
		b.WriteString("\n<b>Seed Buckets</b>\n")
		for _, bucket := range d.TopBuckets {
			b.WriteString("- " + bucket + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// RenderFailedHTML renders a registration failure in Telegram HTML parse mode.
func RenderFailedHTML(d FailedData) string {
	var b strings.Builder
	b.WriteString("<b>Market Registration Failed</b>\n")
	if d.Mode != "" {
		b.WriteString(fmt.Sprintf("Mode: %s\n", d.Mode))
	}
	b.WriteString(fmt.Sprintf("Title: %s\nReason: %s", html.EscapeString(d.Title), html.EscapeString(d.Reason)))
	return strings.TrimSpace(b.String())
}
