package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
	"github.com/jaki95/soundcloud-audio-bot/internal/downloader"
	"github.com/jaki95/soundcloud-audio-bot/internal/history"
)

const helpText = `🎵 <b>SoundCloud audio bot</b>

Send me what you want to hear and I will find it on SoundCloud.

<b>Commands</b>
• <code>/search query</code> or <code>find query</code> - find and download a track
• <code>/list query</code> - browse results and pick a track
• <code>/random</code> or <code>random</code> - a random track
• <code>/charts</code> - popular tracks
• <code>/history</code> - your recent downloads
• <code>/help</code> - this message`

const (
	usageText       = "❌ Tell me what to look for, e.g. <code>/search daft punk</code>"
	listUsageText   = "❌ Tell me what to look for, e.g. <code>/list daft punk</code>"
	rateLimitedText = "⏳ Too many requests. Please wait a minute and try again."
	notAllowedText  = "⛔ This command is for admins only."
	noHistoryText   = "You have not downloaded anything yet."

	chartsLoadingText     = "📊 <b>Loading popular tracks...</b>"
	chartsUnavailableText = "❌ Charts are unavailable right now. Please try again later."
	listExpiredText       = "This list has expired, please search again."
	trackMissingText      = "That track is no longer in the list."
	unknownActionText     = "Unknown action."
	pickedText            = "Downloading..."
)

func esc(s string) string {
	return html.EscapeString(s)
}

func searchingText(query string) string {
	return fmt.Sprintf("🔍 <b>Searching:</b> <code>%s</code>\n⏳ This usually takes 10-20 seconds...", esc(query))
}

func randomSearchingText(query string) string {
	return fmt.Sprintf("🎲 <b>Looking for a random track</b>\n📝 Query: <code>%s</code>", esc(query))
}

func notFoundText(query string) string {
	return fmt.Sprintf("❌ <b>Nothing found for:</b> <code>%s</code>\n💡 Try a different query.", esc(query))
}

func listHeader(query string) string {
	return fmt.Sprintf("🔍 <b>Results for</b> <code>%s</code>", esc(query))
}

func chartsHeader() string {
	return "📊 <b>Top charts</b>"
}

func listText(header string, page, pages, total int) string {
	return fmt.Sprintf("%s\n📄 Page %d of %d\n🎵 %d tracks\n\nTap a track to download it.", header, page+1, pages, total)
}

// trackButton is plain text; buttons are not parsed as HTML
func trackButton(index int, track domain.Track) string {
	return fmt.Sprintf("🎵 %d. %s • %s • %s", index+1,
		domain.Truncate(track.Title, 30), domain.Truncate(artistOrUnknown(track.Artist), 18), track.FormatDuration())
}

func trackLines(track domain.Track) string {
	return fmt.Sprintf("🎵 <b>%s</b>\n🎤 %s\n⏱️ %s",
		esc(track.Title), esc(artistOrUnknown(track.Artist)), track.FormatDuration())
}

func foundText(track domain.Track) string {
	return "✅ <b>Found</b>\n" + trackLines(track)
}

func downloadingText(track domain.Track) string {
	return "⏬ <b>Downloading...</b>\n" + trackLines(track)
}

func sendingText(track domain.Track) string {
	return "📤 <b>Sending...</b>\n" + trackLines(track)
}

func caption(track domain.Track, size int64, requestedBy string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n💾 %.1f MB", trackLines(track), domain.SizeMB(size))
	if requestedBy != "" {
		fmt.Fprintf(&b, "\n👤 Requested by %s", esc(requestedBy))
	}
	return b.String()
}

func outcomeText(track domain.Track, outcome domain.Outcome, ceilingBytes int64) string {
	title := esc(track.Title)

	switch outcome.Kind {
	case domain.OutcomeDelivered:
		return fmt.Sprintf("✅ <b>Sent:</b> %s (%.1f MB)", title, domain.SizeMB(outcome.SizeBytes))
	case domain.OutcomeRejectedTooLarge:
		return fmt.Sprintf("📦 <b>Too large:</b> %s\nThe file is %.1f MB, the limit is %.0f MB.",
			title, domain.SizeMB(outcome.SizeBytes), domain.SizeMB(ceilingBytes))
	}

	switch outcome.Reason {
	case domain.ReasonTimeout:
		return fmt.Sprintf("⌛ <b>Download took too long:</b> %s\n💡 Please try again.", title)
	case domain.ReasonDelivery:
		return fmt.Sprintf("❌ <b>Could not send:</b> %s\n💡 Please try again.", title)
	case domain.ReasonCancelled:
		return fmt.Sprintf("🛑 <b>Download cancelled:</b> %s", title)
	default:
		return fmt.Sprintf("❌ <b>Could not download:</b> %s\n💡 Try another track.", title)
	}
}

func historyText(entries []history.Entry) string {
	if len(entries) == 0 {
		return noHistoryText
	}

	var b strings.Builder
	b.WriteString("📜 <b>Your recent downloads</b>\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, esc(e.Track.DisplayName()), e.Track.FormatDuration())
	}
	return b.String()
}

func statsText(st history.Stats, live *downloader.Stats) string {
	var b strings.Builder
	b.WriteString("📊 <b>Statistics</b>\n")
	fmt.Fprintf(&b, "\nAttempts: %d\nDelivered: %d\nToo large: %d\nFailed: %d\nUsers: %d\nVolume: %.1f MB",
		st.Total, st.Delivered, st.Rejected, st.Failed, st.UniqueUsers, domain.SizeMB(st.DeliveredBytes))

	if len(st.TopArtists) > 0 {
		b.WriteString("\n\n<b>Top artists</b>")
		for i, a := range st.TopArtists {
			fmt.Fprintf(&b, "\n%d. %s (%d)", i+1, esc(a.Artist), a.Count)
		}
	}

	if live != nil {
		fmt.Fprintf(&b, "\n\n<b>Now</b>\nRunning: %d/%d\nQueued: %d", live.Running, live.Capacity, live.Queued)
	}
	return b.String()
}

func artistOrUnknown(artist string) string {
	if artist == "" {
		return "Unknown artist"
	}
	return artist
}
