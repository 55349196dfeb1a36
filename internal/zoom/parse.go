package zoom

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Recording is one listed meeting recording on the Zoom recordings page.
type Recording struct {
	Topic       string
	Date        string // as displayed by the site
	Duration    string
	DownloadURL string // detail-page href, may be relative
}

// dateLineRe detects a date-shaped line: "Mon DD, YYYY" or "MM/DD/YYYY".
var dateLineRe = regexp.MustCompile(
	`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},\s+\d{4}` +
		`|\d{1,2}/\d{1,2}/\d{4}`)

// durationRe detects an HH:MM:SS duration line.
var durationRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

// isDigits reports whether s is entirely ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// datePatterns builds the display variants Zoom uses for one calendar
// date, e.g. for 2026-02-03: "Feb 3, 2026", "Feb 03, 2026", "2/3/2026",
// "02/03/2026" and the ISO form.
func datePatterns(d time.Time) []string {
	return []string{
		fmt.Sprintf("%s %d, %d", d.Format("Jan"), d.Day(), d.Year()),
		d.Format("Jan 02, 2006"),
		fmt.Sprintf("%d/%d/%d", int(d.Month()), d.Day(), d.Year()),
		d.Format("01/02/2006"),
		d.Format("2006-01-02"),
	}
}

// isRecordingHref matches links to a recording detail or share page.
func isRecordingHref(href string) bool {
	return strings.Contains(href, "/recording/detail") ||
		strings.Contains(href, "/rec/share")
}

// parseRecordings extracts the recordings shown for the requested date
// from the recordings page HTML. It returns the matched entries plus the
// total number of recording links seen regardless of date, which lets the
// caller tell "nothing on that date" apart from "list not rendered".
func parseRecordings(pageHTML string, date time.Time) ([]Recording, int, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, 0, fmt.Errorf("parse recordings page: %w", err)
	}

	patterns := datePatterns(date)
	var recordings []Recording
	seen := map[string]bool{}
	totalLinks := 0

	for node := range doc.Descendants() {
		if node.Type != html.ElementNode || node.Data != "a" {
			continue
		}
		href := attr(node, "href")
		if !isRecordingHref(href) {
			continue
		}
		totalLinks++

		lines := textLines(node)
		// Zoom repeats each recording as a short sibling card holding only
		// the file count and duration; the full card has topic and date.
		if len(lines) <= 2 {
			continue
		}

		rec := classifyLines(lines)
		rec.DownloadURL = href

		if !matchesDate(rec.Date, patterns) {
			continue
		}
		key := rec.Topic + "|" + rec.Date
		if seen[key] {
			continue
		}
		seen[key] = true
		recordings = append(recordings, rec)
	}

	return recordings, totalLinks, nil
}

// classifyLines assigns topic, date and duration by content shape rather
// than by position, since the card layout moves around.
func classifyLines(lines []string) Recording {
	var rec Recording
	for _, line := range lines {
		switch {
		case rec.Date == "" && dateLineRe.MatchString(line):
			rec.Date = line
		case rec.Duration == "" && durationRe.MatchString(line):
			rec.Duration = line
		case rec.Topic == "" && !isDigits(line) && len(line) > 3:
			rec.Topic = line
		}
	}
	if rec.Topic == "" {
		rec.Topic = "Unknown"
	}
	return rec
}

func matchesDate(displayed string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(displayed, p) {
			return true
		}
	}
	return false
}

// textLines collects the trimmed text fragments under a node, dropping
// screen-reader hints.
func textLines(node *html.Node) []string {
	var lines []string
	for n := range node.Descendants() {
		if n.Type != html.TextNode {
			continue
		}
		text := strings.TrimSpace(n.Data)
		if text == "" || strings.HasPrefix(text, "Press Shift") {
			continue
		}
		lines = append(lines, text)
	}
	return lines
}

func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
