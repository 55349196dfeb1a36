package youtube

import "regexp"

// The success dialog links the published video as youtu.be/<id>; older
// Studio builds use youtube.com/video/<id>, and while the dialog is still
// rendering the ID is often already in the page URL.
var (
	shortLinkRe = regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`)
	videoLinkRe = regexp.MustCompile(`youtube\.com/video/([A-Za-z0-9_-]{6,})`)
	videoURLRe  = regexp.MustCompile(`/video/([A-Za-z0-9_-]{6,})`)
)

// extractVideoID pulls the published video ID out of the success page
// HTML, falling back to the page URL. Returns "" when neither holds one.
func extractVideoID(pageHTML, pageURL string) string {
	if m := shortLinkRe.FindStringSubmatch(pageHTML); m != nil {
		return m[1]
	}
	if m := videoLinkRe.FindStringSubmatch(pageHTML); m != nil {
		return m[1]
	}
	if m := videoURLRe.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}
