package youtube

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		pageURL string
		want    string
	}{
		{
			name: "short link in success dialog",
			html: `<a href="https://youtu.be/dQw4w9WgXcQ">https://youtu.be/dQw4w9WgXcQ</a>`,
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short link with query params",
			html: `<a href="https://youtu.be/dQw4w9WgXcQ?feature=share">link</a>`,
			want: "dQw4w9WgXcQ",
		},
		{
			name: "video link variant",
			html: `<a href="https://studio.youtube.com/video/abc123XYZ_-/edit">link</a>`,
			want: "abc123XYZ_-",
		},
		{
			name:    "fallback to page URL",
			html:    `<div>processing</div>`,
			pageURL: "https://studio.youtube.com/video/abc123XYZ_-/edit",
			want:    "abc123XYZ_-",
		},
		{
			name:    "nothing found",
			html:    `<div></div>`,
			pageURL: "https://studio.youtube.com/channel/UC123/videos",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractVideoID(tt.html, tt.pageURL)
			if got != tt.want {
				t.Errorf("extractVideoID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultURL(t *testing.T) {
	r := Result{VideoID: "XYZ"}
	if got := r.URL(); got != "https://youtu.be/XYZ" {
		t.Errorf("URL() = %q", got)
	}
}

func TestOnGoogleLogin(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://accounts.google.com/v3/signin/identifier?continue=x", true},
		{"https://studio.youtube.com/channel/UC123", false},
	}
	for _, tt := range tests {
		if got := onGoogleLogin(tt.url); got != tt.want {
			t.Errorf("onGoogleLogin(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"public", "Public"},
		{"UNLISTED", "Unlisted"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.want {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
