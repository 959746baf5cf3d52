package media

import (
	"testing"

	"github.com/holmsten/stepwise/internal/models"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		ref  string
		want models.MediaType
	}{
		{"https://example.com/clip.mp4", models.MediaVideo},
		{"https://example.com/clip.webm", models.MediaVideo},
		{"https://example.com/clip.OGG", models.MediaVideo},
		{"clip.webm", models.MediaVideo},
		{"data:video/mp4;base64,AAAA", models.MediaVideo},
		{"blob:https://app.local/5228e2a8", models.MediaVideo},
		{"https://example.com/pic.png", models.MediaImage},
		{"pic.png", models.MediaImage},
		{"data:image/png;base64,AAAA", models.MediaImage},
		{"https://example.com/page", models.MediaImage},
		{"", models.MediaImage},
		{"garbage with spaces", models.MediaImage},
	}
	for _, tt := range tests {
		if got := Infer(tt.ref); got != tt.want {
			t.Errorf("Infer(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestValidRef(t *testing.T) {
	valid := []string{
		"",
		"http://example.com/a.png",
		"https://example.com/a.mp4",
		"data:image/png;base64,AAAA",
		"blob:https://app.local/xyz",
	}
	for _, ref := range valid {
		if !ValidRef(ref) {
			t.Errorf("ValidRef(%q) = false, want true", ref)
		}
	}
	invalid := []string{
		"ftp://example.com/a.png",
		"relative/path.png",
		"   ",
	}
	for _, ref := range invalid {
		if ValidRef(ref) {
			t.Errorf("ValidRef(%q) = true, want false", ref)
		}
	}
}
