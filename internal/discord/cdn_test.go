package discord

import (
	"strings"
	"testing"
)

func TestAvatarURL_DefaultAvatars(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"mod zero", "5", "https://cdn.discordapp.com/embed/avatars/0.png"},
		{"mod one", "1", "https://cdn.discordapp.com/embed/avatars/1.png"},
		{"mod four", "9", "https://cdn.discordapp.com/embed/avatars/4.png"},
		// snowflakes are larger than 53 bits; float math would pick the wrong index
		{"real snowflake", "846930886092972034", "https://cdn.discordapp.com/embed/avatars/4.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvatarURL(User{ID: tt.id})
			if got != tt.want {
				t.Errorf("AvatarURL(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestAvatarURL_Deterministic(t *testing.T) {
	u := User{ID: "123456789012345678"}
	first := AvatarURL(u)
	for i := 0; i < 5; i++ {
		if got := AvatarURL(u); got != first {
			t.Fatalf("AvatarURL not stable: %q vs %q", got, first)
		}
	}
}

func TestAvatarURL_ExtensionByHashPrefix(t *testing.T) {
	animated := AvatarURL(User{ID: "1", Avatar: "a_deadbeef"})
	if !strings.Contains(animated, "/avatars/1/a_deadbeef.gif") {
		t.Errorf("animated avatar should use gif, got %q", animated)
	}

	static := AvatarURL(User{ID: "1", Avatar: "deadbeef"})
	if !strings.Contains(static, "/avatars/1/deadbeef.png") {
		t.Errorf("static avatar should use png, got %q", static)
	}
}

func TestBannerURL(t *testing.T) {
	if got := BannerURL(User{ID: "1"}); got != "" {
		t.Errorf("missing banner should yield empty url, got %q", got)
	}

	got := BannerURL(User{ID: "1", Banner: "a_cafe"})
	if !strings.HasPrefix(got, "https://cdn.discordapp.com/banners/1/a_cafe.gif") {
		t.Errorf("unexpected banner url %q", got)
	}
	if !strings.Contains(got, "size=480") {
		t.Errorf("banner should request size 480, got %q", got)
	}
}

func TestIconURL(t *testing.T) {
	if got := IconURL(Guild{ID: "g1"}); got != "" {
		t.Errorf("missing icon should yield empty url, got %q", got)
	}

	got := IconURL(Guild{ID: "g1", Icon: "abc123"})
	if !strings.HasPrefix(got, "https://cdn.discordapp.com/icons/g1/abc123.png") {
		t.Errorf("unexpected icon url %q", got)
	}
}
