package discord

import (
	"fmt"
	"strconv"
	"strings"
)

const cdnBase = "https://cdn.discordapp.com"

// resourceURL builds a CDN path for any hashed guild/user asset.
// Animated hashes carry an "a_" prefix and get the gif extension.
func resourceURL(kind, ownerID, hash string, size int) string {
	ext := "png"
	if strings.HasPrefix(hash, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("%s/%s/%s/%s.%s?size=%d", cdnBase, kind, ownerID, hash, ext, size)
}

// AvatarURL returns the user's avatar, or one of the five default
// embed avatars picked by snowflake mod 5 when none is set.
func AvatarURL(u User) string {
	if u.Avatar == "" {
		id, _ := strconv.ParseUint(u.ID, 10, 64)
		return fmt.Sprintf("%s/embed/avatars/%d.png", cdnBase, id%5)
	}
	return resourceURL("avatars", u.ID, u.Avatar, 128)
}

// BannerURL returns "" when the user has no banner.
func BannerURL(u User) string {
	if u.Banner == "" {
		return ""
	}
	return resourceURL("banners", u.ID, u.Banner, 480)
}

// IconURL returns "" when the guild has no icon.
func IconURL(g Guild) string {
	if g.Icon == "" {
		return ""
	}
	return resourceURL("icons", g.ID, g.Icon, 128)
}
