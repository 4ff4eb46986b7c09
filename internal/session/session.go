package session

// User is the profile slice kept for the lifetime of a login. Avatar
// and Banner hold fully derived CDN URLs, not raw hashes.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
	Banner     string `json:"banner"`
}

type GuildEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	CanInvite  bool   `json:"canInvite"`
	BotPresent bool   `json:"botPresent"`
}

// Record is the composed session state. Guilds is recomputed
// wholesale on every login, never merged with a previous record.
type Record struct {
	User   User         `json:"user"`
	Guilds []GuildEntry `json:"guilds"`
}

func (r Record) Guild(id string) (GuildEntry, bool) {
	for _, g := range r.Guilds {
		if g.ID == id {
			return g, true
		}
	}
	return GuildEntry{}, false
}
