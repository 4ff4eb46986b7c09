package guildconfig

const (
	// DefaultPrefix is what a guild gets before anyone configures one,
	// and what an empty prefix submission coerces to.
	DefaultPrefix = "+"

	MaxPrefixLen = 5
)

type Toggle struct {
	Enabled bool `json:"enabled"`
}

// Config is one guild's bot configuration. Commands and Modules are
// keyed by full command name ("moderation.ban") and module name.
type Config struct {
	Prefix   string            `json:"prefix"`
	Commands map[string]Toggle `json:"commands"`
	Modules  map[string]Toggle `json:"modules"`
}

func (c *Config) normalize() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Commands == nil {
		c.Commands = map[string]Toggle{}
	}
	if c.Modules == nil {
		c.Modules = map[string]Toggle{}
	}
}

// NormalizePrefix coerces an empty prefix to the default and caps the
// stored length at MaxPrefixLen runes.
func NormalizePrefix(p string) string {
	if p == "" {
		return DefaultPrefix
	}
	runes := []rune(p)
	if len(runes) > MaxPrefixLen {
		runes = runes[:MaxPrefixLen]
	}
	return string(runes)
}
