package guildconfig

// Category groups the toggleable commands the guild page renders.
// Command names are the full "<module>.<command>" form used as
// Config.Commands keys.
type Category struct {
	Module   string   `json:"module"`
	Label    string   `json:"label"`
	Commands []string `json:"commands"`
}

var categories = []Category{
	{
		Module: "moderation",
		Label:  "Moderation",
		Commands: []string{
			"moderation.ban",
			"moderation.kick",
			"moderation.mute",
			"moderation.warn",
			"moderation.purge",
		},
	},
	{
		Module: "utility",
		Label:  "Utility",
		Commands: []string{
			"utility.userinfo",
			"utility.serverinfo",
			"utility.avatar",
		},
	},
	{
		Module: "fun",
		Label:  "Fun",
		Commands: []string{
			"fun.8ball",
			"fun.roll",
			"fun.meme",
		},
	},
	{
		Module: "levels",
		Label:  "Levels",
		Commands: []string{
			"levels.rank",
			"levels.leaderboard",
		},
	},
}

func Categories() []Category {
	return categories
}
