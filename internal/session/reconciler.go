package session

import (
	"context"
	"log/slog"

	"golang.org/x/oauth2"

	"guild-dashboard/internal/discord"
)

// IdentityClient is the slice of the Discord OAuth client the
// reconciler depends on.
type IdentityClient interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, accessToken string) (discord.User, error)
	FetchGuilds(ctx context.Context, accessToken string) ([]discord.Guild, error)
}

// Presence reports whether the bot account is currently a member of a
// guild. Backed by the bot's live gateway state in production.
type Presence interface {
	HasGuild(guildID string) bool
}

// StaticPresence answers the same for every guild; used when no bot
// token is configured.
type StaticPresence bool

func (p StaticPresence) HasGuild(string) bool { return bool(p) }

// Reconciler runs one login attempt end to end: exchange the code,
// fetch profile and guild list, derive per-guild capability flags,
// and hand back the composed record. The token lives only on the
// stack for the duration of the call.
type Reconciler struct {
	idp      IdentityClient
	presence Presence
	logger   *slog.Logger
}

func NewReconciler(idp IdentityClient, presence Presence, logger *slog.Logger) *Reconciler {
	return &Reconciler{idp: idp, presence: presence, logger: logger}
}

// Login is strictly sequential: each step feeds the next, and any
// failure aborts with no partial record.
func (r *Reconciler) Login(ctx context.Context, code string) (Record, error) {
	tok, err := r.idp.Exchange(ctx, code)
	if err != nil {
		return Record{}, err
	}

	user, err := r.idp.FetchUser(ctx, tok.AccessToken)
	if err != nil {
		return Record{}, err
	}

	guilds, err := r.idp.FetchGuilds(ctx, tok.AccessToken)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		User: User{
			ID:         user.ID,
			Username:   user.Username,
			GlobalName: user.GlobalName,
			Avatar:     discord.AvatarURL(user),
			Banner:     discord.BannerURL(user),
		},
		Guilds: make([]GuildEntry, 0, len(guilds)),
	}

	for _, g := range guilds {
		rec.Guilds = append(rec.Guilds, GuildEntry{
			ID:         g.ID,
			Name:       g.Name,
			Icon:       discord.IconURL(g),
			CanInvite:  discord.CanInviteBot(g.Permissions),
			BotPresent: r.presence.HasGuild(g.ID),
		})
	}

	r.logger.Info("session_reconciled", "user_id", user.ID, "guilds", len(rec.Guilds))
	return rec, nil
}
