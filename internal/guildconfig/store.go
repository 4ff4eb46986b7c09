package guildconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"guild-dashboard/internal/db"
)

// Store persists per-guild bot configuration in Postgres. Command and
// module toggles are written with single-key jsonb merges, so two
// dashboard sessions editing different keys of the same guild cannot
// drop each other's writes.
type Store struct {
	db *db.DB
}

func NewStore(dbConn *db.DB) *Store {
	return &Store{db: dbConn}
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS guild_configs (
			guild_id   TEXT PRIMARY KEY,
			prefix     TEXT NOT NULL DEFAULT '+',
			commands   JSONB NOT NULL DEFAULT '{}'::jsonb,
			modules    JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("guild_configs schema: %w", err)
	}
	return nil
}

// Get returns the guild's config, lazily defaulted for guilds that
// were never configured.
func (s *Store) Get(ctx context.Context, guildID string) (Config, error) {
	var cfg Config
	err := s.db.Pool.QueryRow(ctx,
		`SELECT prefix, commands, modules FROM guild_configs WHERE guild_id = $1`,
		guildID,
	).Scan(&cfg.Prefix, &cfg.Commands, &cfg.Modules)

	if errors.Is(err, pgx.ErrNoRows) {
		cfg = Config{}
	} else if err != nil {
		return Config{}, err
	}

	cfg.normalize()
	return cfg, nil
}

// SetPrefix upserts the prefix and returns the stored value.
func (s *Store) SetPrefix(ctx context.Context, guildID, prefix string) (string, error) {
	prefix = NormalizePrefix(prefix)

	var stored string
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO guild_configs (guild_id, prefix) VALUES ($1, $2)
		 ON CONFLICT (guild_id) DO UPDATE SET prefix = EXCLUDED.prefix, updated_at = now()
		 RETURNING prefix`,
		guildID, prefix,
	).Scan(&stored)
	if err != nil {
		return "", err
	}
	return stored, nil
}

// SetCommand upserts one command toggle.
func (s *Store) SetCommand(ctx context.Context, guildID, fullName string, enabled bool) error {
	return s.mergeToggle(ctx, "commands", guildID, fullName, enabled)
}

// SetModule upserts one module toggle.
func (s *Store) SetModule(ctx context.Context, guildID, module string, enabled bool) error {
	return s.mergeToggle(ctx, "modules", guildID, module, enabled)
}

func (s *Store) mergeToggle(ctx context.Context, column, guildID, key string, enabled bool) error {
	toggle, err := json.Marshal(Toggle{Enabled: enabled})
	if err != nil {
		return err
	}

	// column is one of two fixed identifiers, never user input
	query := fmt.Sprintf(
		`INSERT INTO guild_configs (guild_id, %s) VALUES ($1, jsonb_build_object($2::text, $3::jsonb))
		 ON CONFLICT (guild_id) DO UPDATE
		 SET %s = guild_configs.%s || jsonb_build_object($2::text, $3::jsonb), updated_at = now()`,
		column, column, column,
	)

	_, err = s.db.Pool.Exec(ctx, query, guildID, key, string(toggle))
	return err
}
