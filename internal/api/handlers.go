package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"guild-dashboard/internal/discord"
	"guild-dashboard/internal/guildconfig"
	"guild-dashboard/internal/security"
	"guild-dashboard/internal/session"
)

func (s *Server) root(c *gin.Context) {
	if _, ok := currentSession(c); ok {
		c.Redirect(http.StatusFound, "/guilds")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (s *Server) login(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	state, err := s.sessions.NewState(ctx)
	if err != nil {
		s.log.Error("state_issue_failed", "error", err)
		c.String(http.StatusInternalServerError, "Discord authentication failed.")
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"BotName": s.cfg.BotName,
		"AuthURL": s.authURL.AuthorizeURL(state),
	})
}

func (s *Server) logout(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	if id, ok := c.Get(ctxSessionID); ok {
		if err := s.sessions.Delete(ctx, id.(string)); err != nil {
			s.log.Warn("session_delete_failed", "error", err)
		}
	}

	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}

// authCallback is the OAuth redirect target. A missing code sends the
// browser back to login; a bad state is treated the same way, since a
// forged or replayed callback deserves no detail. Upstream failures
// are logged with the provider's status and body but surface as a
// fixed 500.
func (s *Server) authCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	if !s.sessions.ConsumeState(ctx, c.Query("state")) {
		s.log.Warn("oauth_state_rejected", "client_ip", c.ClientIP())
		c.Redirect(http.StatusFound, "/login")
		return
	}

	rec, err := s.auth.Login(ctx, code)
	if err != nil {
		var ue *discord.UpstreamError
		if errors.As(err, &ue) {
			s.log.Error("discord_auth_failed", "status", ue.Status, "body", ue.Body)
		} else {
			s.log.Error("discord_auth_failed", "error", err)
		}
		c.String(http.StatusInternalServerError, "Discord authentication failed.")
		return
	}

	// wholesale replace: the old session, if any, is gone before the
	// new id is handed to the browser
	if old, ok := c.Get(ctxSessionID); ok {
		if err := s.sessions.Delete(ctx, old.(string)); err != nil {
			s.log.Warn("session_delete_failed", "error", err)
		}
	}

	id, err := s.sessions.Create(ctx, rec)
	if err != nil {
		s.log.Error("session_create_failed", "error", err)
		c.String(http.StatusInternalServerError, "Discord authentication failed.")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, id, int(s.cfg.SessionTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/guilds")
}

func (s *Server) guildList(c *gin.Context) {
	rec, _ := currentSession(c)
	c.HTML(http.StatusOK, "guilds.html", gin.H{
		"BotName": s.cfg.BotName,
		"Me":      rec.User,
		"Guilds":  rec.Guilds,
	})
}

func (s *Server) guildPage(c *gin.Context) {
	rec, _ := currentSession(c)
	guildID := c.Param("id")

	guild, ok := rec.Guild(guildID)
	if !ok || !guild.BotPresent {
		c.String(http.StatusForbidden, "Bot is not in this server.")
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		s.log.Error("guild_config_read_failed", "guild_id", guildID, "error", err)
		c.String(http.StatusInternalServerError, "Failed to load guild configuration.")
		return
	}

	c.HTML(http.StatusOK, "guild.html", gin.H{
		"BotName":    s.cfg.BotName,
		"Me":         rec.User,
		"Guild":      guild,
		"GuildID":    guildID,
		"Config":     cfg,
		"Categories": guildconfig.Categories(),
	})
}

func (s *Server) setPrefix(c *gin.Context) {
	guildID := c.Param("id")
	if _, err := security.ParseSnowflake(guildID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_guild_id", "message": "guild id must be a snowflake"}})
		return
	}

	// empty or missing prefix coerces to the default instead of failing
	var req struct {
		Prefix string `json:"prefix"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": "malformed body"}})
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	stored, err := s.configs.SetPrefix(ctx, guildID, req.Prefix)
	if err != nil {
		s.log.Error("prefix_write_failed", "guild_id", guildID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to save prefix"}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "prefix": stored})
}

func (s *Server) setCommand(c *gin.Context) {
	guildID := c.Param("id")
	if _, err := security.ParseSnowflake(guildID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_guild_id", "message": "guild id must be a snowflake"}})
		return
	}

	var req struct {
		FullName string `json:"fullName" binding:"required"`
		Enabled  bool   `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": "fullName is required"}})
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	if err := s.configs.SetCommand(ctx, guildID, req.FullName, req.Enabled); err != nil {
		s.log.Error("command_write_failed", "guild_id", guildID, "command", req.FullName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to save command state"}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) setModule(c *gin.Context) {
	guildID := c.Param("id")
	if _, err := security.ParseSnowflake(guildID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_guild_id", "message": "guild id must be a snowflake"}})
		return
	}

	var req struct {
		Module  string `json:"module" binding:"required"`
		Enabled bool   `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": "module is required"}})
		return
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	if err := s.configs.SetModule(ctx, guildID, req.Module, req.Enabled); err != nil {
		s.log.Error("module_write_failed", "guild_id", guildID, "module", req.Module, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "db_error", "message": "failed to save module state"}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := s.ctx(c)
	defer cancel()

	dbStatus := "connected"
	if s.db == nil || s.db.Pool.Ping(ctx) != nil {
		dbStatus = "disconnected"
	}

	redisStatus := "connected"
	if s.redis == nil || s.redis.RDB().Ping(ctx).Err() != nil {
		redisStatus = "disconnected"
	}

	gatewayStatus := "disabled"
	var guilds int
	if s.gateway != nil {
		gatewayStatus = "disconnected"
		if s.gateway.Connected() {
			gatewayStatus = "connected"
		}
		guilds = s.gateway.GuildCount()
	}

	status := "healthy"
	if dbStatus != "connected" || redisStatus != "connected" {
		status = "unhealthy"
	}

	response := gin.H{
		"status":     status,
		"database":   dbStatus,
		"redis":      redisStatus,
		"gateway":    gatewayStatus,
		"bot_guilds": guilds,
	}

	if status == "unhealthy" {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
