package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"guild-dashboard/internal/logging"
)

const (
	gatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

	// GUILDS intent: READY guild list plus GUILD_CREATE / GUILD_DELETE
	intentGuilds = 1 << 0
)

const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

type gatewayMessage struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	T  string          `json:"t,omitempty"`
	S  int64           `json:"s,omitempty"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type readyData struct {
	SessionID string `json:"session_id"`
	Guilds    []struct {
		ID string `json:"id"`
	} `json:"guilds"`
}

type guildEvent struct {
	ID string `json:"id"`
}

// Gateway keeps one long-lived bot connection to the Discord gateway
// and tracks which guilds the bot is currently a member of. The
// membership set reflects the gateway stream at call time, not a live
// upstream query.
type Gateway struct {
	token  string
	logger *slog.Logger

	mu        sync.RWMutex
	guilds    map[string]struct{}
	connected bool

	writeMu sync.Mutex
	conn    *websocket.Conn

	seq int64
}

func NewGateway(token string, logger *slog.Logger) *Gateway {
	return &Gateway{
		token:  token,
		logger: logger,
		guilds: make(map[string]struct{}),
	}
}

// HasGuild reports whether the bot is currently a member of guildID.
func (g *Gateway) HasGuild(guildID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.guilds[guildID]
	return ok
}

func (g *Gateway) Connected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected
}

func (g *Gateway) GuildCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.guilds)
}

// Run connects and re-connects until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := g.connectAndListen(ctx)

		g.mu.Lock()
		g.connected = false
		g.mu.Unlock()

		if ctx.Err() != nil {
			g.logger.Info("gateway_stopped")
			return
		}

		g.logger.Warn("gateway_disconnected", "error", err, "retry_in", backoff.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 60*time.Second {
			backoff *= 2
		}
	}
}

func (g *Gateway) connectAndListen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}

	conn, _, err := dialer.DialContext(ctx, gatewayURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	g.writeMu.Lock()
	g.conn = conn
	g.writeMu.Unlock()

	var hello gatewayMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("failed to read HELLO: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected HELLO opcode, got %d", hello.Op)
	}

	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err != nil {
		return fmt.Errorf("failed to parse HELLO data: %w", err)
	}
	interval := time.Duration(hd.HeartbeatInterval) * time.Millisecond

	identify := map[string]interface{}{
		"op": opIdentify,
		"d": map[string]interface{}{
			"token":   g.token,
			"intents": intentGuilds,
			"properties": map[string]interface{}{
				"os":      "linux",
				"browser": "guild-dashboard",
				"device":  "guild-dashboard",
			},
		},
	}
	if err := g.writeJSON(identify); err != nil {
		return fmt.Errorf("failed to send IDENTIFY: %w", err)
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go g.heartbeatLoop(heartbeatCtx, interval)

	g.logger.Info("gateway_identified", "token", logging.MaskToken(g.token))

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var msg gatewayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("gateway read: %w", err)
		}

		if msg.S > 0 {
			g.mu.Lock()
			g.seq = msg.S
			g.mu.Unlock()
		}

		switch msg.Op {
		case opDispatch:
			g.handleDispatch(msg)
		case opHeartbeat:
			// gateway asked for an immediate beat
			if err := g.sendHeartbeat(); err != nil {
				return err
			}
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway requested reconnect (op %d)", msg.Op)
		case opHeartbeatAck:
			// nothing to track; a missed ack ends in a read error anyway
		}
	}
}

func (g *Gateway) handleDispatch(msg gatewayMessage) {
	switch msg.T {
	case "READY":
		var rd readyData
		if err := json.Unmarshal(msg.D, &rd); err != nil {
			g.logger.Warn("ready_parse_failed", "error", err)
			return
		}

		guilds := make(map[string]struct{}, len(rd.Guilds))
		for _, gu := range rd.Guilds {
			guilds[gu.ID] = struct{}{}
		}

		g.mu.Lock()
		g.guilds = guilds
		g.connected = true
		g.mu.Unlock()

		g.logger.Info("gateway_ready", "session_id", rd.SessionID, "guilds", len(guilds))

	case "GUILD_CREATE":
		var ev guildEvent
		if err := json.Unmarshal(msg.D, &ev); err != nil || ev.ID == "" {
			return
		}
		g.mu.Lock()
		g.guilds[ev.ID] = struct{}{}
		g.mu.Unlock()
		g.logger.Debug("guild_joined", "guild_id", ev.ID)

	case "GUILD_DELETE":
		var ev guildEvent
		if err := json.Unmarshal(msg.D, &ev); err != nil || ev.ID == "" {
			return
		}
		g.mu.Lock()
		delete(g.guilds, ev.ID)
		g.mu.Unlock()
		g.logger.Debug("guild_left", "guild_id", ev.ID)
	}
}

func (g *Gateway) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.sendHeartbeat(); err != nil {
				g.logger.Warn("heartbeat_failed", "error", err)
				return
			}
		}
	}
}

func (g *Gateway) sendHeartbeat() error {
	g.mu.RLock()
	seq := g.seq
	g.mu.RUnlock()
	return g.writeJSON(map[string]interface{}{"op": opHeartbeat, "d": seq})
}

func (g *Gateway) writeJSON(v interface{}) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return g.conn.WriteJSON(v)
}
