package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const apiBase = "https://discord.com/api/v10"

// Gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Gateway intents: guild messages plus message content.
const gatewayIntents = (1 << 9) | (1 << 15)

// REST error sentinels, mapped from HTTP status codes.
var (
	ErrNotFound   = errors.New("discord: not found")
	ErrForbidden  = errors.New("discord: forbidden")
	ErrBadRequest = errors.New("discord: bad request")
)

// User is a platform user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	URL string `json:"url"`
}

// Message is the wire form of a platform message.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	GuildID     string       `json:"guild_id,omitempty"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Author      *User        `json:"author,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Mentions    []User       `json:"mentions,omitempty"`
}

// Channel is the wire form of a channel.
type Channel struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Type    int    `json:"type"`
}

// PermissionOverwrite restricts a role or member in a channel.
type PermissionOverwrite struct {
	ID    string `json:"id"`
	Type  int    `json:"type"` // 0 = role, 1 = member
	Allow string `json:"allow,omitempty"`
	Deny  string `json:"deny,omitempty"`
}

// RawEvent is one dispatch frame off the gateway: the event name and its
// undecoded payload. Decoding into typed events happens upstream.
type RawEvent struct {
	Type string
	Data json.RawMessage
}

// EventHandler is the callback for gateway dispatch frames.
type EventHandler func(ev *RawEvent)

// Client is the Discord API client: REST calls plus the gateway event
// stream.
type Client struct {
	token   string
	http    *http.Client
	onEvent EventHandler

	ctx    context.Context
	cancel context.CancelFunc

	botUser *User

	seqMu sync.Mutex
	seq   int64
}

// NewClient creates a new Discord client.
func NewClient(token string) *Client {
	return &Client{
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// OnEvent sets the gateway event handler.
func (c *Client) OnEvent(handler EventHandler) {
	c.onEvent = handler
}

// BotUser returns the bot's own user, available after Start.
func (c *Client) BotUser() *User {
	return c.botUser
}

// Connect authenticates and fetches the bot's identity without starting the
// gateway. Start calls it implicitly.
func (c *Client) Connect(ctx context.Context) error {
	if c.botUser != nil {
		return nil
	}
	var me User
	if err := c.do(ctx, http.MethodGet, "/users/@me", nil, &me); err != nil {
		return fmt.Errorf("fetch bot user: %w", err)
	}
	c.botUser = &me
	fmt.Printf("[Discord] Logged in as %s (%s)\n", me.Username, me.ID)
	return nil
}

// Start connects to the gateway and blocks, dispatching events until Stop is
// called. Dropped connections are retried with backoff.
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	if err := c.Connect(c.ctx); err != nil {
		return err
	}

	backoff := time.Second
	for {
		if err := c.runGateway(); err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			fmt.Printf("[Discord] Gateway error: %v, reconnecting in %v\n", err, backoff)
		}
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 60*time.Second {
			backoff *= 2
		}
	}
}

// Stop disconnects from the gateway.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// gatewayPayload is one gateway frame.
type gatewayPayload struct {
	Op int             `json:"op"`
	S  int64           `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

// runGateway runs one gateway session: hello, identify, heartbeat, dispatch.
func (c *Client) runGateway() error {
	var gw struct {
		URL string `json:"url"`
	}
	if err := c.do(c.ctx, http.MethodGet, "/gateway", nil, &gw); err != nil {
		return fmt.Errorf("get gateway url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, gw.URL+"?v=10&encoding=json", nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	// Hello carries the heartbeat interval.
	var hello struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	payload, err := c.readFrame(conn)
	if err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if payload.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", payload.Op)
	}
	if err := json.Unmarshal(payload.D, &hello); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	identify := map[string]any{
		"token":   c.token,
		"intents": gatewayIntents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "starboard",
			"device":  "starboard",
		},
	}
	if err := c.writeFrame(conn, &gatewayPayload{Op: opIdentify, D: mustMarshal(identify)}); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	sessionCtx, stopSession := context.WithCancel(c.ctx)
	defer stopSession()
	go c.heartbeatLoop(sessionCtx, conn, time.Duration(hello.HeartbeatInterval)*time.Millisecond)

	fmt.Println("[Discord] Gateway connected")

	for {
		payload, err := c.readFrame(conn)
		if err != nil {
			return err
		}
		if payload == nil {
			continue // binary or malformed frame, ignored
		}

		switch payload.Op {
		case opDispatch:
			c.setSeq(payload.S)
			if c.onEvent != nil {
				c.onEvent(&RawEvent{Type: payload.T, Data: payload.D})
			}
		case opHeartbeat:
			_ = c.writeFrame(conn, &gatewayPayload{Op: opHeartbeat, S: c.getSeq()})
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway requested reconnect (op %d)", payload.Op)
		case opHeartbeatAck:
			// nothing to do
		}
	}
}

// readFrame reads one gateway frame. Binary and non-JSON frames yield nil.
func (c *Client) readFrame(conn *websocket.Conn) (*gatewayPayload, error) {
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if msgType != websocket.TextMessage {
		return nil, nil
	}
	var payload gatewayPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil
	}
	return &payload, nil
}

func (c *Client) writeFrame(conn *websocket.Conn, payload *gatewayPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// heartbeatLoop sends heartbeats at the interval the gateway asked for.
func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeFrame(conn, &gatewayPayload{Op: opHeartbeat, S: c.getSeq()}); err != nil {
				return
			}
		}
	}
}

func (c *Client) setSeq(s int64) {
	if s == 0 {
		return
	}
	c.seqMu.Lock()
	c.seq = s
	c.seqMu.Unlock()
}

func (c *Client) getSeq() int64 {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	return c.seq
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

// GetMessagesBefore fetches up to limit messages created strictly before the
// given message ID.
func (c *Client) GetMessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error) {
	path := fmt.Sprintf("/channels/%s/messages?limit=%d&before=%s", channelID, limit, url.QueryEscape(beforeID))
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateMessage posts a text message to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID, content string) (*Message, error) {
	var msg Message
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	body := map[string]string{"content": content}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), body, nil)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil, nil)
}

// GetChannel fetches a channel by ID.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateGuildChannel creates a text channel in a guild.
func (c *Client) CreateGuildChannel(ctx context.Context, guildID, name string, overwrites []PermissionOverwrite) (*Channel, error) {
	body := map[string]any{
		"name": name,
		"type": 0, // guild text channel
	}
	if len(overwrites) > 0 {
		body["permission_overwrites"] = overwrites
	}
	var ch Channel
	if err := c.do(ctx, http.MethodPost, "/guilds/"+guildID+"/channels", body, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// do performs one REST call, mapping error statuses to sentinels.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusBadRequest:
		return ErrBadRequest
	case resp.StatusCode >= 300:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
