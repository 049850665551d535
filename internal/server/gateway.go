package server

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ayu-dev/starboard/internal/biz/domain"
	"github.com/ayu-dev/starboard/internal/infra/discord"
	"github.com/ayu-dev/starboard/internal/service"
)

// GatewayServer binds the platform event stream to the services. Raw frames
// are decoded here into tagged domain events; nothing past this boundary
// inspects event names or raw payloads.
type GatewayServer struct {
	client      *discord.Client
	starSvc     *service.StarboardService
	rotationSvc *service.RotationService
	prefix      string
}

// NewGatewayServer creates a new gateway server.
func NewGatewayServer(
	client *discord.Client,
	starSvc *service.StarboardService,
	rotationSvc *service.RotationService,
	prefix string,
) *GatewayServer {
	if prefix == "" {
		prefix = "!"
	}
	return &GatewayServer{
		client:      client,
		starSvc:     starSvc,
		rotationSvc: rotationSvc,
		prefix:      prefix,
	}
}

// Start starts the server and blocks until Stop.
func (s *GatewayServer) Start() error {
	if s.rotationSvc != nil {
		s.rotationSvc.Start(context.Background())
	}

	s.client.OnEvent(s.handleRawEvent)
	return s.client.Start()
}

// Stop stops the server.
func (s *GatewayServer) Stop() {
	if s.rotationSvc != nil {
		s.rotationSvc.Stop()
	}
	s.client.Stop()
}

// handleRawEvent decodes and dispatches one gateway frame. Dispatch happens
// on a fresh goroutine so the gateway read loop is never blocked behind
// platform calls.
func (s *GatewayServer) handleRawEvent(raw *discord.RawEvent) {
	ev, ok := DecodeEvent(raw)
	if !ok {
		return
	}

	// Direct messages have no guild and no starboard.
	if ev.GuildID == "" {
		return
	}

	go s.dispatch(ev)
}

func (s *GatewayServer) dispatch(ev *domain.GatewayEvent) {
	ctx := context.Background()

	switch ev.Type {
	case domain.EventMessageCreate:
		s.handleCommand(ctx, ev)
	case domain.EventMessageUpdate:
		s.starSvc.HandleMessageUpdate(ctx, ev)
	case domain.EventMessageDelete:
		s.starSvc.HandleMessageDelete(ctx, ev)
	}
}

// handleCommand parses and routes a prefixed command message.
func (s *GatewayServer) handleCommand(ctx context.Context, ev *domain.GatewayEvent) {
	// The bot's own messages are never commands.
	if bot := s.client.BotUser(); bot != nil && ev.AuthorID == bot.ID {
		return
	}

	name, arg, ok := s.parseCommand(ev.Content)
	if !ok {
		return
	}

	switch name {
	case "star":
		s.starSvc.Star(ctx, ev.GuildID, ev.ChannelID, arg, ev.AuthorID, ev.MessageID)
	case "starboard":
		s.starSvc.Setup(ctx, ev.GuildID, ev.ChannelID, arg)
	case "maps":
		if s.rotationSvc != nil {
			s.rotationSvc.Maps(ctx, ev.ChannelID)
		}
	case "schedule":
		if s.rotationSvc != nil {
			s.rotationSvc.Schedule(ctx, ev.ChannelID)
		}
	case "weapon":
		if s.rotationSvc != nil {
			s.rotationSvc.Weapon(ctx, ev.ChannelID, arg)
		}
	case "brand":
		if s.rotationSvc != nil {
			s.rotationSvc.Brand(ctx, ev.ChannelID, arg)
		}
	case "scrim":
		if s.rotationSvc != nil {
			s.rotationSvc.Scrim(ctx, ev.ChannelID, arg)
		}
	case "splatwiki":
		if s.rotationSvc != nil {
			s.rotationSvc.Wiki(ctx, ev.ChannelID, arg)
		}
	}
}

// parseCommand splits a prefixed command into its name and argument string.
func (s *GatewayServer) parseCommand(content string) (name, arg string, ok bool) {
	if !strings.HasPrefix(content, s.prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, s.prefix))
	if rest == "" {
		return "", "", false
	}

	parts := strings.SplitN(rest, " ", 2)
	name = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return name, arg, true
}

// wireMessage is the payload shape shared by the message events.
type wireMessage struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channel_id"`
	GuildID   string     `json:"guild_id"`
	Content   *string    `json:"content"`
	Timestamp *time.Time `json:"timestamp"`
	Author    *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"author"`
	Attachments []struct {
		URL string `json:"url"`
	} `json:"attachments"`
	Mentions []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"mentions"`
}

// DecodeEvent turns a raw gateway frame into a tagged domain event. Frames
// of any other type, and frames that fail to decode, are dropped.
func DecodeEvent(raw *discord.RawEvent) (*domain.GatewayEvent, bool) {
	var evType domain.EventType
	switch raw.Type {
	case "MESSAGE_CREATE":
		evType = domain.EventMessageCreate
	case "MESSAGE_UPDATE":
		evType = domain.EventMessageUpdate
	case "MESSAGE_DELETE":
		evType = domain.EventMessageDelete
	default:
		return nil, false
	}

	var wire wireMessage
	if err := json.Unmarshal(raw.Data, &wire); err != nil {
		return nil, false
	}
	if wire.ID == "" || wire.ChannelID == "" {
		return nil, false
	}

	ev := &domain.GatewayEvent{
		Type:      evType,
		GuildID:   wire.GuildID,
		ChannelID: wire.ChannelID,
		MessageID: wire.ID,
	}
	if wire.Content != nil {
		ev.Content = *wire.Content
		ev.HasContent = true
	}
	if wire.Timestamp != nil {
		ev.Timestamp = *wire.Timestamp
	}
	if wire.Author != nil {
		ev.AuthorID = wire.Author.ID
		ev.AuthorName = wire.Author.Username
	}
	if len(wire.Attachments) > 0 {
		ev.AttachmentURL = wire.Attachments[0].URL
	}
	if len(wire.Mentions) > 0 {
		ev.Mentions = make(map[string]string, len(wire.Mentions))
		for _, m := range wire.Mentions {
			ev.Mentions[m.ID] = m.Username
		}
	}
	return ev, true
}
