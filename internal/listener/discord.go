package listener

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// discordSession is the subset of *discordgo.Session the source drives.
type discordSession interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// DiscordSource receives MESSAGE_CREATE events from the Discord gateway.
type DiscordSource struct {
	session discordSession
	logger  *slog.Logger
}

// NewDiscordSource builds a bot session for token with the guild, guild message
// and message content intents.
func NewDiscordSource(token string, logger *slog.Logger) (*DiscordSource, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("new discord source: empty token")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("new discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	return newDiscordSource(session, logger), nil
}

func newDiscordSource(session discordSession, logger *slog.Logger) *DiscordSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordSource{session: session, logger: logger}
}

// Consume opens the gateway, dispatches messages until ctx is done, then closes it.
// discordgo runs event handlers on their own goroutines.
func (s *DiscordSource) Consume(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("discord source: nil handler")
	}

	removeReady := s.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		if r.User != nil {
			s.logger.Info("bot logged in", "user", r.User.Username, "id", r.User.ID)
		}
	})
	defer removeReady()
	removeCreate := s.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		handler(ctx, messageFromEvent(m))
	})
	defer removeCreate()

	if err := s.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	<-ctx.Done()

	if err := s.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func messageFromEvent(m *discordgo.MessageCreate) Message {
	if m == nil || m.Message == nil {
		return Message{}
	}
	return Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Embeds:    m.Embeds,
	}
}
