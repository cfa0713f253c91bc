package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/tempvoice/lifecycle"
	"github.com/onnwee/tempvoice/registry"
)

// Intents the bot needs: guild/channel state and voice states.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

// NewSession creates a discordgo session for a bot token with state tracking
// enabled and library logs routed through slog.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	s.State.TrackChannels = true
	s.State.TrackVoice = true
	s.LogLevel = discordgo.LogWarning
	discordgo.Logger = logToSlog
	return s, nil
}

func logToSlog(msgL, _ int, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	attrs := []any{slog.String("component", "discordgo")}
	switch msgL {
	case discordgo.LogError:
		slog.Error(msg, attrs...)
	case discordgo.LogWarning:
		slog.Warn(msg, attrs...)
	case discordgo.LogInformational:
		slog.Info(msg, attrs...)
	default:
		slog.Debug(msg, attrs...)
	}
}

// Client implements lifecycle.Platform with a discordgo session.
type Client struct {
	session *discordgo.Session
}

// NewClient wraps s.
func NewClient(s *discordgo.Session) *Client {
	return &Client{session: s}
}

var _ lifecycle.Platform = (*Client)(nil)

// CreateVoiceChannel creates a guild voice channel under req.ParentID.
func (c *Client) CreateVoiceChannel(ctx context.Context, req lifecycle.CreateChannelRequest) (registry.Channel, error) {
	data := discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		ParentID:             req.ParentID,
		Position:             req.Position,
		PermissionOverwrites: overwrites(req.Grants),
	}
	ch, err := c.session.GuildChannelCreateComplex(req.GuildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return registry.Channel{}, mapError(err)
	}
	guildID := ch.GuildID
	if guildID == "" {
		guildID = req.GuildID
	}
	return registry.Channel{ID: ch.ID, GuildID: guildID, Name: ch.Name, OwnerID: req.OwnerID}, nil
}

// DeleteChannel deletes ch. A channel that no longer exists yields an error
// wrapping lifecycle.ErrChannelNotFound.
func (c *Client) DeleteChannel(ctx context.Context, ch registry.Channel) error {
	if _, err := c.session.ChannelDelete(ch.ID, discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	return nil
}

// MoveMember moves a connected member into channelID.
func (c *Client) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	if err := c.session.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	return nil
}

// MemberCount counts voice states in ch from the session state cache.
func (c *Client) MemberCount(_ context.Context, ch registry.Channel) (int, error) {
	state := c.session.State
	if state == nil {
		return 0, errors.New("discord state tracking disabled")
	}
	g, err := state.Guild(ch.GuildID)
	if err != nil {
		return 0, fmt.Errorf("guild %s: %w", ch.GuildID, err)
	}
	state.RLock()
	defer state.RUnlock()
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == ch.ID {
			n++
		}
	}
	return n, nil
}

func overwrites(grants []lifecycle.PermissionGrant) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(grants))
	for _, g := range grants {
		var allow int64
		if g.Allow.Has(lifecycle.PermViewChannel) {
			allow |= discordgo.PermissionViewChannel
		}
		if g.Allow.Has(lifecycle.PermManageChannels) {
			allow |= discordgo.PermissionManageChannels
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    g.UserID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: allow,
		})
	}
	return out
}

// mapError tags "Unknown Channel" responses with lifecycle.ErrChannelNotFound.
func mapError(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownChannel {
		return fmt.Errorf("%w: %w", lifecycle.ErrChannelNotFound, err)
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound && rest.Message == nil {
		return fmt.Errorf("%w: %w", lifecycle.ErrChannelNotFound, err)
	}
	return err
}
