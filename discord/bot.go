package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/onnwee/tempvoice/lifecycle"
	"github.com/onnwee/tempvoice/telemetry"
)

// TransitionHandler reacts to voice transitions.
type TransitionHandler interface {
	HandleVoiceTransition(ctx context.Context, t lifecycle.VoiceTransition) lifecycle.Report
}

// Bot owns the gateway connection and feeds voice state changes to a handler.
type Bot struct {
	session *discordgo.Session
	handler TransitionHandler
	ready   atomic.Bool
	user    atomic.Value // string
}

// NewBot returns a Bot dispatching voice events from s to h.
func NewBot(s *discordgo.Session, h TransitionHandler) *Bot {
	return &Bot{session: s, handler: h}
}

// Ready reports whether the gateway session is connected and identified.
func (b *Bot) Ready() bool { return b.ready.Load() }

// User returns the bot's tag once connected.
func (b *Bot) User() string {
	if v, ok := b.user.Load().(string); ok {
		return v
	}
	return ""
}

// Run opens the gateway, dispatches events until ctx is cancelled, then
// closes the session.
func (b *Bot) Run(ctx context.Context) error {
	removers := []func(){
		b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { b.onReady(r) }),
		b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) { b.ready.Store(true) }),
		b.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			b.ready.Store(false)
			slog.Warn("discord gateway disconnected", slog.String("component", "discord"))
		}),
		b.session.AddHandler(func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
			b.handleVoiceState(ctx, s, v)
		}),
	}
	defer func() {
		for _, rm := range removers {
			rm()
		}
	}()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	<-ctx.Done()
	b.ready.Store(false)
	if err := b.session.Close(); err != nil {
		slog.Warn("discord session close failed", slog.Any("err", err))
	}
	return nil
}

func (b *Bot) onReady(r *discordgo.Ready) {
	tag := ""
	if r.User != nil {
		tag = r.User.String()
	}
	b.user.Store(tag)
	b.ready.Store(true)
	slog.Info("connected to discord", slog.String("user", tag), slog.Int("guilds", len(r.Guilds)), slog.String("component", "discord"))
}

func (b *Bot) handleVoiceState(ctx context.Context, s *discordgo.Session, v *discordgo.VoiceStateUpdate) lifecycle.Report {
	t := transition(s, v)
	evCtx := telemetry.WithCorrelation(ctx, uuid.New().String())
	log := telemetry.LoggerWithCorr(evCtx)
	if t.Member == nil {
		log.Debug("voice state without resolvable member ignored", slog.String("guild_id", t.GuildID))
		return lifecycle.Report{}
	}
	log.Debug("voice state update",
		slog.String("guild_id", t.GuildID),
		slog.String("user_id", t.Member.ID),
		slog.String("old_channel", t.OldChannelID),
		slog.String("new_channel", t.NewChannelID))
	rep := b.handler.HandleVoiceTransition(evCtx, t)
	if !rep.Empty() {
		log.Debug("voice state handled", slog.Any("actions", rep.Kinds()))
	}
	return rep
}

// transition converts a gateway event into a VoiceTransition. The member is
// taken from the event, falling back to the state cache.
func transition(s *discordgo.Session, v *discordgo.VoiceStateUpdate) lifecycle.VoiceTransition {
	var t lifecycle.VoiceTransition
	if v == nil || v.VoiceState == nil {
		return t
	}
	t.GuildID = v.GuildID
	t.NewChannelID = v.ChannelID
	if v.BeforeUpdate != nil {
		t.OldChannelID = v.BeforeUpdate.ChannelID
	}

	m := v.Member
	if (m == nil || m.User == nil) && s != nil && s.State != nil && v.UserID != "" {
		if cached, err := s.State.Member(v.GuildID, v.UserID); err == nil {
			m = cached
		}
	}
	if m != nil && m.User != nil {
		t.Member = &lifecycle.Member{ID: m.User.ID, Name: m.User.Username}
	}
	return t
}
