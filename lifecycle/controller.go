package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/onnwee/tempvoice/registry"
	"github.com/onnwee/tempvoice/telemetry"
)

const tracerName = "tempvoice/lifecycle"

// maxChannelName is the platform's limit on channel name length in characters.
const maxChannelName = 100

// Config holds the controller settings.
type Config struct {
	CreatorChannelID string
	CategoryID       string
	Position         int
}

// Journal records lifecycle actions for auditing. Implementations must be
// safe for concurrent use.
type Journal interface {
	Record(ctx context.Context, a Action) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithJournal records create/delete outcomes to j.
func WithJournal(j Journal) Option {
	return func(c *Controller) { c.journal = j }
}

// WithClock overrides the time source used to stamp new channels.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller turns voice transitions into sweep and create actions.
type Controller struct {
	cfg      Config
	platform Platform
	registry *registry.Registry
	journal  Journal
	now      func() time.Time
}

// New returns a Controller acting on p and tracking channels in reg.
func New(cfg Config, p Platform, reg *registry.Registry, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		platform: p,
		registry: reg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the controller writes to.
func (c *Controller) Registry() *registry.Registry { return c.registry }

// HandleVoiceTransition reacts to a single voice state change and reports
// what it did. Transitions without a member are ignored.
func (c *Controller) HandleVoiceTransition(ctx context.Context, t VoiceTransition) Report {
	var rep Report
	if t.Member == nil {
		return rep
	}
	telemetry.Inc(telemetry.VoiceEvents)

	ctx, span := telemetry.StartSpan(ctx, tracerName, "voice.transition",
		telemetry.VoiceAttrs(t.GuildID, t.Member.ID, t.OldChannelID, t.NewChannelID)...)
	defer span.End()

	if t.Left() || t.Moved() {
		rep.merge(c.Sweep(ctx))
	}

	if t.NewChannelID != c.cfg.CreatorChannelID {
		return rep
	}
	rep.merge(c.Create(ctx, t))
	return rep
}

// Sweep deletes every tracked channel that has no members. Failures are
// logged and leave the entry in place so the next sweep retries it.
func (c *Controller) Sweep(ctx context.Context) Report {
	var rep Report
	rep.add(Action{Kind: ActionSweep})
	telemetry.Inc(telemetry.Sweeps)

	ctx, span := telemetry.StartSpan(ctx, tracerName, "voice.sweep")
	defer span.End()

	log := telemetry.LoggerWithCorr(ctx)
	failed := false
	telemetry.TimeFunc(telemetry.SweepDuration, func() {
		for _, ch := range c.registry.Snapshot() {
			n, err := c.platform.MemberCount(ctx, ch)
			if err != nil {
				perr := wrapPlatformError("member_count", ch.ID, err)
				failed = true
				log.Warn("voice channel member count failed",
					slog.String("channel_id", ch.ID),
					slog.String("name", ch.Name),
					slog.String("class", perr.Class.String()),
					slog.Any("err", err))
				telemetry.RecordError(span, perr)
				rep.add(Action{Kind: ActionCountFailed, Channel: ch, Err: perr})
				continue
			}
			if n > 0 {
				continue
			}
			a := c.delete(ctx, ch)
			if a.Kind == ActionDeleteFailed {
				failed = true
				telemetry.RecordError(span, a.Err)
			}
			rep.add(a)
		}
	})
	telemetry.SetTrackedChannels(c.registry.Len())
	if !failed {
		telemetry.SetSpanSuccess(span)
	}
	return rep
}

func (c *Controller) delete(ctx context.Context, ch registry.Channel) Action {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "voice.delete", telemetry.ChannelAttrs(ch.ID, ch.Name)...)
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx)
	err := c.platform.DeleteChannel(ctx, ch)
	var a Action
	switch {
	case err == nil:
		c.registry.Remove(ch.ID)
		telemetry.Inc(telemetry.ChannelsDeleted)
		log.Info("deleted voice channel", slog.String("channel_id", ch.ID), slog.String("name", ch.Name))
		telemetry.SetSpanSuccess(span)
		a = Action{Kind: ActionDelete, Channel: ch}
	case errors.Is(err, ErrChannelNotFound):
		// Someone else deleted it, or an overlapping sweep won the race.
		c.registry.Remove(ch.ID)
		log.Warn("voice channel already gone, forgetting it", slog.String("channel_id", ch.ID), slog.String("name", ch.Name))
		a = Action{Kind: ActionForget, Channel: ch, Err: wrapPlatformError("delete_channel", ch.ID, err)}
	default:
		perr := wrapPlatformError("delete_channel", ch.ID, err)
		telemetry.IncFailure(telemetry.DeleteFailures, perr.Class.String())
		telemetry.RecordError(span, perr)
		log.Warn("voice channel delete failed",
			slog.String("channel_id", ch.ID),
			slog.String("name", ch.Name),
			slog.String("class", perr.Class.String()),
			slog.Any("err", err))
		a = Action{Kind: ActionDeleteFailed, Channel: ch, Err: perr}
	}
	c.record(ctx, a)
	return a
}

// Create provisions a channel for the member of t, registers it and moves
// the member into it. A failed move leaves the channel registered; the next
// sweep removes it once it is empty.
func (c *Controller) Create(ctx context.Context, t VoiceTransition) Report {
	var rep Report
	if t.Member == nil {
		return rep
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "voice.create")
	defer span.End()
	log := telemetry.LoggerWithCorr(ctx)

	name := channelName(t.Member)
	req := CreateChannelRequest{
		GuildID:  t.GuildID,
		Name:     name,
		ParentID: c.cfg.CategoryID,
		Position: c.cfg.Position,
		OwnerID:  t.Member.ID,
		Grants: []PermissionGrant{
			{UserID: t.Member.ID, Allow: PermViewChannel | PermManageChannels},
		},
	}

	ch, err := c.platform.CreateVoiceChannel(ctx, req)
	if err != nil {
		perr := wrapPlatformError("create_channel", name, err)
		telemetry.IncFailure(telemetry.CreateFailures, perr.Class.String())
		telemetry.RecordError(span, perr)
		log.Error("voice channel create failed",
			slog.String("guild_id", t.GuildID),
			slog.String("name", name),
			slog.String("user_id", t.Member.ID),
			slog.String("class", perr.Class.String()),
			slog.Any("err", err))
		a := Action{Kind: ActionCreateFailed, Channel: registry.Channel{GuildID: t.GuildID, Name: name, OwnerID: t.Member.ID}, Err: perr}
		c.record(ctx, a)
		rep.add(a)
		return rep
	}

	if ch.GuildID == "" {
		ch.GuildID = t.GuildID
	}
	if ch.OwnerID == "" {
		ch.OwnerID = t.Member.ID
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = c.now()
	}
	c.registry.Put(ch)
	telemetry.Inc(telemetry.ChannelsCreated)
	telemetry.SetTrackedChannels(c.registry.Len())
	log.Info("created voice channel", slog.String("channel_id", ch.ID), slog.String("name", ch.Name), slog.String("user_id", t.Member.ID))
	created := Action{Kind: ActionCreate, Channel: ch}
	c.record(ctx, created)
	rep.add(created)

	if err := c.platform.MoveMember(ctx, t.GuildID, t.Member.ID, ch.ID); err != nil {
		perr := wrapPlatformError("move_member", t.Member.ID, err)
		telemetry.IncFailure(telemetry.MoveFailures, perr.Class.String())
		telemetry.RecordError(span, perr)
		log.Error("moving member into voice channel failed",
			slog.String("channel_id", ch.ID),
			slog.String("user_id", t.Member.ID),
			slog.String("class", perr.Class.String()),
			slog.Any("err", err))
		a := Action{Kind: ActionMoveFailed, Channel: ch, Err: perr}
		c.record(ctx, a)
		rep.add(a)
		return rep
	}
	rep.add(Action{Kind: ActionMove, Channel: ch})
	telemetry.SetSpanSuccess(span)
	return rep
}

func (c *Controller) record(ctx context.Context, a Action) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, a); err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("journal record failed", slog.String("kind", string(a.Kind)), slog.Any("err", err))
	}
}

func channelName(m *Member) string {
	name := m.Name
	if name == "" {
		name = m.ID
	}
	if utf8.RuneCountInString(name) <= maxChannelName {
		return name
	}
	r := []rune(name)
	return string(r[:maxChannelName])
}
