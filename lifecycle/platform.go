package lifecycle

import (
	"context"

	"github.com/onnwee/tempvoice/registry"
)

// Permission is a set of channel permissions granted to a member.
type Permission uint8

const (
	// PermViewChannel lets the member see the channel.
	PermViewChannel Permission = 1 << iota
	// PermManageChannels lets the member rename, limit or delete the channel.
	PermManageChannels
)

// Has reports whether p includes every bit of q.
func (p Permission) Has(q Permission) bool { return p&q == q }

// PermissionGrant is a per-member permission overwrite on a new channel.
type PermissionGrant struct {
	UserID string
	Allow  Permission
}

// CreateChannelRequest describes a voice channel to create.
type CreateChannelRequest struct {
	GuildID  string
	Name     string
	ParentID string
	Position int
	OwnerID  string
	Grants   []PermissionGrant
}

// Platform is the chat platform the controller acts on.
type Platform interface {
	CreateVoiceChannel(ctx context.Context, req CreateChannelRequest) (registry.Channel, error)
	DeleteChannel(ctx context.Context, ch registry.Channel) error
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	MemberCount(ctx context.Context, ch registry.Channel) (int, error)
}

// Member is the user whose voice state changed.
type Member struct {
	ID   string
	Name string
}

// VoiceTransition is a single voice state change. Empty channel ids mean
// "not in voice".
type VoiceTransition struct {
	GuildID      string
	OldChannelID string
	NewChannelID string
	Member       *Member
}

// Left reports whether the member disconnected from voice.
func (t VoiceTransition) Left() bool { return t.NewChannelID == "" }

// Moved reports whether the member was in a channel before this change.
func (t VoiceTransition) Moved() bool { return t.OldChannelID != "" }
