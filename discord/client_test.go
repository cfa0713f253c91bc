package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/tempvoice/lifecycle"
	"github.com/onnwee/tempvoice/registry"
	"github.com/onnwee/tempvoice/testutil"
)

func newTestSession(t *testing.T, mock *testutil.MockDiscordServer) *discordgo.Session {
	t.Helper()
	s, err := NewSession("test-token")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if mock != nil {
		s.Client = mock.Client()
	}
	return s
}

func TestNewSessionIntents(t *testing.T) {
	s := newTestSession(t, nil)
	if s.Identify.Intents&discordgo.IntentsGuildVoiceStates == 0 {
		t.Error("session missing GuildVoiceStates intent")
	}
	if s.Identify.Intents&discordgo.IntentsGuilds == 0 {
		t.Error("session missing Guilds intent")
	}
	if !s.StateEnabled || !s.State.TrackVoice {
		t.Error("voice state tracking disabled")
	}
}

func TestCreateVoiceChannel(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	var got map[string]interface{}
	mock.Handle(http.MethodPost, "/guilds/g1/channels", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		testutil.JSON(w, http.StatusCreated, map[string]interface{}{"id": "c-900", "guild_id": "g1", "name": got["name"], "type": 2})
	})
	c := NewClient(newTestSession(t, mock))

	ch, err := c.CreateVoiceChannel(context.Background(), lifecycle.CreateChannelRequest{
		GuildID:  "g1",
		Name:     "alice",
		ParentID: "cat-1",
		Position: 2,
		OwnerID:  "u1",
		Grants:   []lifecycle.PermissionGrant{{UserID: "u1", Allow: lifecycle.PermViewChannel | lifecycle.PermManageChannels}},
	})
	if err != nil {
		t.Fatalf("CreateVoiceChannel: %v", err)
	}
	want := registry.Channel{ID: "c-900", GuildID: "g1", Name: "alice", OwnerID: "u1"}
	if ch != want {
		t.Errorf("channel = %+v, want %+v", ch, want)
	}

	if got["parent_id"] != "cat-1" {
		t.Errorf("parent_id = %v, want cat-1", got["parent_id"])
	}
	if got["type"] != float64(discordgo.ChannelTypeGuildVoice) {
		t.Errorf("type = %v, want voice", got["type"])
	}
	if got["position"] != float64(2) {
		t.Errorf("position = %v, want 2", got["position"])
	}
	ows, _ := got["permission_overwrites"].([]interface{})
	if len(ows) != 1 {
		t.Fatalf("permission_overwrites = %v, want one entry", got["permission_overwrites"])
	}
	ow := ows[0].(map[string]interface{})
	if ow["id"] != "u1" {
		t.Errorf("overwrite id = %v, want u1", ow["id"])
	}
}

func TestOverwritesMapping(t *testing.T) {
	ows := overwrites([]lifecycle.PermissionGrant{
		{UserID: "u1", Allow: lifecycle.PermViewChannel | lifecycle.PermManageChannels},
		{UserID: "u2", Allow: lifecycle.PermViewChannel},
	})
	if len(ows) != 2 {
		t.Fatalf("len = %d, want 2", len(ows))
	}
	wantFirst := int64(discordgo.PermissionViewChannel | discordgo.PermissionManageChannels)
	if ows[0].Allow != wantFirst || ows[0].Type != discordgo.PermissionOverwriteTypeMember {
		t.Errorf("overwrite[0] = %+v", ows[0])
	}
	if ows[1].Allow != discordgo.PermissionViewChannel {
		t.Errorf("overwrite[1].Allow = %d, want view only", ows[1].Allow)
	}
}

func TestCreateVoiceChannelForbidden(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	mock.Handle(http.MethodPost, "/guilds/g1/channels", func(w http.ResponseWriter, r *http.Request) {
		testutil.JSON(w, http.StatusForbidden, map[string]interface{}{"message": "Missing Permissions", "code": 50013})
	})
	c := NewClient(newTestSession(t, mock))

	_, err := c.CreateVoiceChannel(context.Background(), lifecycle.CreateChannelRequest{GuildID: "g1", Name: "x"})
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if errors.Is(err, lifecycle.ErrChannelNotFound) {
		t.Error("403 mapped to ErrChannelNotFound")
	}
	if got := lifecycle.ClassifyError(err); got != lifecycle.ErrorClassFatal {
		t.Errorf("class = %v, want fatal", got)
	}
}

func TestDeleteChannel(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	mock.MockChannelDelete("c1")
	mock.MockUnknownChannel("c2")
	c := NewClient(newTestSession(t, mock))

	if err := c.DeleteChannel(context.Background(), registry.Channel{ID: "c1"}); err != nil {
		t.Errorf("DeleteChannel(c1): %v", err)
	}
	err := c.DeleteChannel(context.Background(), registry.Channel{ID: "c2"})
	if !errors.Is(err, lifecycle.ErrChannelNotFound) {
		t.Errorf("DeleteChannel(c2) = %v, want ErrChannelNotFound", err)
	}

	want := []string{"DELETE /channels/c1", "DELETE /channels/c2"}
	if got := mock.Requests(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("requests = %v, want %v", got, want)
	}
}

func TestMoveMember(t *testing.T) {
	mock := testutil.NewMockDiscordServer(t)
	var body map[string]interface{}
	mock.Handle(http.MethodPatch, "/guilds/g1/members/u1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})
	c := NewClient(newTestSession(t, mock))

	if err := c.MoveMember(context.Background(), "g1", "u1", "c-900"); err != nil {
		t.Fatalf("MoveMember: %v", err)
	}
	if body["channel_id"] != "c-900" {
		t.Errorf("channel_id = %v, want c-900", body["channel_id"])
	}
	if got := mock.Requests(); len(got) != 1 || got[0] != "PATCH /guilds/g1/members/u1" {
		t.Errorf("requests = %v, want a single member PATCH", got)
	}
}

func TestMemberCountFromState(t *testing.T) {
	s := newTestSession(t, nil)
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "g1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g1", UserID: "u1", ChannelID: "c1"},
			{GuildID: "g1", UserID: "u2", ChannelID: "c1"},
			{GuildID: "g1", UserID: "u3", ChannelID: "c2"},
		},
	}); err != nil {
		t.Fatalf("GuildAdd: %v", err)
	}
	c := NewClient(s)

	tests := []struct {
		channel string
		want    int
	}{
		{"c1", 2},
		{"c2", 1},
		{"c3", 0},
	}
	for _, tt := range tests {
		n, err := c.MemberCount(context.Background(), registry.Channel{ID: tt.channel, GuildID: "g1"})
		if err != nil {
			t.Fatalf("MemberCount(%s): %v", tt.channel, err)
		}
		if n != tt.want {
			t.Errorf("MemberCount(%s) = %d, want %d", tt.channel, n, tt.want)
		}
	}

	if _, err := c.MemberCount(context.Background(), registry.Channel{ID: "c1", GuildID: "missing"}); err == nil {
		t.Error("expected error for guild missing from state")
	}
}

func TestMapErrorPassesThroughPlainErrors(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	if got := mapError(plain); got != plain {
		t.Errorf("mapError changed a non-REST error: %v", got)
	}
}
