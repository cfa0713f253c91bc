// Package discord connects the lifecycle controller to Discord.
//
// Client implements lifecycle.Platform on top of a discordgo session: REST
// calls for creating, deleting and moving, and the session's state cache for
// live member counts. Bot owns the gateway connection, turns
// VoiceStateUpdate events into lifecycle.VoiceTransition values and tracks
// readiness for the health endpoints.
//
// The session must be opened with the Guilds and GuildVoiceStates intents;
// without them the state cache has no voice states and every tracked channel
// looks empty.
package discord
