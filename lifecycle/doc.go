// Package lifecycle creates, tracks and reclaims temporary voice channels.
//
// A Controller receives one VoiceTransition per voice state change and reacts
// to it:
//   - When the member left voice entirely, or moved out of some channel, it
//     sweeps the registry and deletes every tracked channel that has no
//     members left. A fresh join from no channel never sweeps.
//   - When the member's new channel is the configured creator channel, it
//     creates a voice channel named after the member under the configured
//     category, records it in the registry and moves the member into it.
//
// The sweep always runs before creation. Platform failures are wrapped in
// PlatformError, logged and swallowed; a channel whose deletion failed stays
// in the registry and is retried on the next sweep.
package lifecycle
