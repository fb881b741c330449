// Package websocket carries the live game sessions.
//
// The package implements:
//   - A process-wide Hub that fans every published frame out to all
//     subscribed connections, which filter by game id themselves
//   - Identity negotiation: owner detection, session-based reconnection,
//     and the interactive display-name claim protocol for guests
//   - A per-connection supervisor running a read pump and a write pump
//     that are torn down together when either side stops
//
// Core Types:
//
// Hub is the single broadcast point shared by every connection.
// Client supervises one connection to one game from upgrade to teardown.
// Broadcaster publishes one game's state snapshots through the hub.
//
// Clients must treat every stateChange frame as authoritative and replace
// their local state; frames are full snapshots, never diffs.
package websocket
