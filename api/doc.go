// Package api exposes the HTTP surface of the server.
//
// The package implements:
//   - Account endpoints: register, login, logout, me
//   - Game management endpoints with owner-only mutation
//   - The /ws/{gameId} endpoint that upgrades connections and hands them
//     to the websocket supervisor
//
// Sessions ride a long-lived HttpOnly cookie; the same cookie keys the
// websocket reconnection fast path, so a player who refreshes the page
// gets their seat back without re-entering a name.
package api
