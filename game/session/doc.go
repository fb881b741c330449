// Package session stores per-browser session values: the logged-in user
// and, per game, the player a guest claimed. The Redis backend keeps
// sessions across restarts; the in-memory backend serves development and
// tests.
package session
