// Package session holds the single source of truth for "who is logged in".
//
// A Store keeps an immutable snapshot of the current principal and mirrors
// every write to a Persister so a reload restores the session. Only
// SetPrincipal and Clear mutate it; everyone else reads copies through
// Current or Snapshot, or reacts to committed changes through Subscribe.
//
// Unreadable or corrupt persisted state never escapes as an error: Open logs
// it and starts unauthenticated.
package session
