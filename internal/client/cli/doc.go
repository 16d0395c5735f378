// Package cli provides the interactive medscribe command-line client.
//
// It wires configuration, the local SQLite database, the API client and an
// interactive REPL that keeps working while the server is unreachable.
// Typical flow: prompt for credentials, start a background connectivity
// watcher, select a patient and log notes about them.
//
// Key features:
//   - Login / Logout (online with offline fallback)
//   - Patients: list, create, select
//   - Text and voice logs shown immediately as "sending", confirmed or
//     marked failed when the server answers
//   - Retry of failed logs under the same id
//   - Timeline grouped by day (Today, Yesterday, dates)
//   - Questions to the AI assistant about the selected patient
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
