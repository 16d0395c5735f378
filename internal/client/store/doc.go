// Package store holds the client's shared view of patient records.
//
// # Record store
//
// Store keeps one Collection per record kind (messages, recordings, AI
// exchanges). A collection maps a patient id to an ordered list. Every
// mutation runs under the collection mutex and publishes a new slice, so a
// list handed out earlier never changes underneath its reader; Get returns a
// copy. Each mutation bumps a per-patient version and emits a Change to the
// subscribers registered on the Store.
//
// The collections do not sort. Callers that display records sort them (see
// the reconcile and timeline packages).
//
// # Persistence
//
// When a snapshots.Repository is supplied, every Change writes the latest
// list for the affected (kind, patient) pair under common.StoreName.
// Rehydrate loads those lists back at start-up and fails pending records that
// are older than the staleness threshold, since their network call died with
// the previous process.
//
// # Submission tracker
//
// Tracker is the in-memory registry of outstanding submissions. It never
// holds display data; it answers "is this id in flight" and "is a text
// submission already running for this patient".
package store
