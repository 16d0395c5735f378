// Package snapshots persists the client record store.
//
// Each (store, kind, patient) triple maps to one JSON payload holding the full
// ordered record list for that patient. Writes are whole-document upserts, so
// the last save always reflects the complete state and a reader never sees a
// partially written list.
//
// The store name is fixed by the caller (see common.StoreName); bumping it is
// how an incompatible payload format would be introduced.
package snapshots
