// Package optimistic drives asynchronous submissions of patient logs.
//
// A submission inserts a pending placeholder into the record store before
// the create call starts, then resolves it in the background: a successful
// call replaces the placeholder with the server's copy, a failed one marks
// it failed so it can be retried under the same id. Refresh reconciles the
// store with the server's lists and may run at any time relative to those
// completions; both sides converge on the same list.
//
// Placeholders of voice logs own an ephemeral playback handle from the
// media registry and a sealed copy of their audio in the media spool. Both
// are released once the server's copy supersedes the placeholder.
package optimistic
