// Package session keeps live game sessions and their stored copies.
//
// A Manager maps case-insensitive session IDs to sessions, each with its own
// engine, undo stack and best score. Generated IDs are four hex characters.
//
// Persistence is optional. FilePersistence writes one JSON file per session,
// SQLitePersistence one row per session, and RetryingPersistence wraps either
// with backoff on failed writes. Stored sessions embed the same
// {board, score, best} record used for export, plus the undo snapshots, so a
// restored session can still take moves back.
//
// Sessions evicted from memory are reloaded from storage on first access.
// Records whose board does not fit their rules are skipped with a warning.
//
//	m := session.NewManagerWithPersistence(store, session.WithUndoDepth(6))
//	if err := m.LoadPersistedSessions(); err != nil {
//		log.Fatal().Err(err).Msg("load sessions")
//	}
//	sess, err := m.Create("", "classic", nil)
package session
