// Package storage is the durable local store of the client. It keeps the
// outbox of pending entries, the cache of server-confirmed entries and sync
// metadata in a single SQLite file whose schema is versioned by goose.
//
// Every error that originates in the database is wrapped with ErrStorage so
// callers can tell local failures apart from remote ones:
//
//	if errors.Is(err, storage.ErrStorage) {
//	    // try again later, the server is not to blame
//	}
package storage
