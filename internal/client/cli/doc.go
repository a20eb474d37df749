// Package cli implements the interactive client: a small REPL for staff at
// the gate plus the one-shot commands used by cmd/client.
//
// Commands
//
//	Not logged in:
//	  help, login, status, outbox, exit
//
//	Logged in:
//	  add               capture an entry, optionally reading numbers from photos
//	  list              recent entries from the local cache
//	  outbox            entries waiting to be sent
//	  discard <id>      drop an entry from the outbox
//	  sync              send queued entries now
//	  refresh           reload the cache from the server
//	  status, logout, exit
//
// Entries are always written locally first, so add works offline.
package cli
