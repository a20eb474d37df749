package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/containertracker/internal/client/status"
	"github.com/dmitrijs2005/containertracker/internal/client/syncer"
	"github.com/dmitrijs2005/containertracker/internal/common"
)

// Sync sends the outbox now.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.status.SyncNow(ctx)
	switch {
	case errors.Is(err, status.ErrOffline):
		a.println("Offline: entries stay queued until the connection is back")
		return nil
	case err != nil:
		a.log.Error(ctx, "sync failed", "error", err)
		a.println("Sync failed:", err)
		return err
	}
	a.println(syncer.Summary(res))
	return nil
}

// Status prints the status line, or a short all-clear when it is hidden.
func (a *App) Status(ctx context.Context) error {
	_ = a.status.Refresh(ctx)
	v := a.status.View()
	if line := status.Render(v, a.now()); line != "" {
		a.println(line)
		return nil
	}
	msg := "Online, all entries synced"
	if !v.LastSync.IsZero() {
		msg += " (last synced " + status.RelTime(v.LastSync, a.now()) + ")"
	}
	a.println(msg)
	return nil
}

// Refresh reloads the entry cache from the server.
func (a *App) Refresh(ctx context.Context) error {
	if !a.online() {
		a.println("Offline: showing cached entries")
		return nil
	}
	if err := a.server.RefreshCache(ctx); err != nil {
		if errors.Is(err, syncer.ErrCacheDisabled) {
			return nil
		}
		a.log.Warn(ctx, "refresh failed", "error", err)
		a.println("Refresh failed:", err)
		return err
	}
	a.println("Entries refreshed")
	return nil
}

// RequestDelete asks the server to flag entry id for removal and reloads the
// cache so the list shows the flag.
func (a *App) RequestDelete(ctx context.Context, id string) error {
	if id == "" {
		a.println("Usage: request-delete <id>")
		return nil
	}
	if !a.online() {
		a.println("Offline: deletion requests need a connection")
		return nil
	}

	err := a.server.RequestDeletion(ctx, id)
	switch {
	case errors.Is(err, syncer.ErrDeletionDisabled):
		return nil
	case errors.Is(err, common.ErrNotFound):
		a.println("No such entry on the server:", id)
		return err
	case errors.Is(err, common.ErrUnauthorized):
		a.println("Session expired, please log in again")
		return err
	case err != nil:
		a.log.Warn(ctx, "request deletion failed", "error", err)
		a.println("Deletion request failed:", err)
		return err
	}
	a.printf("Deletion requested for %s\n", id)

	if err := a.server.RefreshCache(ctx); err != nil && !errors.Is(err, syncer.ErrCacheDisabled) {
		a.log.Warn(ctx, "refresh after deletion request failed", "error", err)
	}
	return nil
}
