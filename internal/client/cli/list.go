package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/common"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers(headers...)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// List shows the cached server entries, newest first.
func (a *App) List(ctx context.Context) error {
	entries, err := a.store.GetCache(ctx)
	if err != nil {
		a.log.Error(ctx, "read cache failed", "error", err)
		a.println("Could not read entries:", err)
		return err
	}
	if len(entries) == 0 {
		a.println("No entries cached, try 'refresh' while online")
		return nil
	}

	t := newTable("ID", "Container", "Second", "Size", "Type", "Plate", "By", "When", "Deletion")
	for _, e := range entries {
		deletion := "-"
		if e.DeletionRequested {
			deletion = "requested"
		}
		t.Row(e.ID, e.ContainerNumber, orDash(e.SecondContainerNumber), string(e.Size), string(e.EntryType),
			orDash(e.LicensePlateNumber), e.UserName, humanize.RelTime(e.CreatedAt, a.now(), "ago", "from now"), deletion)
	}
	a.println(t.String())
	return nil
}

// Outbox shows entries not yet accepted by the server.
func (a *App) Outbox(ctx context.Context) error {
	items, err := a.store.ListPending(ctx)
	if err != nil {
		a.log.Error(ctx, "read outbox failed", "error", err)
		a.println("Could not read outbox:", err)
		return err
	}
	if len(items) == 0 {
		a.println("Outbox is empty")
		return nil
	}

	t := newTable("ID", "Container", "Type", "Status", "Retries", "Queued")
	for _, e := range items {
		st := string(e.SyncStatus)
		if e.Exhausted() {
			st += " (gave up)"
		}
		t.Row(e.ID, e.ContainerNumber, string(e.EntryType), st,
			fmt.Sprintf("%d/%d", e.RetryCount, models.MaxRetries),
			humanize.RelTime(e.CreatedAt, a.now(), "ago", "from now"))
	}
	a.println(t.String())
	return nil
}

// Discard drops one outbox entry for good.
func (a *App) Discard(ctx context.Context, id string) error {
	if id == "" {
		a.println("Usage: discard <id>")
		return nil
	}
	e, err := a.store.GetPending(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		a.println("No such entry:", id)
		return err
	}
	if err != nil {
		a.println("Could not read outbox:", err)
		return err
	}
	if err := a.store.RemovePending(ctx, id); err != nil {
		a.println("Could not discard entry:", err)
		return err
	}
	a.printf("Discarded %s (%s)\n", e.ContainerNumber, e.ID)
	_ = a.status.Refresh(ctx)
	return nil
}
