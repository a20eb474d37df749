package syncer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
)

// Summary renders a drain result as a short message for the user.
func Summary(res models.SyncResult) string {
	switch {
	case res.Skipped:
		return "Sync already in progress"
	case res.NoSession && res.Synced > 0:
		return fmt.Sprintf("Synced %d offline %s; sync blocked: not logged in (%s waiting)",
			res.Synced, plural(res.Synced), entries(res.Failed))
	case res.NoSession:
		return fmt.Sprintf("Sync blocked: not logged in (%s waiting)", entries(res.Failed))
	}

	var parts []string
	if res.Synced > 0 {
		parts = append(parts, fmt.Sprintf("Synced %d offline %s", res.Synced, plural(res.Synced)))
	}
	if res.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%s failed to sync", entries(res.Failed)))
	}
	if res.Interrupted {
		parts = append(parts, "stopped: connection lost")
	}
	if len(parts) == 0 {
		return "Nothing to sync"
	}
	return strings.Join(parts, "; ")
}

func entries(n int) string {
	return strconv.Itoa(n) + " " + plural(n)
}

func plural(n int) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}
