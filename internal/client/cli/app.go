package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/containertracker/internal/client/capture"
	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/status"
	"github.com/dmitrijs2005/containertracker/internal/logging"
)

type Sessions interface {
	Login(ctx context.Context, name, code string) (*models.Session, error)
	Logout(ctx context.Context) error
	Current() *models.Session
}

type Capturer interface {
	Extract(ctx context.Context, kind, image string) (string, bool)
	Submit(ctx context.Context, d capture.Draft) (*models.PendingEntry, error)
}

type LocalStore interface {
	ListPending(ctx context.Context) ([]*models.PendingEntry, error)
	GetPending(ctx context.Context, id string) (*models.PendingEntry, error)
	RemovePending(ctx context.Context, id string) error
	GetCache(ctx context.Context) ([]*models.CachedEntry, error)
}

type StatusSource interface {
	View() status.View
	Refresh(ctx context.Context) error
	SyncNow(ctx context.Context) (models.SyncResult, error)
}

// ServerEntries is the online side of the entry list.
type ServerEntries interface {
	RefreshCache(ctx context.Context) error
	RequestDeletion(ctx context.Context, id string) error
}

type App struct {
	sessions  Sessions
	capture   Capturer
	store     LocalStore
	status    StatusSource
	server    ServerEntries
	online    func() bool
	log       logging.Logger

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

func NewApp(sessions Sessions, capt Capturer, store LocalStore, st StatusSource, server ServerEntries,
	online func() bool, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		sessions:  sessions,
		capture:   capt,
		store:     store,
		status:    st,
		server:    server,
		online:    online,
		log:       log.With("module", "cli"),
		reader:    bufio.NewReader(in),
		out:       out,
		now:       time.Now,
	}
}

func (a *App) isLoggedIn() bool {
	return a.sessions.Current() != nil
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// getStatus is shown in the prompt, e.g. "(Ama online)".
func (a *App) getStatus() string {
	mode := "offline"
	if a.online() {
		mode = "online"
	}
	if s := a.sessions.Current(); s != nil {
		return fmt.Sprintf("(%s %s)", s.Name, mode)
	}
	return fmt.Sprintf("(%s)", mode)
}

// Run prints the welcome banner and serves the REPL until EOF or exit.
func (a *App) Run(ctx context.Context) {
	a.println("Container tracker (type 'help' for commands)")
	if s := a.sessions.Current(); s != nil {
		a.printf("Signed in as %s\n", s.Name)
	}
	if line := status.Render(a.status.View(), a.now()); line != "" {
		a.println(line)
	}
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
