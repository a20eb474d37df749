package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	arg   string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Add(context.Context) error { f.calls = append(f.calls, "add"); return nil }
func (f *fakeExec) List(context.Context) error { f.calls = append(f.calls, "list"); return nil }
func (f *fakeExec) Outbox(context.Context) error { f.calls = append(f.calls, "outbox"); return nil }
func (f *fakeExec) Sync(context.Context) error { f.calls = append(f.calls, "sync"); return nil }
func (f *fakeExec) Status(context.Context) error { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) Refresh(context.Context) error { f.calls = append(f.calls, "refresh"); return nil }
func (f *fakeExec) RequestDelete(_ context.Context, id string) error {
	f.calls = append(f.calls, "request-delete")
	f.arg = id
	return nil
}
func (f *fakeExec) Discard(_ context.Context, id string) error {
	f.calls = append(f.calls, "discard")
	f.arg = id
	return nil
}

func TestRunREPL_Commands(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"login",
		"help",
		"add",
		"l",
		"outbox",
		"discard abc-123",
		"",
		"request-delete srv-9",
		"sync",
		"status",
		"refresh",
		"foobar",
		"logout",
		"exit",
		"list",
	}, "\n")

	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "(offline)" }, rdr(input), &out)

	assert.Equal(t, []string{"login", "add", "list", "outbox", "discard", "request-delete", "sync", "status", "refresh", "logout"}, exec.calls)
	assert.Equal(t, "srv-9", exec.arg)

	s := out.String()
	assert.Contains(t, s, "ct (offline)> ")
	assert.Contains(t, s, "Available commands: login, outbox, status, exit")
	assert.Contains(t, s, "Available commands: add, (l)ist")
	assert.Contains(t, s, "Unknown command: foobar")
	assert.Contains(t, s, "Bye!")
}

func TestRunREPL_EOFWithoutNewline(t *testing.T) {
	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "" }, rdr("sync"), &out)
	assert.Equal(t, []string{"sync"}, exec.calls)
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(ctx, exec, func() string { return "" }, rdr("sync\n"), &out)
	assert.Empty(t, exec.calls)
}

func TestRunREPL_DiscardWithoutID(t *testing.T) {
	exec := &fakeExec{arg: "stale"}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "" }, rdr("discard\nexit\n"), &out)
	assert.Equal(t, []string{"discard"}, exec.calls)
	assert.Empty(t, exec.arg)
}
