package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. App satisfies it, tests
// use a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Outbox(ctx context.Context) error
	Discard(ctx context.Context, id string) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Refresh(ctx context.Context) error
	RequestDelete(ctx context.Context, id string) error
}

// runREPL reads commands from in until EOF or "exit". Handler errors are
// reported by the handlers themselves and do not stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "ct %s> ", statusFn())
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(out, "Available commands: add, (l)ist, outbox, discard <id>, request-delete <id>, sync, refresh, status, logout, exit")
			} else {
				fmt.Fprintln(out, "Available commands: login, outbox, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "add":
			_ = a.Add(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "outbox":
			_ = a.Outbox(ctx)

		case "discard":
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			_ = a.Discard(ctx, id)

		case "request-delete":
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			_ = a.RequestDelete(ctx, id)

		case "sync":
			_ = a.Sync(ctx)

		case "status":
			_ = a.Status(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}
