package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/containertracker/internal/client/models"
	"github.com/dmitrijs2005/containertracker/internal/client/remote"
	"github.com/dmitrijs2005/containertracker/internal/common"
)

// getSimpleText and getSecret are indirections used by tests.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
)

// Login asks for the staff name and code and signs in. A connection is
// required: sessions are only issued by the server.
func (a *App) Login(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	code, err := getSecret(a.reader, "Enter your code", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(code)

	s, err := a.sessions.Login(ctx, name, strings.ToUpper(string(code)))
	switch {
	case err == nil:
		a.printf("Welcome, %s\n", s.Name)
		return nil
	case errors.Is(err, models.ErrValidation):
		a.println(err.Error())
	case errors.Is(err, remote.ErrUnavailable):
		a.println("Server unavailable, signing in needs a connection")
	case errors.Is(err, remote.ErrRateLimited):
		a.println("Too many login attempts, try again in a minute")
	case errors.Is(err, remote.ErrUnauthorized):
		a.println("Invalid name or code")
	default:
		a.log.Error(ctx, "login failed", "error", err)
		a.println("Login failed:", err)
	}
	return err
}

// Logout always clears the local session, even offline.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Logout(ctx); err != nil {
		a.log.Error(ctx, "logout failed", "error", err)
		a.println("Logout failed:", err)
		return err
	}
	a.println("Logged out")
	return nil
}
