package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/api"
	"github.com/dmitrijs2005/authcore/internal/client/client"
)

// getSimpleText and getSecret are indirections swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) fail(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintln(a.out, "Error:", err, "(issue a new session)")
	} else {
		fmt.Fprintln(a.out, "Error:", err)
	}
	return err
}

func (a *App) printClaims(c api.ClaimsResponse) {
	fmt.Fprintf(a.out, "user:    %s\n", c.UserID)
	if c.Email != "" {
		fmt.Fprintf(a.out, "email:   %s\n", c.Email)
	}
	if c.Role != "" {
		fmt.Fprintf(a.out, "role:    %s\n", c.Role)
	}
	fmt.Fprintf(a.out, "issued:  %s\n", c.IssuedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(a.out, "expires: %s\n", c.ExpiresAt.Local().Format(time.RFC3339))
}

// Issue opens a session for a user id on behalf of the credential service.
// The internal key is prompted for when not configured.
func (a *App) Issue(ctx context.Context) error {
	userID, err := getSimpleText(a.reader, "User id", a.out)
	if err != nil {
		return a.fail(err)
	}
	if userID == "" {
		return a.fail(errors.New("user id is required"))
	}
	email, err := getSimpleText(a.reader, "Email (optional)", a.out)
	if err != nil {
		return a.fail(err)
	}
	role, err := getSimpleText(a.reader, "Role (optional)", a.out)
	if err != nil {
		return a.fail(err)
	}

	if a.client.InternalKey() == "" {
		key, err := getSecret(a.out, "Internal key")
		if err != nil {
			return a.fail(err)
		}
		a.client.SetInternalKey(string(key))
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.IssueSession(ctx, userID, email, role); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Session issued")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.client.WhoAmI(ctx)
	if err != nil {
		return a.fail(err)
	}

	a.printClaims(resp.Claims)
	fmt.Fprintf(a.out, "active sessions: %d\n", resp.ActiveSessions)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Refresh(ctx); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Tokens rotated")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Logout(ctx); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) LogoutAll(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	n, err := a.client.LogoutAll(ctx)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Revoked %d session(s)\n", n)
	return nil
}

func (a *App) Verify(ctx context.Context, token string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	claims, err := a.client.Verify(ctx, token)
	if err != nil {
		return a.fail(err)
	}

	a.printClaims(*claims)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.client.Ping(ctx); err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.out, "Server is reachable")
	return nil
}
