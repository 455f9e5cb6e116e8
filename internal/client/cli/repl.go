package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Issue(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	Verify(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// runREPL reads commands from scanner until EOF, "exit" or "quit".
//
//	Not logged in:  help, issue, verify <token>, ping, exit
//	Logged in:      help, whoami, refresh, logout, logoutall, verify <token>, ping, exit
//
// Handlers print their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("authctl %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, refresh, logout, logoutall, verify <token>, ping, exit")
			} else {
				printlnFn("Available commands: issue, verify <token>, ping, exit")
			}

		case "issue":
			_ = a.Issue(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "logoutall":
			_ = a.LogoutAll(ctx)

		case "verify":
			if len(args) != 1 {
				printlnFn("Usage: verify <access token>")
				continue
			}
			_ = a.Verify(ctx, args[0])

		case "ping":
			_ = a.Ping(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
