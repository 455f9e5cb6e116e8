// Package cli implements authctl, an interactive shell over the authcore
// session service. It keeps the current token pair in a local state file,
// so a session survives restarts, and lets an operator issue, inspect,
// rotate and revoke sessions.
package cli
