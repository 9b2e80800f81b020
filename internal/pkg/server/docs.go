// Package server implements the listening side of the point-of-sale service.
//
// The server performs the following steps:
// 	1. Listens on a TCP port for order-entry and payment terminals.
// 	2. For every accepted connection it creates a session and serves it on its own goroutine.
// 	3. A session reads one newline-terminated command, dispatches it, and writes the
// 	   response followed by an empty line before reading the next command.
// 	4. The session ends when the terminal sends QUIT, hangs up, stays idle past the
// 	   idle timeout, or the server shuts down.
//
// All sessions share one order ledger. The ledger serialises its own operations, so a
// session never holds a lock across socket I/O and a stalled terminal cannot block others.
//
// The number of sessions served at once is bounded. Once the bound is reached the
// accept loop stops accepting until a session ends.
package server
