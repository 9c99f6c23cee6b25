// Package daemontest runs an in-process sensor daemon on a Unix socket for
// tests.
package daemontest

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jwulff/orient/internal/daemon"
)

// Daemon accepts one connection, answers every command with Response and,
// after a subscribe command, writes Events and keeps the connection open
// until the test ends.
type Daemon struct {
	Response daemon.Response
	Events   []daemon.Event

	mu       sync.Mutex
	commands []daemon.Command
}

// Start listens on a socket in a temp dir and returns its path.
func (d *Daemon) Start(t *testing.T) string {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "sensord.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		ln.Close()
	})

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var cmd daemon.Command
			if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
				return
			}
			d.mu.Lock()
			d.commands = append(d.commands, cmd)
			d.mu.Unlock()

			data, _ := json.Marshal(d.Response)
			if _, err := conn.Write(append(data, '\n')); err != nil {
				return
			}

			if cmd.Cmd == "subscribe" && d.Response.OK {
				for _, ev := range d.Events {
					data, _ := json.Marshal(ev)
					if _, err := conn.Write(append(data, '\n')); err != nil {
						return
					}
				}
				<-done
				return
			}
		}
	}()

	return sockPath
}

// Commands returns the commands received so far.
func (d *Daemon) Commands() []daemon.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]daemon.Command(nil), d.commands...)
}
