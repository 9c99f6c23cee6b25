package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// SocketPath returns the default sensor daemon socket path.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "sensord.sock")
	}
	return filepath.Join(os.TempDir(), "sensord.sock")
}

// Client communicates with a sensor daemon over a Unix socket.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
}

// Connect dials the daemon Unix socket.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to sensor daemon: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer

	return &Client{conn: conn, scanner: scanner}, nil
}

// Close shuts down the connection. It unblocks a pending ReadEvent.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand sends a command and reads one response line.
func (c *Client) SendCommand(cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	var resp Response
	if err := c.readLine(&resp, "response"); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Subscribe asks the daemon to stream accelerometer events at rateHz
// (zero leaves the rate to the daemon).
func (c *Client) Subscribe(sensor string, rateHz int) error {
	resp, err := c.SendCommand(Command{
		Cmd:    "subscribe",
		Sensor: sensor,
		RateHz: rateHz,
		Events: []string{EventAccel},
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("subscribe: %s", resp.Error)
	}
	return nil
}

// ReadEvent reads the next NDJSON event line. Blocks until data arrives or
// the connection is closed.
func (c *Client) ReadEvent() (Event, error) {
	var ev Event
	if err := c.readLine(&ev, "event"); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// readLine decodes one NDJSON line into v.
func (c *Client) readLine(v any, what string) error {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("read %s: %w", what, err)
		}
		return io.EOF
	}
	if err := json.Unmarshal(c.scanner.Bytes(), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
