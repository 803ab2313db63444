package ipc

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

// Client is a connection to a daemon's IPC socket, for local
// client programs and the CLI's status/stop commands. Each call to Call
// sends one request line and reads one response line; callers that need
// several round trips share a Client and call Call repeatedly.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the daemon's Unix domain socket at socketPath.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, wireerr.Wrapf(err, "connecting to daemon socket %s", socketPath)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Call sends req as a JSON line and returns the decoded response.
func (c *Client) Call(req map[string]interface{}) (Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, wireerr.Wrap(err, "marshaling request")
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return Response{}, wireerr.Wrap(err, "writing request")
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return Response{}, wireerr.Wrap(err, "reading response")
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, wireerr.Wrap(err, "parsing response")
	}
	return resp, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
