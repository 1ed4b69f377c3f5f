package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"signal-monitor/src/models"
)

// ErrBadResult marks a line from the server that is not a trade result.
var ErrBadResult = errors.New("undecodable trade result")

// Client is the controller side of the control socket: it sends control
// messages and reads the trade results pushed back on the same connection.
type Client struct {
	conn    net.Conn
	writeMu sync.Mutex
	reader  *bufio.Reader
}

// Dial connects to a control server.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial control %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes one newline-terminated control record.
func (c *Client) Send(msg models.MControlMessage) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err = c.conn.Write(line)
	return err
}

func (c *Client) SetInstrument(v string) error {
	return c.Send(models.MControlMessage{Type: models.ControlTypeCompany, Value: v})
}

func (c *Client) SetStrategy(v string) error {
	return c.Send(models.MControlMessage{Type: models.ControlTypeStrategy, Value: v})
}

// Next blocks for the next trade result. Undecodable lines are returned as
// errors without closing the client.
func (c *Client) Next() (models.MTradeResult, error) {
	var result models.MTradeResult
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(line, &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrBadResult, err)
	}
	return result, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
