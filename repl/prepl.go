package repl

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
)

// PreplClient speaks the line-oriented prepl protocol: one expression per
// line in, one printed result per line out. Evaluations are serialized on
// the single connection.
type PreplClient struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
	closed atomic.Bool
	log    log.Logger
}

var _ Client = (*PreplClient)(nil)

// Dial connects to a prepl endpoint.
func Dial(addr string, timeout time.Duration, logger log.Logger) (*PreplClient, error) {
	if logger == nil {
		logger = log.New()
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to repl at %s: %w", addr, err)
	}
	logger.Info("Connected to repl", "addr", addr)
	return &PreplClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
		log:    logger,
	}, nil
}

// Connected reports whether the channel is usable.
func (c *PreplClient) Connected() bool {
	return c.conn != nil && !c.closed.Load()
}

// EvalSync sends one expression and reads its printed result. ANSI escape
// sequences from the remote printer are stripped before the result is
// returned.
func (c *PreplClient) EvalSync(ctx context.Context, expr string) (string, error) {
	if !c.Connected() {
		return "", fmt.Errorf("repl channel is closed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return "", fmt.Errorf("failed to set deadline: %w", err)
		}
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}

	c.log.Debug("Evaluating remote expression", "expr", expr)
	if _, err := fmt.Fprintf(c.conn, "%s\n", expr); err != nil {
		c.closed.Store(true)
		return "", fmt.Errorf("failed to send expression: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.closed.Store(true)
		return "", fmt.Errorf("failed to read result: %w", err)
	}
	return strings.TrimSpace(stripansi.Strip(line)), nil
}

// EvalAsync evaluates expr on a separate goroutine and hands the result to
// callback. The caller is never blocked.
func (c *PreplClient) EvalAsync(ctx context.Context, expr string, callback func(result string, err error)) {
	go func() {
		result, err := c.EvalSync(ctx, expr)
		callback(result, err)
	}()
}

// Close tears down the connection.
func (c *PreplClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}
