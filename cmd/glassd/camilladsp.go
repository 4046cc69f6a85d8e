package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// CamillaDSPClient controls the mute of a CamillaDSP instance over its
// websocket API.
type CamillaDSPClient struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	url         string
	logger      *slog.Logger
	readTimeout time.Duration
}

var errNoConn = errors.New("no websocket connection")

// NewCamillaDSPClient validates wsURL and dials it, retrying a few times.
func NewCamillaDSPClient(ctx context.Context, wsURL string, logger *slog.Logger, readTimeoutMS int) (*CamillaDSPClient, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket URL %q: scheme must be ws or wss", wsURL)
	}

	c := &CamillaDSPClient{
		url:         u.String(),
		logger:      logger,
		readTimeout: time.Duration(readTimeoutMS) * time.Millisecond,
	}
	if err := c.connectWithRetry(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CamillaDSPClient) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	d := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := d.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *CamillaDSPClient) connectWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= camillaDialAttempts; attempt++ {
		err := c.connect(ctx)
		if err == nil {
			c.logger.Info("connected to CamillaDSP", "url", c.url)
			return nil
		}
		lastErr = err
		c.logger.Warn("camilladsp connection failed", "error", err, "attempt", attempt)

		if attempt == camillaDialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(camillaRetryDelay):
		}
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", camillaDialAttempts, lastErr)
}

// call sends one command and decodes the reply body for name into out. The
// connection is dropped on any transport error and re-dialed on the next call.
func (c *CamillaDSPClient) call(name string, arg any, out any) error {
	c.mu.Lock()
	broken := c.conn == nil
	c.mu.Unlock()
	if broken {
		c.logger.Warn("camilladsp connection lost; reconnecting")
		if err := c.connectWithRetry(context.Background()); err != nil {
			return err
		}
	}

	var req any = name
	if arg != nil {
		req = map[string]any{name: arg}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errNoConn
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil
		return err
	}
	c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	defer func() {
		if c.conn != nil {
			c.conn.SetReadDeadline(time.Time{})
		}
	}()

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		c.conn = nil
		return err
	}

	var resp map[string]struct {
		Result string          `json:"result"`
		Value  json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(msg, &resp); err != nil {
		return fmt.Errorf("parse %s response: %w", name, err)
	}
	body, ok := resp[name]
	if !ok {
		return fmt.Errorf("unexpected response to %s: %s", name, msg)
	}
	if body.Result != "Ok" {
		return fmt.Errorf("%s: result %q", name, body.Result)
	}
	if out != nil {
		if err := json.Unmarshal(body.Value, out); err != nil {
			return fmt.Errorf("parse %s value: %w", name, err)
		}
	}
	return nil
}

func (c *CamillaDSPClient) GetMute() (bool, error) {
	var muted bool
	if err := c.call("GetMute", nil, &muted); err != nil {
		return false, fmt.Errorf("get mute: %w", err)
	}
	c.logger.Debug("GetMute", "mute", muted)
	return muted, nil
}

func (c *CamillaDSPClient) SetMute(mute bool) error {
	if err := c.call("SetMute", mute, nil); err != nil {
		return fmt.Errorf("set mute: %w", err)
	}
	c.logger.Debug("SetMute", "mute", mute)
	return nil
}

func (c *CamillaDSPClient) ToggleMute() (bool, error) {
	var muted bool
	if err := c.call("ToggleMute", nil, &muted); err != nil {
		return false, fmt.Errorf("toggle mute: %w", err)
	}
	c.logger.Debug("ToggleMute", "mute", muted)
	return muted, nil
}

func (c *CamillaDSPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
