package livestatus

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ErrNoToken means there is no access token to authenticate the
// connection with. No dial is attempted without one.
var ErrNoToken = errors.New("live status: no access token")

// Conn is one open live connection.
type Conn interface {
	ReadMessage(ctx context.Context) (Message, error)
	WriteMessage(ctx context.Context, v interface{}) error
	Close() error
}

// Dialer opens live connections for a campaign. Ready reports, without
// any I/O, whether dialing can be attempted at all; a missing token is
// the one non-retryable precondition and surfaces before any connect.
type Dialer interface {
	Ready() error
	Dial(ctx context.Context, campaignID string) (Conn, error)
}

// TokenSource supplies the current access token. Empty means signed out.
type TokenSource interface {
	Token() string
}

// WSDialer dials the backend's per-campaign websocket endpoint,
// authenticating with the access token as a query parameter. The server
// closes with status 1008 when the token is rejected.
type WSDialer struct {
	baseURL string
	tokens  TokenSource
}

// NewWSDialer creates a dialer against the given API base URL
// (http/https; the scheme is translated to ws/wss).
func NewWSDialer(baseURL string, tokens TokenSource) *WSDialer {
	return &WSDialer{baseURL: strings.TrimRight(baseURL, "/"), tokens: tokens}
}

func (d *WSDialer) Ready() error {
	if strings.TrimSpace(d.tokens.Token()) == "" {
		return ErrNoToken
	}
	return nil
}

func (d *WSDialer) Dial(ctx context.Context, campaignID string) (Conn, error) {
	target, err := wsURL(d.baseURL, campaignID, d.tokens.Token())
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing live channel: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

// wsURL derives the websocket URL for a campaign from the API base URL.
func wsURL(baseURL, campaignID, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrNoToken
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws/campaign/" + campaignID
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage(ctx context.Context) (Message, error) {
	var msg Message
	if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (c *wsConn) WriteMessage(ctx context.Context, v interface{}) error {
	return wsjson.Write(ctx, c.conn, v)
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "client closed")
}
