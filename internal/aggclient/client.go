// Package aggclient is the Aggregator socket client shared by every other
// daemon (Reconciler, Sync loop, Management gateway): dial, send one frame,
// read one frame, close (spec §5 "Aggregator connection handling").
package aggclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/wire"
)

// DefaultDialTimeout bounds connecting to the local socket.
const DefaultDialTimeout = 5 * time.Second

// Client is a thin, one-shot-per-call wrapper around the Aggregator's wire protocol.
type Client struct {
	socketPath   string
	localVersion version.Tag
	dialTimeout  time.Duration
}

// New constructs a Client against the Aggregator socket at socketPath.
func New(socketPath string, localVersion version.Tag) *Client {
	return &Client{socketPath: socketPath, localVersion: localVersion, dialTimeout: DefaultDialTimeout}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindAggregatorUnreachable, "dial aggregator socket", err)
	}
	return conn, nil
}

// PostStatus sends one StatusUpdate and waits for its Acknowledgment.
func (c *Client) PostStatus(ctx context.Context, record statusmodel.StatusRecord) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	msg, err := wire.NewGeneralMessage(c.localVersion.String(), wire.MsgStatusUpdate, record)
	if err != nil {
		return ferrors.Wrap(ferrors.KindProtocolViolation, "encode status update", err)
	}
	if err := wire.EncodeFrame(conn, msg); err != nil {
		return ferrors.Wrap(ferrors.KindAggregatorUnreachable, "write status update", err)
	}

	var resp wire.GeneralMessage
	if err := wire.DecodeFrame(conn, &resp); err != nil {
		return ferrors.Wrap(ferrors.KindAggregatorUnreachable, "read acknowledgment", err)
	}
	if resp.MsgType != wire.MsgAcknowledgment {
		return ferrors.New(ferrors.KindProtocolViolation, fmt.Sprintf("expected acknowledgment, got %s", resp.MsgType))
	}
	return nil
}

func (c *Client) query(ctx context.Context, q wire.QueryMessage) (wire.QueryResponse, error) {
	var out wire.QueryResponse
	conn, err := c.dial(ctx)
	if err != nil {
		return out, err
	}
	defer conn.Close()

	msg, err := wire.NewGeneralMessage(c.localVersion.String(), wire.MsgQuery, q)
	if err != nil {
		return out, ferrors.Wrap(ferrors.KindProtocolViolation, "encode query", err)
	}
	if err := wire.EncodeFrame(conn, msg); err != nil {
		return out, ferrors.Wrap(ferrors.KindAggregatorUnreachable, "write query", err)
	}

	var resp wire.GeneralMessage
	if err := wire.DecodeFrame(conn, &resp); err != nil {
		return out, ferrors.Wrap(ferrors.KindAggregatorUnreachable, "read query response", err)
	}
	if resp.MsgType != wire.MsgQuery {
		return out, ferrors.New(ferrors.KindProtocolViolation, fmt.Sprintf("expected query response, got %s", resp.MsgType))
	}
	if err := json.Unmarshal(resp.Payload, &out); err != nil {
		return out, ferrors.Wrap(ferrors.KindProtocolViolation, "decode query response payload", err)
	}
	return out, nil
}

// QueryAllStatuses fetches a snapshot of every tracked application's status.
func (c *Client) QueryAllStatuses(ctx context.Context) (map[statusmodel.AppName]statusmodel.StatusRecord, error) {
	resp, err := c.query(ctx, wire.QueryMessage{QueryType: wire.QueryAllStatuses})
	if err != nil {
		return nil, err
	}
	return resp.AllStatuses, nil
}

// QueryStatus fetches one application's status, returning ok=false if untracked.
func (c *Client) QueryStatus(ctx context.Context, app statusmodel.AppName) (statusmodel.StatusRecord, bool, error) {
	resp, err := c.query(ctx, wire.QueryMessage{QueryType: wire.QueryStatus, AppName: &app})
	if err != nil {
		return statusmodel.StatusRecord{}, false, err
	}
	if resp.AppStatus == nil {
		return statusmodel.StatusRecord{}, false, nil
	}
	return *resp.AppStatus, true, nil
}
