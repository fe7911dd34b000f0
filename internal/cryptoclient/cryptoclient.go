// Package cryptoclient is the client for the encrypt/decrypt oracle (spec
// §1: "An encrypt/decrypt service accessed over a local stream socket; the
// core treats it as a black-box Encrypt/Decrypt oracle"). It satisfies both
// credentials.Oracle and notify.Encryptor, reusing the same length-prefixed
// JSON framing the Aggregator protocol uses (spec §4.1).
package cryptoclient

import (
	"context"
	"net"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/wire"
)

// DefaultDialTimeout bounds connecting to the oracle socket.
const DefaultDialTimeout = 5 * time.Second

type request struct {
	Op   string `json:"op"`
	Data []byte `json:"data"`
}

type response struct {
	Data  []byte  `json:"data,omitempty"`
	Error *string `json:"error,omitempty"`
}

// Client dials the oracle socket once per call (spec §5: no pipelining,
// one request/response per connection).
type Client struct {
	socketPath  string
	dialTimeout time.Duration
}

// New constructs a Client against the oracle's socket path.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath, dialTimeout: DefaultDialTimeout}
}

func (c *Client) call(ctx context.Context, op string, data []byte) ([]byte, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindExternalTool, "dial crypto oracle", err)
	}
	defer conn.Close()

	if err := wire.EncodeFrame(conn, request{Op: op, Data: data}); err != nil {
		return nil, ferrors.Wrap(ferrors.KindExternalTool, "write crypto oracle request", err)
	}

	var resp response
	if err := wire.DecodeFrame(conn, &resp); err != nil {
		return nil, ferrors.Wrap(ferrors.KindExternalTool, "read crypto oracle response", err)
	}
	if resp.Error != nil {
		return nil, ferrors.New(ferrors.KindExternalTool, "crypto oracle: "+*resp.Error)
	}
	return resp.Data, nil
}

// Encrypt satisfies credentials.Oracle and notify.Encryptor.
func (c *Client) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return c.call(ctx, "encrypt", plaintext)
}

// Decrypt satisfies credentials.Oracle.
func (c *Client) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return c.call(ctx, "decrypt", ciphertext)
}
