// Package notify implements the Notifier (spec §4.3, C3): a fire-and-forget
// encrypted side channel to a bulk-mailer relay. The relay, the mailer
// protocol, and the encrypted-envelope transport are external collaborators
// (spec §1); this package only calls the black-box Encrypt oracle and writes
// the resulting ciphertext to the relay's TCP endpoint.
package notify

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
)

// Encryptor is the black-box Encrypt oracle, normally backed by a request to
// the local encrypt/decrypt service over its own stream socket (spec §1).
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
}

// Config configures a Notifier's relay endpoint and write timeout.
type Config struct {
	RelayAddr    string
	WriteTimeout time.Duration
}

// DefaultWriteTimeout is the recommended bounded write timeout (spec §4.3).
const DefaultWriteTimeout = 5 * time.Second

// Notifier sends subject/body notifications to the mailer relay.
type Notifier struct {
	encryptor Encryptor
	cfg       Config
	dial      func(network, address string) (net.Conn, error)
}

// New constructs a Notifier against the given Encryptor and relay config.
func New(encryptor Encryptor, cfg Config) *Notifier {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Notifier{encryptor: encryptor, cfg: cfg, dial: net.Dial}
}

// Notify forms "subject-=-body", encrypts it via the oracle, and writes the
// ciphertext to the relay over TCP. It is fire-and-forget: the relay's reply,
// if any, is never read.
func (n *Notifier) Notify(ctx context.Context, subject, body string) error {
	if subject == "" || body == "" {
		return ferrors.New(ferrors.KindProtocolViolation, "InvalidEmail: subject and body must be non-empty")
	}

	plaintext := []byte(subject + "-=-" + body)
	ciphertext, err := n.encryptor.Encrypt(ctx, plaintext)
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "NotifyFailed: encrypt", err)
	}

	conn, err := n.dial("tcp", n.cfg.RelayAddr)
	if err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "NotifyFailed: dial relay", err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(n.cfg.WriteTimeout)); err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "NotifyFailed: set deadline", err)
	}
	if _, err := conn.Write(ciphertext); err != nil {
		return ferrors.Wrap(ferrors.KindExternalTool, "NotifyFailed: write", err)
	}
	return nil
}

// Subjectf is a convenience for building a notification subject.
func Subjectf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
