package aggregator

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/wire"
)

// SocketMode is the permission bits applied to the aggregator socket after
// bind (spec §4.4: readable/writable by the artisan group, not world).
const SocketMode = 0o660

// ExitFunc terminates the process; overridable in tests.
type ExitFunc func(code int)

// Server accepts connections on a local stream socket and speaks the
// StatusUpdate/Query/Acknowledgment protocol against a Registry.
type Server struct {
	registry   *Registry
	socketPath string
	logger     *obslog.Logger
	metrics    *metrics.Metrics
	exit       ExitFunc

	connSeq atomic.Uint64
}

// NewServer constructs a Server. exit defaults to os.Exit when nil.
func NewServer(registry *Registry, socketPath string, logger *obslog.Logger, m *metrics.Metrics, exit ExitFunc) *Server {
	if exit == nil {
		exit = os.Exit
	}
	return &Server{registry: registry, socketPath: socketPath, logger: logger, metrics: m, exit: exit}
}

// ListenAndServe binds the socket, fixes its permissions, and serves
// connections until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.socketPath, SocketMode); err != nil {
		ln.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.WithError(err).Warn("accept failed")
				continue
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	connID := s.connSeq.Add(1)
	log := s.logger.WithFields(logrus.Fields{"conn_id": connID})

	payload, err := wire.ReadFrame(conn)
	if err != nil {
		log.WithError(err).Debug("read frame failed")
		return
	}
	var msg wire.GeneralMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.WithError(err).Warn("malformed envelope")
		return
	}

	if msg.MsgType == wire.MsgAcknowledgment {
		s.onProtocolViolation(log)
		return
	}

	if !version.CompatibleStrings(msg.Version, s.registry.LocalVersion().String()) {
		log.WithField("peer_version", msg.Version).Warn("incompatible version, dropping connection")
		return
	}

	switch msg.MsgType {
	case wire.MsgStatusUpdate:
		s.handleStatusUpdate(ctx, conn, msg)
	case wire.MsgQuery:
		s.handleQuery(ctx, conn, msg)
	default:
		log.WithField("msg_type", string(msg.MsgType)).Warn("unrecognized message type")
	}
}

func (s *Server) handleStatusUpdate(ctx context.Context, conn net.Conn, msg wire.GeneralMessage) {
	var record statusmodel.StatusRecord
	if err := json.Unmarshal(msg.Payload, &record); err != nil {
		return
	}
	s.registry.Update(ctx, record)

	resp, err := wire.NewGeneralMessage(s.registry.LocalVersion().String(), wire.MsgAcknowledgment,
		wire.AcknowledgmentPayload{MessageReceived: true})
	if err != nil {
		return
	}
	_ = wire.EncodeFrame(conn, resp)
}

func (s *Server) handleQuery(ctx context.Context, conn net.Conn, msg wire.GeneralMessage) {
	var q wire.QueryMessage
	if err := json.Unmarshal(msg.Payload, &q); err != nil {
		return
	}

	var resp wire.QueryResponse
	resp.Version = s.registry.LocalVersion().String()

	switch q.QueryType {
	case wire.QueryStatus:
		if q.AppName == nil {
			return
		}
		if record, ok := s.registry.QueryOne(ctx, *q.AppName); ok {
			resp.AppStatus = &record
		}
	case wire.QueryAllStatuses:
		resp.AllStatuses = s.registry.QueryAll(ctx)
	default:
		return
	}

	out, err := wire.NewGeneralMessage(resp.Version, wire.MsgQuery, resp)
	if err != nil {
		return
	}
	_ = wire.EncodeFrame(conn, out)
}

// onProtocolViolation handles an inbound Acknowledgment (spec §4.4): only
// the Aggregator ever sends those, so receiving one means a peer is not
// speaking the protocol. The connection is dropped, an operator is
// notified, and the daemon terminates so it can be restarted clean.
func (s *Server) onProtocolViolation(log *logrus.Entry) {
	log.Warn(ErrProtocolViolation.Error())
	if s.registry.notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.registry.notifier.Notify(ctx, "Protocol violation", ErrProtocolViolation.Error())
	}
	s.exit(2)
}
