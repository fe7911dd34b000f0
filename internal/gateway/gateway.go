// Package gateway implements the Management gateway (spec §4.7, C12): a
// read-mostly TCP JSON multiplexer over the Aggregator (C9) and the
// credentials store (C4) for the terminal dashboard.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/aggclient"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/credentials"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/initsystem"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/redact"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
)

// RequestType enumerates the management protocol's recognized requests.
type RequestType string

const (
	QuerySystem   RequestType = "QUERYSYSTEM"
	QueryStatus   RequestType = "QUERYSTATUS"
	QueryGitRepo  RequestType = "QUERYGITREPO"
	UpdateGitRepo RequestType = "UPDATEGITREPO"
)

// Request is the inbound JSON object (spec §4.7).
type Request struct {
	RequestType RequestType     `json:"request_type"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// responseStatus is the outer Response.status discriminant.
type responseStatus string

const (
	statusSuccess responseStatus = "Success"
	statusError   responseStatus = "Error"
)

// Response is the outbound JSON object (spec §4.7). Data is itself a
// JSON-encoded string, matching the spec's `data?: string` schema.
type Response struct {
	Status responseStatus `json:"status"`
	Data   *string        `json:"data,omitempty"`
}

// Config wires the paths and dependencies the Gateway needs.
type Config struct {
	Addr         string
	SyncLoopUnit string
	LocalVersion version.Tag
}

// Gateway serves the management TCP endpoint.
type Gateway struct {
	cfg       Config
	agg       *aggclient.Client
	credStore *credentials.Store
	init      *initsystem.Driver
	logger    *obslog.Logger
	metrics   *metrics.Metrics
}

// New constructs a Gateway.
func New(cfg Config, agg *aggclient.Client, credStore *credentials.Store, init *initsystem.Driver, logger *obslog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{cfg: cfg, agg: agg, credStore: credStore, init: init, logger: logger, metrics: m}
}

// ListenAndServe serves each accepted connection in its own goroutine: one
// request, one response, close (spec §6).
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.cfg.Addr)
	if err != nil {
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
				g.logger.WithError(err).Warn("accept failed")
				continue
			}
		}
		go g.handleConn(ctx, conn)
	}
}

func (g *Gateway) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		g.logger.WithError(err).Debug("malformed management request")
		return
	}

	resp := g.dispatch(ctx, req)
	if g.metrics != nil {
		g.metrics.GatewayRequestsTotal.WithLabelValues(string(req.RequestType), string(resp.Status)).Inc()
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		g.logger.WithError(err).Warn("write management response failed")
	}
}

func (g *Gateway) dispatch(ctx context.Context, req Request) Response {
	switch req.RequestType {
	case QuerySystem:
		return g.handleQuerySystem()
	case QueryStatus:
		return g.handleQueryStatus(ctx)
	case QueryGitRepo:
		return g.handleQueryGitRepo(ctx)
	case UpdateGitRepo:
		return g.handleUpdateGitRepo(ctx, req.Data)
	default:
		return errorResponse(fmt.Sprintf("unrecognized request_type %q", req.RequestType))
	}
}

func successResponse(payload any) Response {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return errorResponse(err.Error())
	}
	s := string(encoded)
	return Response{Status: statusSuccess, Data: &s}
}

func errorResponse(message string) Response {
	return Response{Status: statusError, Data: &message}
}

func (g *Gateway) handleQuerySystem() Response {
	stats := map[string]string{}

	if info, err := host.Info(); err == nil {
		stats["hostname"] = info.Hostname
	}

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		stats["cpu"] = fmt.Sprintf("%.2f%%", percentages[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats["ram"] = fmt.Sprintf("%.2f%%", vm.UsedPercent)
	}
	if sm, err := mem.SwapMemory(); err == nil {
		stats["swap"] = fmt.Sprintf("%.2f%%", sm.UsedPercent)
	}

	return successResponse(stats)
}

func (g *Gateway) handleQueryStatus(ctx context.Context) Response {
	statuses, err := g.agg.QueryAllStatuses(ctx)
	if err != nil {
		return errorResponse(err.Error())
	}
	return successResponse(statuses)
}

func (g *Gateway) handleQueryGitRepo(ctx context.Context) Response {
	items, err := g.credStore.Load(ctx)
	if err != nil {
		return errorResponse(err.Error())
	}
	redacted := make(map[string]credentials.RepoAuth, len(items))
	for _, item := range items {
		item.Token = redact.Placeholder
		redacted[item.Repo] = item
	}
	return successResponse(redacted)
}

func (g *Gateway) handleUpdateGitRepo(ctx context.Context, data json.RawMessage) Response {
	var items []credentials.RepoAuth
	if err := json.Unmarshal(data, &items); err != nil {
		return errorResponse("invalid UPDATEGITREPO payload: " + err.Error())
	}
	if err := g.credStore.Save(ctx, items); err != nil {
		return errorResponse(err.Error())
	}

	if g.cfg.SyncLoopUnit != "" {
		if exists, err := g.init.Exists(ctx, g.cfg.SyncLoopUnit); err == nil && exists {
			if _, err := g.init.Restart(ctx, g.cfg.SyncLoopUnit); err != nil {
				g.logger.WithError(err).Warn("sync-loop unit restart after credentials update failed")
			}
		}
	}

	return successResponse(map[string]bool{"updated": true})
}
