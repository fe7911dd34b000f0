// Package aggregator implements the Aggregator (spec §4.4, C9): a
// single-writer in-memory status registry reachable over a local stream
// socket. The registry is owned by a single goroutine that serializes every
// mutation and read through a request channel (spec §9's suggested
// redesign), which makes "single writer" and "timeout-bounded acquisition"
// structural rather than a matter of lock discipline.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/metrics"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
)

// Notifier is the subset of notify.Notifier the Aggregator depends on.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// WriterLockTimeout is the acquisition timeout writers (StatusUpdate, Sweep)
// apply before dropping an update silently (spec §4.4 step 1).
const WriterLockTimeout = 2 * time.Second

// TimeoutThreshold is how stale a record must be before the sweeper marks it TimedOut.
const TimeoutThreshold = 60 * time.Second

type request struct {
	fn   func(reg map[statusmodel.AppName]statusmodel.StatusRecord)
	done chan struct{}
}

// Registry is the single-writer status registry.
type Registry struct {
	localVersion version.Tag
	machineID    string
	notifier     Notifier
	logger       *obslog.Logger
	metrics      *metrics.Metrics

	requests chan request
	reg      map[statusmodel.AppName]statusmodel.StatusRecord
}

// New constructs a Registry without starting its owner goroutine. Callers
// must call Run in a goroutine to process requests; New alone only allocates.
func New(localVersion version.Tag, machineID string, notifier Notifier, logger *obslog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		localVersion: localVersion,
		machineID:    machineID,
		notifier:     notifier,
		logger:       logger,
		metrics:      m,
		requests:     make(chan request),
		reg:          make(map[statusmodel.AppName]statusmodel.StatusRecord),
	}
}

// Run is the owner loop: the only goroutine that ever touches r.reg
// directly. It exits when ctx is done.
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.requests:
			req.fn(r.reg)
			close(req.done)
		}
	}
}

// submit sends a request to the owner loop, honoring ctx as the acquisition
// timeout. Returns false if the request was not accepted in time.
func (r *Registry) submit(ctx context.Context, fn func(map[statusmodel.AppName]statusmodel.StatusRecord)) bool {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case r.requests <- req:
	case <-ctx.Done():
		return false
	}
	select {
	case <-req.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Update applies the registry-update algorithm (spec §4.4) for one
// StatusUpdate. On a writer-lock timeout the update is dropped silently; the
// caller (the socket server) still sends the client its Acknowledgment.
func (r *Registry) Update(ctx context.Context, record statusmodel.StatusRecord) {
	timeoutCtx, cancel := context.WithTimeout(ctx, WriterLockTimeout)
	defer cancel()

	var notifySubject, notifyBody string
	shouldNotify := false

	accepted := r.submit(timeoutCtx, func(reg map[statusmodel.AppName]statusmodel.StatusRecord) {
		existing, ok := reg[record.App]
		switch {
		case !ok:
			reg[record.App] = record
			r.logger.WithFields(nil).WithField("app", record.App.String()).Info("new application registered")
			if r.metrics != nil {
				r.metrics.StatusUpdatesTotal.WithLabelValues(record.App.String(), "inserted").Inc()
			}
		case existing.Status == record.Status:
			existing.WallSeconds = record.WallSeconds
			reg[record.App] = existing
			if r.metrics != nil {
				r.metrics.StatusUpdatesTotal.WithLabelValues(record.App.String(), "refreshed").Inc()
			}
		default:
			reg[record.App] = record
			shouldNotify = true
			notifySubject = fmt.Sprintf("Machine update: %s", r.machineID)
			notifyBody = fmt.Sprintf("The application %s has changed to %s", record.App, record.Status)
			if r.metrics != nil {
				r.metrics.StatusUpdatesTotal.WithLabelValues(record.App.String(), "transitioned").Inc()
			}
		}
		if r.metrics != nil {
			r.metrics.RegistrySize.Set(float64(len(reg)))
		}
	})

	if !accepted {
		r.logger.WithFields(nil).Warn("writer lock acquisition timed out, update dropped")
		if r.metrics != nil {
			r.metrics.WriterLockTimeoutTotal.Inc()
		}
		return
	}

	if shouldNotify && r.notifier != nil {
		// Fire-and-forget: never let notifier backpressure block the
		// registry mutation that already completed.
		go r.notifyBestEffort(notifySubject, notifyBody)
	}
}

func (r *Registry) notifyBestEffort(subject, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	outcome := "sent"
	if err := r.notifier.Notify(ctx, subject, body); err != nil {
		r.logger.WithError(err).Warn("notification failed")
		outcome = "failed"
	}
	if r.metrics != nil {
		r.metrics.NotificationsTotal.WithLabelValues("status_change", outcome).Inc()
	}
}

// QueryOne returns a snapshot of one app's record, or ok=false if absent.
func (r *Registry) QueryOne(ctx context.Context, app statusmodel.AppName) (statusmodel.StatusRecord, bool) {
	var result statusmodel.StatusRecord
	var found bool
	r.submit(ctx, func(reg map[statusmodel.AppName]statusmodel.StatusRecord) {
		result, found = reg[app]
	})
	return result, found
}

// QueryAll returns a full snapshot copy of the registry; readers never
// observe partial mutations since the copy happens inside the owner loop.
func (r *Registry) QueryAll(ctx context.Context) map[statusmodel.AppName]statusmodel.StatusRecord {
	snapshot := make(map[statusmodel.AppName]statusmodel.StatusRecord)
	r.submit(ctx, func(reg map[statusmodel.AppName]statusmodel.StatusRecord) {
		for k, v := range reg {
			snapshot[k] = v
		}
	})
	return snapshot
}

// LocalVersion returns the Aggregator's own VersionTag.
func (r *Registry) LocalVersion() version.Tag { return r.localVersion }

// Sweep runs one timeout-sweep pass (spec §4.4 Timeout sweeper): entries
// stale by more than TimeoutThreshold are marked TimedOut, refreshed, and
// notified. An already-TimedOut entry that is fresh enough is left alone,
// making the sweep idempotent.
func (r *Registry) Sweep(ctx context.Context, now time.Time) {
	timeoutCtx, cancel := context.WithTimeout(ctx, WriterLockTimeout)
	defer cancel()

	var toNotify []statusmodel.AppName

	accepted := r.submit(timeoutCtx, func(reg map[statusmodel.AppName]statusmodel.StatusRecord) {
		for app, record := range reg {
			age := now.Sub(time.Unix(int64(record.WallSeconds), 0))
			if age > TimeoutThreshold {
				record.Status = statusmodel.TimedOut
				record.WallSeconds = uint64(now.Unix())
				reg[app] = record
				toNotify = append(toNotify, app)
			}
		}
	})

	if !accepted {
		if r.metrics != nil {
			r.metrics.WriterLockTimeoutTotal.Inc()
		}
		return
	}

	if r.metrics != nil {
		r.metrics.SweepRunsTotal.Inc()
		r.metrics.SweepTimeoutsTotal.Add(float64(len(toNotify)))
	}

	for _, app := range toNotify {
		go r.notifyBestEffort("Application timed out",
			fmt.Sprintf("Application timed out on host %s: %s", r.machineID, app))
	}
}

// ErrProtocolViolation marks an inbound Acknowledgment, which the Aggregator
// treats as a fatal protocol breach (spec §4.4).
var ErrProtocolViolation = ferrors.New(ferrors.KindProtocolViolation, "connection dropped non-standard communication")
