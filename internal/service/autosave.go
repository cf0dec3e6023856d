package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/measureiq/internal/customer"
	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/metrics"
)

const defaultAutosaveTimeout = 15 * time.Second

type customerSaver interface {
	SaveCustomer(ctx context.Context, userID string, record domain.CustomerRecord) error
}

type autosaveObserver interface {
	ObserveAutosave(outcome string)
}

// Autosaver writes customer records in the background. It keeps at most one
// pending record per user; a newer record replaces one still waiting. Saves
// run one at a time and failures are logged and dropped.
type Autosaver struct {
	saver   customerSaver
	obs     autosaveObserver
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]domain.CustomerRecord
	queue   []string
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewAutosaver(saver customerSaver, obs autosaveObserver, logger *slog.Logger) *Autosaver {
	a := &Autosaver{
		saver:   saver,
		obs:     obs,
		logger:  logger,
		timeout: defaultAutosaveTimeout,
		pending: make(map[string]domain.CustomerRecord),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Enqueue schedules record for saving and returns immediately. It reports
// whether the record was queued; records without a customer name are not.
// A queued record is not yet written.
func (a *Autosaver) Enqueue(userID string, record domain.CustomerRecord) bool {
	if !customer.ValidName(record.Name) {
		return false
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	if _, ok := a.pending[userID]; ok {
		a.observe(metrics.AutosaveSuperseded)
	} else {
		a.queue = append(a.queue, userID)
	}
	a.pending[userID] = record
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return true
}

// Close saves whatever is still pending and stops the worker.
func (a *Autosaver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	a.mu.Unlock()
	close(a.stop)
	<-a.done
}

func (a *Autosaver) run() {
	defer close(a.done)
	for {
		select {
		case <-a.wake:
			a.drain()
		case <-a.stop:
			a.drain()
			return
		}
	}
}

func (a *Autosaver) drain() {
	for {
		userID, record, ok := a.next()
		if !ok {
			return
		}
		a.save(userID, record)
	}
}

func (a *Autosaver) next() (string, domain.CustomerRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		return "", domain.CustomerRecord{}, false
	}
	userID := a.queue[0]
	a.queue = a.queue[1:]
	record := a.pending[userID]
	delete(a.pending, userID)
	return userID, record, true
}

func (a *Autosaver) save(userID string, record domain.CustomerRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.saver.SaveCustomer(ctx, userID, record); err != nil {
		a.logger.Warn("autosave failed", "user_id", userID, "customer", record.Name, "error", err)
		a.observe(metrics.AutosaveFailed)
		return
	}
	a.logger.Debug("autosaved", "user_id", userID, "customer", record.Name)
	a.observe(metrics.AutosaveSaved)
}

func (a *Autosaver) observe(outcome string) {
	if a.obs != nil {
		a.obs.ObserveAutosave(outcome)
	}
}
