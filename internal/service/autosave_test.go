package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/metrics"
)

// gatedSaver blocks each save until released so tests can queue work
// behind an in-flight save.
type gatedSaver struct {
	mu      sync.Mutex
	saved   []domain.CustomerRecord
	err     error
	started chan struct{}
	release chan struct{}
}

func newGatedSaver() *gatedSaver {
	return &gatedSaver{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gatedSaver) SaveCustomer(_ context.Context, _ string, r domain.CustomerRecord) error {
	g.started <- struct{}{}
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, r)
	return g.err
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomeCounter) ObserveAutosave(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[outcome]++
}

func (o *outcomeCounter) get(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[outcome]
}

func TestAutosaverNewerRecordSupersedesQueued(t *testing.T) {
	saver := newGatedSaver()
	obs := &outcomeCounter{}
	a := NewAutosaver(saver, obs, slog.Default())

	a.Enqueue("u1", domain.CustomerRecord{Name: "Smith", Timestamp: 1})
	<-saver.started

	a.Enqueue("u1", domain.CustomerRecord{Name: "Smith", Timestamp: 2})
	a.Enqueue("u1", domain.CustomerRecord{Name: "Smith", Timestamp: 3})

	close(saver.release)
	a.Close()

	require.Len(t, saver.saved, 2)
	assert.Equal(t, int64(1), saver.saved[0].Timestamp)
	assert.Equal(t, int64(3), saver.saved[1].Timestamp)
	assert.Equal(t, 1, obs.get(metrics.AutosaveSuperseded))
	assert.Equal(t, 2, obs.get(metrics.AutosaveSaved))
}

func TestAutosaverSwallowsFailures(t *testing.T) {
	saver := newGatedSaver()
	saver.err = errors.New("store down")
	close(saver.release)
	obs := &outcomeCounter{}
	a := NewAutosaver(saver, obs, slog.Default())

	a.Enqueue("u1", domain.CustomerRecord{Name: "Smith"})
	a.Close()

	assert.Equal(t, 1, obs.get(metrics.AutosaveFailed))
	assert.Zero(t, obs.get(metrics.AutosaveSaved))
}

func TestAutosaverIgnoresUnnamedAndClosed(t *testing.T) {
	saver := newGatedSaver()
	close(saver.release)
	a := NewAutosaver(saver, nil, slog.Default())

	assert.False(t, a.Enqueue("u1", domain.CustomerRecord{Name: ""}))
	a.Close()
	assert.False(t, a.Enqueue("u1", domain.CustomerRecord{Name: "Smith"}))
	a.Close()

	assert.Empty(t, saver.saved)
}

func TestAutosaverKeepsUsersSeparate(t *testing.T) {
	saver := newGatedSaver()
	close(saver.release)
	a := NewAutosaver(saver, nil, slog.Default())

	assert.True(t, a.Enqueue("u1", domain.CustomerRecord{Name: "Smith"}))
	assert.True(t, a.Enqueue("u2", domain.CustomerRecord{Name: "Jones"}))
	a.Close()

	names := []string{}
	for _, r := range saver.saved {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"Smith", "Jones"}, names)
}

func TestAutosaverWritesThroughAccountService(t *testing.T) {
	svc, _ := newTestAccountService(t)
	a := NewAutosaver(svc, nil, slog.Default())

	a.Enqueue("u1", domain.CustomerRecord{Name: "Smith", Timestamp: 5})
	a.Close()

	list := svc.ListCustomers(context.Background(), "u1")
	require.Len(t, list, 1)
	assert.Equal(t, int64(5), list[0].Timestamp)
}
