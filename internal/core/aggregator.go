package core

import (
	"sync"

	"github.com/IvanShishkin/indexscan/pkg/models"
)

// DefaultChannelCapacity is the number of in-flight records a scan buffers
const DefaultChannelCapacity = 1024

// EmitFunc receives records one at a time. Returning an error stops the scan.
type EmitFunc func(*models.FileRecord) error

// ProducerFunc sends records to out and returns when it has nothing more to send.
// It must not close out.
type ProducerFunc func(out chan<- *models.FileRecord) error

// Aggregator funnels records from any number of producers through one bounded
// channel to a single consumer. Producers block while the channel is full.
type Aggregator struct {
	ch   chan *models.FileRecord
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	errOut error // first producer error
}

// NewAggregator creates an aggregator with the given channel capacity.
// Non-positive capacities select DefaultChannelCapacity.
func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	return &Aggregator{
		ch: make(chan *models.FileRecord, capacity),
	}
}

// Capacity returns the hand-off channel capacity
func (a *Aggregator) Capacity() int {
	return cap(a.ch)
}

// Produce starts fn in its own goroutine. All Produce calls must happen before Seal.
func (a *Aggregator) Produce(fn ProducerFunc) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(a.ch); err != nil {
			a.mu.Lock()
			if a.errOut == nil {
				a.errOut = err
			}
			a.mu.Unlock()
		}
	}()
}

// Seal closes the channel once every producer has returned
func (a *Aggregator) Seal() {
	a.once.Do(func() {
		go func() {
			a.wg.Wait()
			close(a.ch)
		}()
	})
}

// Drain hands every record to fn in arrival order until all producers finish.
// After fn fails the remaining records are discarded so producers never block
// forever; the caller is expected to stop them. Drain returns the callback error,
// or else the first producer error.
func (a *Aggregator) Drain(fn EmitFunc) error {
	var emitErr error
	for rec := range a.ch {
		if emitErr != nil {
			continue
		}
		emitErr = fn(rec)
	}
	if emitErr != nil {
		return emitErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errOut
}
