package chrono

import (
	"sync"
	"time"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in UTC.
	Now() time.Time
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct{}

// NewStandardImpl is the constructor of StandardImpl.
func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

// samples and opening hours are all kept in UTC, mixing in the host's
// local zone causes windows to shift depending on where the service runs.
func (StandardImpl) Now() time.Time {
	return time.Now().UTC()
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mutex   sync.Mutex
	current time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{current: start.UTC()}
}

func (f *Fake) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.current
}

func (f *Fake) Set(t time.Time) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.current = t.UTC()
}

func (f *Fake) Advance(d time.Duration) time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.current = f.current.Add(d)
	return f.current
}
