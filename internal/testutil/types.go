// Package testutil provides shared test services, builders, assertions and
// fixtures for exercising the container.
package testutil

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors.
var (
	ErrTest           = errors.New("test error")
	ErrIntentional    = errors.New("intentional error")
	ErrDisposal       = errors.New("disposal error")
	ErrInitialization = errors.New("initialization error")
	ErrAlreadyClosed  = errors.New("already closed")
)

// TestLogger is a test logger interface.
type TestLogger interface {
	Log(msg string)
	Logs() []string
}

// MemoryLogger implements TestLogger. It has no dependencies, so it registers
// as an implementation with an empty dependency list.
type MemoryLogger struct {
	mu   sync.Mutex
	logs []string
}

func (l *MemoryLogger) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *MemoryLogger) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.logs))
	copy(out, l.logs)
	return out
}

// TestDatabase is a test database interface.
type TestDatabase interface {
	Query(sql string) string
	Close() error
}

// StubDatabase implements TestDatabase and carries a destroy hook.
type StubDatabase struct {
	mu       sync.Mutex
	name     string
	closed   bool
	closeErr error
}

// NewStubDatabase creates a named StubDatabase for factory registrations.
func NewStubDatabase(name string) *StubDatabase {
	return &StubDatabase{name: name}
}

// NewFailingDatabase creates a StubDatabase whose destroy hook fails.
func NewFailingDatabase(name string, closeErr error) *StubDatabase {
	return &StubDatabase{name: name, closeErr: closeErr}
}

func (d *StubDatabase) Query(sql string) string {
	return fmt.Sprintf("%s: %s", d.name, sql)
}

func (d *StubDatabase) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrAlreadyClosed
	}
	d.closed = true
	return d.closeErr
}

func (d *StubDatabase) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// TestCache is a test cache interface.
type TestCache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MapCache implements TestCache. Its map is allocated by the initialize hook,
// so it doubles as an Initializer fixture.
type MapCache struct {
	mu          sync.RWMutex
	data        map[string]string
	initialized bool
}

func (c *MapCache) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]string)
	c.initialized = true
	return nil
}

func (c *MapCache) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

func (c *MapCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *MapCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]string)
	}
	c.data[key] = value
}

// ServiceWithDeps depends on the three basic services. Dependencies are
// assigned positionally to its exported fields.
type ServiceWithDeps struct {
	Logger   TestLogger
	Database TestDatabase
	Cache    TestCache
}

// Leaf is a dependency-free service for identity checks. It must stay
// non-zero-sized: all zero-size allocations share one address, which would
// defeat the pointer-identity assertions it exists for.
type Leaf struct{ _ byte }

// Pair holds two edges to the same token, for per-edge transient identity
// checks.
type Pair struct {
	First  *Leaf
	Second *Leaf
}

// CycleA and CycleB form a two-party dependency cycle.
type CycleA struct {
	B *CycleB
}

// CycleB completes the cycle back to CycleA.
type CycleB struct {
	A *CycleA
}

// CycleX, CycleY and CycleZ form a three-party cycle.
type CycleX struct {
	Y *CycleY
}

type CycleY struct {
	Z *CycleZ
}

type CycleZ struct {
	X *CycleX
}

// SelfRef depends on its own token.
type SelfRef struct {
	Self *SelfRef
}

// InitCounter counts initialize-hook invocations.
type InitCounter struct {
	count atomic.Int32
}

func (c *InitCounter) Initialize() error {
	c.count.Add(1)
	return nil
}

func (c *InitCounter) Count() int32 {
	return c.count.Load()
}

// FailingInitializer always fails its initialize hook.
type FailingInitializer struct{}

func (f *FailingInitializer) Initialize() error {
	return ErrInitialization
}

// DisposalRecorder records disposal order across instances.
type DisposalRecorder struct {
	mu    sync.Mutex
	order []string
}

func NewDisposalRecorder() *DisposalRecorder {
	return &DisposalRecorder{}
}

func (r *DisposalRecorder) Record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *DisposalRecorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// TrackedCloser reports its disposal to a recorder. Register through
// factories so the name and recorder are bound at construction.
type TrackedCloser struct {
	name     string
	recorder *DisposalRecorder
	closeErr error
}

func NewTrackedCloser(name string, recorder *DisposalRecorder) *TrackedCloser {
	return &TrackedCloser{name: name, recorder: recorder}
}

func NewFailingCloser(name string, recorder *DisposalRecorder, closeErr error) *TrackedCloser {
	return &TrackedCloser{name: name, recorder: recorder, closeErr: closeErr}
}

func (t *TrackedCloser) Close() error {
	t.recorder.Record(t.name)
	return t.closeErr
}

// TestService is a plain value with an identity, for value registrations.
type TestService struct {
	ID   string
	Data string
}

func NewTestService() *TestService {
	return &TestService{ID: uuid.NewString(), Data: "test"}
}
