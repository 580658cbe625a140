package knot

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/knotwork/knot/internal/graph"
)

// Provider resolves services from an immutable registry snapshot. A Provider
// is safe for concurrent use. The root provider owns the singleton cache;
// scopes created from it own their scoped caches.
type Provider interface {
	// GetService resolves the most recent unkeyed registration for the
	// token. It returns nil with no error when the token is not registered;
	// construction failures are returned as errors.
	GetService(serviceType reflect.Type) (any, error)

	// GetRequiredService is GetService, except an unregistered token is an
	// error.
	GetRequiredService(serviceType reflect.Type) (any, error)

	// GetServices resolves every unkeyed registration for the token, in
	// registration order. An unregistered token yields an empty slice.
	GetServices(serviceType reflect.Type) ([]any, error)

	// GetKeyedService resolves the most recent registration for the token
	// under the key. It returns nil with no error when absent.
	GetKeyedService(serviceType reflect.Type, key any) (any, error)

	// GetRequiredKeyedService is GetKeyedService, except an unregistered
	// token/key pair is an error.
	GetRequiredKeyedService(serviceType reflect.Type, key any) (any, error)

	// IsService reports whether the token has an unkeyed registration. It
	// never constructs anything.
	IsService(serviceType reflect.Type) bool

	// IsKeyedService reports whether the token is registered under the key.
	IsKeyedService(serviceType reflect.Type, key any) bool

	// CreateScope creates a child provider sharing the same registry
	// snapshot. Scoped services resolved through the child are cached on the
	// child and disposed with it.
	CreateScope() (Scope, error)

	// GetDependencyTree expands the declared dependency tree for the token
	// without constructing anything. Cycles and unregistered tokens are
	// reported as marked nodes, not errors.
	GetDependencyTree(serviceType reflect.Type) (*TreeNode, error)

	// GetCircularDependencies finds every dependency cycle in the registry.
	GetCircularDependencies() ([]Cycle, error)

	// VisualizeDependencyTree renders GetDependencyTree as indented text.
	VisualizeDependencyTree(serviceType reflect.Type) (string, error)

	// VisualizeCircularDependencies renders GetCircularDependencies as a
	// numbered list.
	VisualizeCircularDependencies() (string, error)

	// ID returns the unique identifier of this provider instance.
	ID() string

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool

	// Close disposes the provider: child scopes first, then the destroy
	// hooks of the instances cached by this provider, in reverse creation
	// order. Close is idempotent. After Close every operation fails with
	// ErrProviderDisposed.
	Close() error
}

// Scope is a child provider. Disposing a scope disposes only the instances it
// cached itself; singletons live until the root is disposed.
type Scope interface {
	Provider

	// Parent returns the provider this scope was created from, or nil for
	// the root.
	Parent() Provider

	// IsRoot reports whether this provider is the root of the tree.
	IsRoot() bool
}

// Graph analysis result types, re-exported from the analyzer.
type (
	TreeNode   = graph.TreeNode
	Cycle      = graph.Cycle
	NodeStatus = graph.NodeStatus
)

// Node statuses in a dependency tree.
const (
	StatusOK            = graph.StatusOK
	StatusCircular      = graph.StatusCircular
	StatusNotRegistered = graph.StatusNotRegistered
)

// provider is the concrete Provider and Scope implementation. One struct
// serves both roles: the root has no parent, a scope has one. Singleton state
// always routes to root; scoped state stays on the instance itself.
type provider struct {
	id       string
	options  *ProviderOptions
	snapshot *registrySnapshot
	parent   *provider
	root     *provider

	mu          sync.Mutex
	instances   map[*Descriptor]any
	partials    map[*Descriptor]inflightEntry
	disposables []any
	scopes      []*provider

	disposed atomic.Bool
}

var _ Scope = (*provider)(nil)

func newRootProvider(snapshot *registrySnapshot, options *ProviderOptions) *provider {
	if options == nil {
		options = &ProviderOptions{}
	}

	p := &provider{
		id:        uuid.NewString(),
		options:   options,
		snapshot:  snapshot,
		instances: make(map[*Descriptor]any),
		partials:  make(map[*Descriptor]inflightEntry),
	}
	p.root = p
	return p
}

// ID returns the unique identifier of this provider instance.
func (p *provider) ID() string {
	return p.id
}

// IsDisposed reports whether Close has been called.
func (p *provider) IsDisposed() bool {
	return p.disposed.Load()
}

// Parent returns the provider this scope was created from, or nil for the root.
func (p *provider) Parent() Provider {
	if p.parent == nil {
		return nil
	}
	return p.parent
}

// IsRoot reports whether this provider is the root of the tree.
func (p *provider) IsRoot() bool {
	return p.parent == nil
}

// GetService resolves the most recent unkeyed registration for the token,
// returning nil with no error when the token is not registered.
func (p *provider) GetService(serviceType reflect.Type) (any, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}
	if !p.snapshot.registered(serviceType) {
		return nil, nil
	}
	return p.resolveToken(serviceType, nil)
}

// GetRequiredService resolves the most recent unkeyed registration for the
// token, failing when the token is not registered.
func (p *provider) GetRequiredService(serviceType reflect.Type) (any, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}
	return p.resolveToken(serviceType, nil)
}

// GetServices resolves every unkeyed registration for the token, in
// registration order.
func (p *provider) GetServices(serviceType reflect.Type) ([]any, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}

	descriptors := p.snapshot.services[serviceType]
	instances := make([]any, 0, len(descriptors))
	for _, d := range descriptors {
		instance, err := p.resolveDescriptor(d, nil)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// GetKeyedService resolves the most recent registration for the token under
// the key, returning nil with no error when absent.
func (p *provider) GetKeyedService(serviceType reflect.Type, key any) (any, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}
	if key == nil {
		return nil, ErrServiceKeyNil
	}
	if p.snapshot.keyedDescriptorFor(serviceType, key) == nil {
		return nil, nil
	}
	return p.resolveKeyedToken(serviceType, key, nil)
}

// GetRequiredKeyedService resolves the most recent registration for the token
// under the key, failing when absent.
func (p *provider) GetRequiredKeyedService(serviceType reflect.Type, key any) (any, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}
	if key == nil {
		return nil, ErrServiceKeyNil
	}
	return p.resolveKeyedToken(serviceType, key, nil)
}

// IsService reports whether the token has an unkeyed registration.
func (p *provider) IsService(serviceType reflect.Type) bool {
	if p.disposed.Load() || serviceType == nil {
		return false
	}
	return p.snapshot.registered(serviceType)
}

// IsKeyedService reports whether the token is registered under the key.
func (p *provider) IsKeyedService(serviceType reflect.Type, key any) bool {
	if p.disposed.Load() || serviceType == nil || key == nil {
		return false
	}
	return p.snapshot.keyedDescriptorFor(serviceType, key) != nil
}

// CreateScope creates a child provider sharing the same registry snapshot.
func (p *provider) CreateScope() (Scope, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}

	child := &provider{
		id:        uuid.NewString(),
		options:   p.options,
		snapshot:  p.snapshot,
		parent:    p,
		root:      p.root,
		instances: make(map[*Descriptor]any),
		partials:  make(map[*Descriptor]inflightEntry),
	}

	p.mu.Lock()
	if p.disposed.Load() {
		p.mu.Unlock()
		return nil, ErrProviderDisposed
	}
	p.scopes = append(p.scopes, child)
	p.mu.Unlock()

	return child, nil
}

// GetDependencyTree expands the declared dependency tree for the token.
func (p *provider) GetDependencyTree(serviceType reflect.Type) (*TreeNode, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}
	if serviceType == nil {
		return nil, ErrServiceTypeNil
	}
	return graph.BuildTree(p.source(), serviceType), nil
}

// GetCircularDependencies finds every dependency cycle in the registry.
func (p *provider) GetCircularDependencies() ([]Cycle, error) {
	if p.disposed.Load() {
		return nil, ErrProviderDisposed
	}
	return graph.FindCycles(p.source()), nil
}

// VisualizeDependencyTree renders the dependency tree as indented text.
func (p *provider) VisualizeDependencyTree(serviceType reflect.Type) (string, error) {
	node, err := p.GetDependencyTree(serviceType)
	if err != nil {
		return "", err
	}
	return graph.SprintTree(node), nil
}

// VisualizeCircularDependencies renders discovered cycles as a numbered list.
func (p *provider) VisualizeCircularDependencies() (string, error) {
	cycles, err := p.GetCircularDependencies()
	if err != nil {
		return "", err
	}
	return graph.SprintCycles(cycles), nil
}

// Close disposes the provider. Child scopes close first, then the destroy
// hooks of this provider's own cached instances run in reverse creation
// order. A failing hook is logged and does not stop the others; all failures
// come back in a DisposalError.
func (p *provider) Close() error {
	if !p.disposed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	scopes := p.scopes
	p.scopes = nil
	disposables := p.disposables
	p.disposables = nil
	p.instances = make(map[*Descriptor]any)
	p.mu.Unlock()

	var errs []error
	for _, s := range scopes {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scope %s: %w", s.ID(), err))
		}
	}
	errs = append(errs, disposeAll(disposables, p.options.logger())...)

	if len(errs) > 0 {
		context := "provider"
		if p.parent != nil {
			context = "scope"
		}
		return DisposalError{Context: context, Errors: errs}
	}
	return nil
}

// source adapts the registry snapshot to the graph analyzer's view.
func (p *provider) source() graph.Source {
	return snapshotSource{snapshot: p.snapshot}
}

type snapshotSource struct {
	snapshot *registrySnapshot
}

func (s snapshotSource) Tokens() []reflect.Type {
	return s.snapshot.order
}

func (s snapshotSource) Dependencies(token reflect.Type) []reflect.Type {
	return s.snapshot.dependenciesOf(token)
}

func (s snapshotSource) Registered(token reflect.Type) bool {
	return s.snapshot.registered(token)
}
