package knot

import (
	"reflect"
	"sync"
)

// inflightEntry marks a descriptor under construction at a tier. The partial
// instance is the placeholder handed to re-entrant resolutions so a dependency
// cycle closes on the object the cache will ultimately hold.
type inflightEntry struct {
	partial    reflect.Value
	hasPartial bool
}

// transientFrame is one link in the dependency path of an in-progress
// transient construction. Frames form a chain down the resolution path, so a
// cyclic transient chain observes its own placeholder while sibling edges to
// the same token construct fresh instances.
type transientFrame struct {
	descriptor *Descriptor
	partial    reflect.Value
	parent     *transientFrame
}

// lookup returns the placeholder recorded for d on this path, if any.
func (f *transientFrame) lookup(d *Descriptor) (reflect.Value, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		if cur.descriptor == d {
			return cur.partial, true
		}
	}
	return reflect.Value{}, false
}

// resolveToken resolves the most recent unkeyed descriptor for the token.
func (p *provider) resolveToken(serviceType reflect.Type, frame *transientFrame) (any, error) {
	d := p.snapshot.descriptorFor(serviceType)
	if d == nil {
		return nil, NotRegisteredError{ServiceType: serviceType}
	}
	return p.resolveDescriptor(d, frame)
}

// resolveKeyedToken resolves the most recent keyed descriptor for the token.
func (p *provider) resolveKeyedToken(serviceType reflect.Type, key any, frame *transientFrame) (any, error) {
	d := p.snapshot.keyedDescriptorFor(serviceType, key)
	if d == nil {
		return nil, NotRegisteredError{ServiceType: serviceType, ServiceKey: key}
	}
	return p.resolveDescriptor(d, frame)
}

// resolveDescriptor routes a descriptor to the tier that owns its instance:
// the root for singletons, the calling provider otherwise. Dependencies
// resolve from the owning tier, so a singleton can never capture state from
// the scope that happened to request it first.
func (p *provider) resolveDescriptor(d *Descriptor, frame *transientFrame) (any, error) {
	if d.Lifetime == Scoped && p.options.ValidateScopes && p.IsRoot() {
		return nil, ScopeViolationError{ServiceType: d.ServiceType}
	}

	tier := p
	if d.Lifetime == Singleton {
		tier = p.root
	}

	switch d.kind {
	case kindValue:
		return tier.resolveValue(d)
	case kindFactory:
		return tier.resolveFactory(d)
	default:
		return tier.resolveImplementation(d, frame)
	}
}

// resolveValue returns the registered instance, caching it at the tier on
// first resolution. Value descriptors are always singletons.
func (p *provider) resolveValue(d *Descriptor) (any, error) {
	p.mu.Lock()
	if instance, ok := p.instances[d]; ok {
		p.mu.Unlock()
		return instance, nil
	}
	p.mu.Unlock()

	if err := runInitializer(d.Value); err != nil {
		return nil, ResolutionError{ServiceType: d.ServiceType, ServiceKey: d.Key, Cause: err}
	}
	return p.commit(d, d.Value)
}

// resolveFactory invokes the registered factory. Factories never record
// placeholders: a factory that re-enters resolution of its own token recurses
// normally, and bounding that recursion is the registrant's responsibility.
func (p *provider) resolveFactory(d *Descriptor) (any, error) {
	p.mu.Lock()
	if instance, ok := p.instances[d]; ok {
		p.mu.Unlock()
		return instance, nil
	}
	p.mu.Unlock()

	if err := p.checkDependencyScopes(d); err != nil {
		return nil, err
	}

	instance, err := d.Factory(p)
	if err != nil {
		return nil, ResolutionError{ServiceType: d.ServiceType, ServiceKey: d.Key, Cause: err}
	}
	if instance != nil {
		if actual := reflect.TypeOf(instance); !satisfiesToken(actual, d.ServiceType) {
			return nil, TypeMismatchError{Expected: d.ServiceType, Actual: actual, Context: "factory result"}
		}
	}

	if err := runInitializer(instance); err != nil {
		return nil, ResolutionError{ServiceType: d.ServiceType, ServiceKey: d.Key, Cause: err}
	}

	if d.Lifetime == Transient {
		return instance, nil
	}
	return p.commit(d, instance)
}

// resolveImplementation runs the circular construction protocol: record a
// placeholder before touching any dependency, resolve the dependency list,
// construct the genuine instance, then transfer its fields onto the
// placeholder so every holder observes the populated object.
func (p *provider) resolveImplementation(d *Descriptor, frame *transientFrame) (any, error) {
	if d.Lifetime == Transient {
		if partial, ok := frame.lookup(d); ok {
			return partial.Interface(), nil
		}
		if err := p.checkDependencyScopes(d); err != nil {
			return nil, err
		}

		placeholder := newPlaceholder(d.plan)
		next := &transientFrame{descriptor: d, partial: placeholder, parent: frame}
		return p.construct(d, placeholder, next)
	}

	p.mu.Lock()
	if instance, ok := p.instances[d]; ok {
		p.mu.Unlock()
		return instance, nil
	}
	if entry, ok := p.partials[d]; ok {
		p.mu.Unlock()
		if !entry.hasPartial {
			return nil, CircularStructuralError{ServiceType: d.ServiceType}
		}
		return entry.partial.Interface(), nil
	}
	if err := p.checkDependencyScopes(d); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	placeholder := newPlaceholder(d.plan)
	p.partials[d] = inflightEntry{partial: placeholder, hasPartial: true}
	p.mu.Unlock()

	instance, err := p.construct(d, placeholder, frame)
	if err != nil {
		p.mu.Lock()
		delete(p.partials, d)
		p.mu.Unlock()
		return nil, err
	}
	return p.commit(d, instance)
}

// construct resolves the dependency list concurrently, builds the genuine
// instance, rewrites the placeholder in place and runs the initialize hook.
// Nothing is cached here; a failure leaves no trace beyond the placeholder
// references already handed to cycle participants.
func (p *provider) construct(d *Descriptor, placeholder reflect.Value, frame *transientFrame) (any, error) {
	resolved, err := p.resolveDependencies(d, frame)
	if err != nil {
		return nil, err
	}

	fresh, err := buildInstance(d.plan, resolved)
	if err != nil {
		return nil, err
	}
	transferFields(placeholder, fresh)
	instance := placeholder.Interface()

	if err := runInitializer(instance); err != nil {
		return nil, ResolutionError{ServiceType: d.ServiceType, ServiceKey: d.Key, Cause: err}
	}
	return instance, nil
}

// resolveDependencies resolves every declared dependency from this tier.
// Resolution proceeds concurrently and completion order is unspecified, but
// construction never proceeds until all have resolved; the first failure
// aborts the construction.
func (p *provider) resolveDependencies(d *Descriptor, frame *transientFrame) ([]any, error) {
	if len(d.Dependencies) == 0 {
		return nil, nil
	}

	resolved := make([]any, len(d.Dependencies))
	errs := make([]error, len(d.Dependencies))

	var wg sync.WaitGroup
	for i, dep := range d.Dependencies {
		wg.Add(1)
		go func(i int, dep reflect.Type) {
			defer wg.Done()
			resolved[i], errs[i] = p.resolveToken(dep, frame)
		}(i, dep)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// checkDependencyScopes rejects scoped dependencies before any placeholder or
// cache state for the outer descriptor is committed, when this tier is the
// root and scope validation is enabled. A scoped instance cached at the root
// would outlive every scope it was meant to be bound to.
func (p *provider) checkDependencyScopes(d *Descriptor) error {
	if !p.options.ValidateScopes || !p.IsRoot() {
		return nil
	}
	for _, dep := range d.Dependencies {
		if dd := p.snapshot.descriptorFor(dep); dd != nil && dd.Lifetime == Scoped {
			return ScopeViolationError{ServiceType: d.ServiceType, Dependency: dep}
		}
	}
	return nil
}

// commit caches the instance at this tier and registers its destroy hook.
// The first commit for a descriptor wins; a later instance losing the race is
// orphaned, so its destroy hook runs immediately. Committing into a disposed
// provider fails rather than leak an untracked instance.
func (p *provider) commit(d *Descriptor, instance any) (any, error) {
	p.mu.Lock()
	if p.disposed.Load() {
		delete(p.partials, d)
		p.mu.Unlock()
		closeQuietly(instance, p.options.logger())
		return nil, ErrProviderDisposed
	}
	if existing, ok := p.instances[d]; ok {
		delete(p.partials, d)
		p.mu.Unlock()
		if d.kind == kindFactory {
			closeQuietly(instance, p.options.logger())
		}
		return existing, nil
	}
	p.instances[d] = instance
	delete(p.partials, d)
	if _, ok := instance.(Disposable); ok {
		p.disposables = append(p.disposables, instance)
	}
	p.mu.Unlock()
	return instance, nil
}

// runInitializer invokes the initialize hook when the instance exposes one.
func runInitializer(instance any) error {
	if init, ok := instance.(Initializer); ok {
		return init.Initialize()
	}
	return nil
}
