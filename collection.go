package knot

import (
	"reflect"
	"sync"
)

// Collection is the mutable service registry. Descriptors are registered with
// their lifetimes and declared dependencies, then built into a Provider.
//
// Registration is explicit: an implementation type, a factory, or a
// precomputed value. Nothing is inferred from argument shape.
//
// Example:
//
//	collection := knot.NewCollection()
//	collection.RegisterImplementation(knot.TokenOf[*Logger](), knot.Singleton)
//	collection.RegisterImplementation(knot.TokenOf[*UserService](), knot.Scoped,
//	    knot.WithDependencies(knot.TokenOf[*Logger]()))
//
//	provider, err := collection.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
type Collection interface {
	// Build creates a Provider from the registered services using default
	// options.
	Build() (Provider, error)

	// BuildWithOptions creates a Provider with custom validation and logging
	// configuration.
	BuildWithOptions(options *ProviderOptions) (Provider, error)

	// AddModules applies one or more module configurations to the collection.
	AddModules(modules ...ModuleOption) error

	// Register validates the descriptor and appends it. Prior registrations
	// under the same token are never overwritten; single-result resolution
	// takes the most recent one.
	Register(descriptor *Descriptor) error

	// RegisterImplementation registers a constructible service. The
	// implementation defaults to the token itself; override it with
	// WithImplementation. Declare dependencies with WithDependencies.
	RegisterImplementation(serviceType reflect.Type, lifetime Lifetime, opts ...RegisterOption) error

	// RegisterFactory registers a service produced by a factory function.
	RegisterFactory(serviceType reflect.Type, lifetime Lifetime, factory Factory, opts ...RegisterOption) error

	// RegisterValue registers a precomputed instance with Singleton lifetime.
	RegisterValue(serviceType reflect.Type, value any, opts ...RegisterOption) error

	// Replace removes every unkeyed registration for the descriptor's token,
	// then registers the descriptor in their place. The descriptor's Lifetime
	// field is ignored: the previously most recent lifetime is preserved,
	// Singleton when the token had no registrations.
	Replace(descriptor *Descriptor) error

	// Remove deletes the token's entire unkeyed descriptor list.
	Remove(serviceType reflect.Type)

	// RemoveKeyed deletes one keyed registration slot.
	RemoveKeyed(serviceType reflect.Type, key any)

	// Contains checks if the token has at least one unkeyed registration.
	Contains(serviceType reflect.Type) bool

	// ContainsKeyed checks if the (token, key) slot has a registration.
	ContainsKeyed(serviceType reflect.Type, key any) bool

	// ToSlice returns all registered descriptors, unkeyed first, both in
	// registration order.
	ToSlice() []*Descriptor

	// Count returns the number of registered descriptors.
	Count() int
}

// collection is the Collection implementation.
type collection struct {
	mu sync.RWMutex

	// services stores unkeyed descriptor lists by token, append order.
	services map[reflect.Type][]*Descriptor

	// keyedServices stores keyed descriptor lists by (token, key) slot.
	keyedServices map[typeKey][]*Descriptor

	// order tracks tokens by first registration, for deterministic iteration.
	// A removed token re-registers at the end.
	order []reflect.Type

	// keyedOrder does the same for keyed slots.
	keyedOrder []typeKey
}

// NewCollection creates a new empty Collection.
func NewCollection() Collection {
	return &collection{
		services:      make(map[reflect.Type][]*Descriptor),
		keyedServices: make(map[typeKey][]*Descriptor),
	}
}

// Build creates a Provider from the registered services using default options.
func (c *collection) Build() (Provider, error) {
	return c.BuildWithOptions(nil)
}

// BuildWithOptions creates a Provider with custom options.
func (c *collection) BuildWithOptions(options *ProviderOptions) (Provider, error) {
	snap := c.snapshot()

	if options != nil && options.ValidateOnBuild {
		if err := snap.validate(); err != nil {
			return nil, err
		}
	}

	return newRootProvider(snap, options), nil
}

// AddModules applies one or more module configurations to the collection.
func (c *collection) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(c); err != nil {
			return err
		}
	}

	return nil
}

// Register validates the descriptor and appends it to the registry.
func (c *collection) Register(descriptor *Descriptor) error {
	if descriptor == nil {
		return ErrDescriptorNil
	}
	if err := descriptor.Validate(); err != nil {
		return err
	}

	// Snapshot the dependency list so later caller mutation cannot skew the
	// registry's view.
	if len(descriptor.Dependencies) > 0 {
		deps := make([]reflect.Type, len(descriptor.Dependencies))
		copy(deps, descriptor.Dependencies)
		descriptor.Dependencies = deps
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if descriptor.Key != nil {
		slot := typeKey{Type: descriptor.ServiceType, Key: descriptor.Key}
		if _, ok := c.keyedServices[slot]; !ok {
			c.keyedOrder = append(c.keyedOrder, slot)
		}
		c.keyedServices[slot] = append(c.keyedServices[slot], descriptor)
		return nil
	}

	if _, ok := c.services[descriptor.ServiceType]; !ok {
		c.order = append(c.order, descriptor.ServiceType)
	}
	c.services[descriptor.ServiceType] = append(c.services[descriptor.ServiceType], descriptor)
	return nil
}

// RegisterImplementation registers a constructible service.
func (c *collection) RegisterImplementation(serviceType reflect.Type, lifetime Lifetime, opts ...RegisterOption) error {
	if serviceType == nil {
		return ErrServiceTypeNil
	}

	options := newRegisterOptions(opts)
	impl := options.implementation
	if impl == nil {
		impl = serviceType
	}

	return c.Register(&Descriptor{
		ServiceType:    serviceType,
		Key:            options.key,
		Lifetime:       lifetime,
		Implementation: impl,
		Dependencies:   options.dependencies,
	})
}

// RegisterFactory registers a service produced by a factory function.
func (c *collection) RegisterFactory(serviceType reflect.Type, lifetime Lifetime, factory Factory, opts ...RegisterOption) error {
	if serviceType == nil {
		return ErrServiceTypeNil
	}
	if factory == nil {
		return ErrFactoryNil
	}

	options := newRegisterOptions(opts)
	return c.Register(&Descriptor{
		ServiceType:  serviceType,
		Key:          options.key,
		Lifetime:     lifetime,
		Factory:      factory,
		Dependencies: options.dependencies,
	})
}

// RegisterValue registers a precomputed instance with Singleton lifetime.
func (c *collection) RegisterValue(serviceType reflect.Type, value any, opts ...RegisterOption) error {
	if serviceType == nil {
		return ErrServiceTypeNil
	}

	options := newRegisterOptions(opts)
	return c.Register(&Descriptor{
		ServiceType: serviceType,
		Key:         options.key,
		Lifetime:    Singleton,
		Value:       value,
	})
}

// Replace swaps the token's unkeyed registrations for the given descriptor,
// preserving the previously most recent lifetime.
func (c *collection) Replace(descriptor *Descriptor) error {
	if descriptor == nil {
		return ErrDescriptorNil
	}
	if descriptor.ServiceType == nil {
		return ErrServiceTypeNil
	}

	c.mu.RLock()
	lifetime := Singleton
	if existing := c.services[descriptor.ServiceType]; len(existing) > 0 {
		lifetime = existing[len(existing)-1].Lifetime
	}
	c.mu.RUnlock()

	descriptor.Lifetime = lifetime
	c.Remove(descriptor.ServiceType)
	return c.Register(descriptor)
}

// Remove deletes the token's entire unkeyed descriptor list.
func (c *collection) Remove(serviceType reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.services[serviceType]; !ok {
		return
	}
	delete(c.services, serviceType)
	for i, t := range c.order {
		if t == serviceType {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// RemoveKeyed deletes one keyed registration slot.
func (c *collection) RemoveKeyed(serviceType reflect.Type, key any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot := typeKey{Type: serviceType, Key: key}
	if _, ok := c.keyedServices[slot]; !ok {
		return
	}
	delete(c.keyedServices, slot)
	for i, s := range c.keyedOrder {
		if s == slot {
			c.keyedOrder = append(c.keyedOrder[:i], c.keyedOrder[i+1:]...)
			break
		}
	}
}

// Contains checks if the token has at least one unkeyed registration.
func (c *collection) Contains(serviceType reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.services[serviceType]) > 0
}

// ContainsKeyed checks if the (token, key) slot has a registration.
func (c *collection) ContainsKeyed(serviceType reflect.Type, key any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.keyedServices[typeKey{Type: serviceType, Key: key}]) > 0
}

// ToSlice returns all registered descriptors in registration order.
func (c *collection) ToSlice() []*Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptors := make([]*Descriptor, 0, c.countLocked())
	for _, t := range c.order {
		descriptors = append(descriptors, c.services[t]...)
	}
	for _, slot := range c.keyedOrder {
		descriptors = append(descriptors, c.keyedServices[slot]...)
	}
	return descriptors
}

// Count returns the number of registered descriptors.
func (c *collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.countLocked()
}

func (c *collection) countLocked() int {
	count := 0
	for _, list := range c.services {
		count += len(list)
	}
	for _, list := range c.keyedServices {
		count += len(list)
	}
	return count
}

// snapshot copies the registry state. Built providers hold the snapshot, so
// later collection mutation never reaches them.
func (c *collection) snapshot() *registrySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := &registrySnapshot{
		services:      make(map[reflect.Type][]*Descriptor, len(c.services)),
		keyedServices: make(map[typeKey][]*Descriptor, len(c.keyedServices)),
		order:         make([]reflect.Type, len(c.order)),
		keyedOrder:    make([]typeKey, len(c.keyedOrder)),
	}
	copy(snap.order, c.order)
	copy(snap.keyedOrder, c.keyedOrder)
	for t, list := range c.services {
		copied := make([]*Descriptor, len(list))
		copy(copied, list)
		snap.services[t] = copied
	}
	for slot, list := range c.keyedServices {
		copied := make([]*Descriptor, len(list))
		copy(copied, list)
		snap.keyedServices[slot] = copied
	}
	return snap
}

// registrySnapshot is the immutable registry view shared by a provider tree.
type registrySnapshot struct {
	services      map[reflect.Type][]*Descriptor
	keyedServices map[typeKey][]*Descriptor
	order         []reflect.Type
	keyedOrder    []typeKey
}

// descriptorFor returns the most recent unkeyed descriptor for the token.
func (s *registrySnapshot) descriptorFor(serviceType reflect.Type) *Descriptor {
	list := s.services[serviceType]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// keyedDescriptorFor returns the most recent descriptor in the keyed slot.
func (s *registrySnapshot) keyedDescriptorFor(serviceType reflect.Type, key any) *Descriptor {
	list := s.keyedServices[typeKey{Type: serviceType, Key: key}]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// dependenciesOf returns every dependency edge declared for the token across
// all of its unkeyed descriptors, concatenated in registration order. Graph
// analysis works on this view.
func (s *registrySnapshot) dependenciesOf(serviceType reflect.Type) []reflect.Type {
	list := s.services[serviceType]
	if len(list) == 0 {
		return nil
	}
	var deps []reflect.Type
	for _, d := range list {
		deps = append(deps, d.Dependencies...)
	}
	return deps
}

func (s *registrySnapshot) registered(serviceType reflect.Type) bool {
	return len(s.services[serviceType]) > 0
}
