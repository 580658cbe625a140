package knot

import "reflect"

// ModuleOption represents a registration action within a module.
type ModuleOption func(Collection) error

// NewModule creates a new module with the given name and builders. Modules
// group related registrations so an application can be assembled from parts.
//
// Example:
//
//	var StorageModule = knot.NewModule("storage",
//	    knot.RegisterImplementation(knot.TokenOf[*Database](), knot.Singleton),
//	    knot.RegisterImplementation(knot.TokenOf[*UserRepository](), knot.Scoped,
//	        knot.WithDependencies(knot.TokenOf[*Database]())),
//	)
//
//	var AppModule = knot.NewModule("app",
//	    StorageModule,
//	    knot.RegisterValue(knot.TokenOf[*Config](), cfg),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(c Collection) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// RegisterImplementation creates a ModuleOption registering a constructible
// service.
func RegisterImplementation(serviceType reflect.Type, lifetime Lifetime, opts ...RegisterOption) ModuleOption {
	return func(c Collection) error {
		return c.RegisterImplementation(serviceType, lifetime, opts...)
	}
}

// RegisterFactory creates a ModuleOption registering a factory-produced
// service.
func RegisterFactory(serviceType reflect.Type, lifetime Lifetime, factory Factory, opts ...RegisterOption) ModuleOption {
	return func(c Collection) error {
		return c.RegisterFactory(serviceType, lifetime, factory, opts...)
	}
}

// RegisterValue creates a ModuleOption registering a precomputed instance.
func RegisterValue(serviceType reflect.Type, value any, opts ...RegisterOption) ModuleOption {
	return func(c Collection) error {
		return c.RegisterValue(serviceType, value, opts...)
	}
}
