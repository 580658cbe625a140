package knot

import (
	"log/slog"
	"reflect"
)

// RegisterOption configures a single registration.
type RegisterOption interface {
	applyRegisterOption(*registerOptions)
}

// registerOptions holds registration configuration.
type registerOptions struct {
	key            any
	dependencies   []reflect.Type
	implementation reflect.Type
}

// registerOptionFunc adapts a function to RegisterOption.
type registerOptionFunc func(*registerOptions)

func (f registerOptionFunc) applyRegisterOption(opts *registerOptions) {
	f(opts)
}

// WithKey registers the service under a key. Keyed registrations live in
// their own index and are resolved with GetKeyedService.
func WithKey(key any) RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.key = key
	})
}

// WithDependencies declares the dependency tokens of the registration, in
// order. For an implementation they are assigned positionally to its exported
// fields; for a factory they feed graph analysis and build-time validation.
func WithDependencies(deps ...reflect.Type) RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.dependencies = append(opts.dependencies, deps...)
	})
}

// WithImplementation sets the concrete pointer-to-struct type constructed for
// the token. Without it, RegisterImplementation uses the token itself.
func WithImplementation(impl reflect.Type) RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.implementation = impl
	})
}

func newRegisterOptions(opts []RegisterOption) *registerOptions {
	options := &registerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyRegisterOption(options)
		}
	}
	return options
}

// ProviderOptions configures the provider produced by BuildWithOptions.
type ProviderOptions struct {
	// ValidateScopes enables runtime scope validation: resolving a Scoped
	// service from the root provider fails, directly or through a dependency
	// edge, before any construction state is committed.
	ValidateScopes bool

	// ValidateOnBuild walks every descriptor's dependency list (keyed
	// descriptors included) at build time and reports every dependency token
	// with no registration, aggregated into a single ValidationError.
	ValidateOnBuild bool

	// Logger receives disposal diagnostics: destroy-hook failures are logged
	// and disposal continues. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o *ProviderOptions) logger() *slog.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
