package testutil

import (
	"log/slog"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knotwork/knot"
)

// CollectionBuilder provides a fluent interface for building test
// collections. Registration failures fail the test immediately.
type CollectionBuilder struct {
	t          *testing.T
	collection knot.Collection
}

// NewCollectionBuilder creates a new CollectionBuilder.
func NewCollectionBuilder(t *testing.T) *CollectionBuilder {
	return &CollectionBuilder{
		t:          t,
		collection: knot.NewCollection(),
	}
}

// WithImplementation registers a constructible service.
func (b *CollectionBuilder) WithImplementation(serviceType reflect.Type, lifetime knot.Lifetime, opts ...knot.RegisterOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.RegisterImplementation(serviceType, lifetime, opts...))
	return b
}

// WithFactory registers a factory-produced service.
func (b *CollectionBuilder) WithFactory(serviceType reflect.Type, lifetime knot.Lifetime, factory knot.Factory, opts ...knot.RegisterOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.RegisterFactory(serviceType, lifetime, factory, opts...))
	return b
}

// WithValue registers a precomputed instance.
func (b *CollectionBuilder) WithValue(serviceType reflect.Type, value any, opts ...knot.RegisterOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.RegisterValue(serviceType, value, opts...))
	return b
}

// WithDescriptor registers a raw descriptor.
func (b *CollectionBuilder) WithDescriptor(descriptor *knot.Descriptor) *CollectionBuilder {
	require.NoError(b.t, b.collection.Register(descriptor))
	return b
}

// WithModule applies a module to the collection.
func (b *CollectionBuilder) WithModule(module knot.ModuleOption) *CollectionBuilder {
	require.NoError(b.t, b.collection.AddModules(module))
	return b
}

// Collection returns the built collection.
func (b *CollectionBuilder) Collection() knot.Collection {
	return b.collection
}

// BuildProvider builds a Provider from the collection and closes it when the
// test finishes.
func (b *CollectionBuilder) BuildProvider(opts ...*knot.ProviderOptions) knot.Provider {
	var options *knot.ProviderOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	provider, err := b.collection.BuildWithOptions(options)
	require.NoError(b.t, err, "failed to build provider")

	b.t.Cleanup(func() {
		if !provider.IsDisposed() {
			require.NoError(b.t, provider.Close())
		}
	})
	return provider
}

// ProviderBuilder builds test providers with specific options.
type ProviderBuilder struct {
	t          *testing.T
	collection knot.Collection
	options    *knot.ProviderOptions
}

// NewProviderBuilder creates a new ProviderBuilder.
func NewProviderBuilder(t *testing.T) *ProviderBuilder {
	return &ProviderBuilder{
		t:          t,
		collection: knot.NewCollection(),
		options:    &knot.ProviderOptions{},
	}
}

// WithCollection sets the collection to build from.
func (b *ProviderBuilder) WithCollection(collection knot.Collection) *ProviderBuilder {
	b.collection = collection
	return b
}

// WithValidation enables build-time dependency validation.
func (b *ProviderBuilder) WithValidation() *ProviderBuilder {
	b.options.ValidateOnBuild = true
	return b
}

// WithScopeValidation enables scope-violation checks.
func (b *ProviderBuilder) WithScopeValidation() *ProviderBuilder {
	b.options.ValidateScopes = true
	return b
}

// WithLogger routes disposal diagnostics to the given logger.
func (b *ProviderBuilder) WithLogger(logger *slog.Logger) *ProviderBuilder {
	b.options.Logger = logger
	return b
}

// Build creates the Provider, closing it when the test finishes.
func (b *ProviderBuilder) Build() (knot.Provider, error) {
	provider, err := b.collection.BuildWithOptions(b.options)
	if err != nil {
		return nil, err
	}

	b.t.Cleanup(func() {
		if !provider.IsDisposed() {
			require.NoError(b.t, provider.Close())
		}
	})
	return provider, nil
}

// MustBuild creates the Provider and fails the test on error.
func (b *ProviderBuilder) MustBuild() knot.Provider {
	provider, err := b.Build()
	require.NoError(b.t, err, "failed to build provider")
	return provider
}
