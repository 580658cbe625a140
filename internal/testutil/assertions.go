package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knotwork/knot"
)

// AssertResolvable resolves a service of type T and fails the test when
// resolution fails or yields nil.
func AssertResolvable[T any](t *testing.T, provider knot.Provider) T {
	t.Helper()
	service, err := knot.Resolve[T](provider)
	require.NoError(t, err, "failed to resolve service of type %T", *new(T))
	require.NotNil(t, service, "resolved service is nil")
	return service
}

// AssertKeyedResolvable resolves a keyed service of type T.
func AssertKeyedResolvable[T any](t *testing.T, provider knot.Provider, key any) T {
	t.Helper()
	service, err := knot.ResolveKeyed[T](provider, key)
	require.NoError(t, err, "failed to resolve keyed service of type %T with key %v", *new(T), key)
	require.NotNil(t, service, "resolved keyed service is nil")
	return service
}

// AssertNotRegistered checks that resolving T fails with a not-registered
// error.
func AssertNotRegistered[T any](t *testing.T, provider knot.Provider) {
	t.Helper()
	_, err := knot.Resolve[T](provider)
	assert.Error(t, err)
	assert.True(t, knot.IsNotRegistered(err), "expected not-registered error, got: %v", err)
}

// AssertKeyedNotRegistered checks that resolving T under the key fails with a
// not-registered error.
func AssertKeyedNotRegistered[T any](t *testing.T, provider knot.Provider, key any) {
	t.Helper()
	_, err := knot.ResolveKeyed[T](provider, key)
	assert.Error(t, err)
	assert.True(t, knot.IsNotRegistered(err), "expected not-registered error, got: %v", err)
}

// AssertSameInstance verifies two services are the same instance.
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two services are different instances.
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertDisposedError checks that an error indicates a disposed provider.
func AssertDisposedError(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, knot.IsDisposed(err), "expected disposed error, got: %v", err)
}

// AssertScopeViolation checks that an error is a scope violation.
func AssertScopeViolation(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, knot.IsScopeViolation(err), "expected scope violation, got: %v", err)
}

// AssertErrorType checks that an error is of a specific type and returns it.
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertProviderDead checks that every operation on a disposed provider fails
// with the disposed error.
func AssertProviderDead(t *testing.T, provider knot.Provider) {
	t.Helper()
	assert.True(t, provider.IsDisposed(), "provider should be disposed")

	token := knot.TokenOf[*TestService]()

	_, err := provider.GetService(token)
	assert.ErrorIs(t, err, knot.ErrProviderDisposed)

	_, err = provider.GetRequiredService(token)
	assert.ErrorIs(t, err, knot.ErrProviderDisposed)

	_, err = provider.GetServices(token)
	assert.ErrorIs(t, err, knot.ErrProviderDisposed)

	_, err = provider.GetKeyedService(token, "key")
	assert.ErrorIs(t, err, knot.ErrProviderDisposed)

	_, err = provider.CreateScope()
	assert.ErrorIs(t, err, knot.ErrProviderDisposed)

	_, err = provider.GetDependencyTree(token)
	assert.ErrorIs(t, err, knot.ErrProviderDisposed)

	_, err = provider.GetCircularDependencies()
	assert.ErrorIs(t, err, knot.ErrProviderDisposed)

	assert.False(t, provider.IsService(token))
}

// RequireNoError fails the test immediately on error.
func RequireNoError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, err, msgAndArgs...)
}

// RequireError fails the test immediately when err is nil.
func RequireError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
}
