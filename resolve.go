package knot

import (
	"fmt"
	"reflect"
)

// Resolve resolves a service as type T, failing when the token is not
// registered.
func Resolve[T any](provider Provider) (T, error) {
	var zero T

	instance, err := provider.GetRequiredService(TokenOf[T]())
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: TokenOf[T](),
			Actual:   reflect.TypeOf(instance),
			Context:  "resolve",
		}
	}
	return result, nil
}

// MustResolve resolves a service as type T and panics on error.
func MustResolve[T any](provider Provider) T {
	result, err := Resolve[T](provider)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", formatType(TokenOf[T]()), err))
	}
	return result
}

// TryResolve resolves a service as type T, reporting false when the token is
// not registered or resolution fails.
func TryResolve[T any](provider Provider) (T, bool) {
	var zero T

	instance, err := provider.GetService(TokenOf[T]())
	if err != nil || instance == nil {
		return zero, false
	}

	result, ok := instance.(T)
	if !ok {
		return zero, false
	}
	return result, true
}

// ResolveKeyed resolves a keyed service as type T, failing when the token is
// not registered under the key.
func ResolveKeyed[T any](provider Provider, key any) (T, error) {
	var zero T

	instance, err := provider.GetRequiredKeyedService(TokenOf[T](), key)
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: TokenOf[T](),
			Actual:   reflect.TypeOf(instance),
			Context:  "resolve keyed",
		}
	}
	return result, nil
}

// MustResolveKeyed resolves a keyed service as type T and panics on error.
func MustResolveKeyed[T any](provider Provider, key any) T {
	result, err := ResolveKeyed[T](provider, key)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s (key: %v): %v", formatType(TokenOf[T]()), key, err))
	}
	return result
}

// ResolveAll resolves every unkeyed registration for T, in registration
// order.
func ResolveAll[T any](provider Provider) ([]T, error) {
	instances, err := provider.GetServices(TokenOf[T]())
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(instances))
	for _, instance := range instances {
		result, ok := instance.(T)
		if !ok {
			return nil, TypeMismatchError{
				Expected: TokenOf[T](),
				Actual:   reflect.TypeOf(instance),
				Context:  "resolve all",
			}
		}
		results = append(results, result)
	}
	return results, nil
}
