package knot

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors. These are wrapped by the typed errors below when more
// context is available; check them with errors.Is.
var (
	ErrServiceTypeNil    = errors.New("service type cannot be nil")
	ErrServiceKeyNil     = errors.New("service key cannot be nil")
	ErrDescriptorNil     = errors.New("descriptor cannot be nil")
	ErrFactoryNil        = errors.New("factory cannot be nil")
	ErrProviderDisposed  = errors.New("provider has been disposed")
	ErrScopeNotInContext = errors.New("scope not found in context")
)

var (
	_ error = LifetimeError{}
	_ error = NotRegisteredError{}
	_ error = InvalidDescriptorError{}
	_ error = ScopeViolationError{}
	_ error = CircularStructuralError{}
	_ error = ValidationError{}
	_ error = ResolutionError{}
	_ error = TypeMismatchError{}
	_ error = ModuleError{}
	_ error = DisposalError{}
)

// LifetimeError indicates an invalid service lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// NotRegisteredError indicates that a token has no registration in the
// provider's registry snapshot.
type NotRegisteredError struct {
	ServiceType reflect.Type
	ServiceKey  any // nil for non-keyed services
}

func (e NotRegisteredError) Error() string {
	if e.ServiceKey != nil {
		return fmt.Sprintf("service not registered: %s (key: %v)", formatType(e.ServiceType), e.ServiceKey)
	}
	return fmt.Sprintf("service not registered: %s", formatType(e.ServiceType))
}

// InvalidDescriptorError indicates a descriptor that cannot be used: it
// declares none (or more than one) of implementation/factory/value, its
// implementation type is not constructible, or its dependency list does not
// fit the implementation's fields.
type InvalidDescriptorError struct {
	ServiceType reflect.Type
	Reason      string
}

func (e InvalidDescriptorError) Error() string {
	return fmt.Sprintf("invalid descriptor for %s: %s", formatType(e.ServiceType), e.Reason)
}

// ScopeViolationError indicates that a Scoped service was requested in a
// position only the root provider could satisfy. Dependency is set when the
// violation was found on a dependency edge rather than on the direct request.
type ScopeViolationError struct {
	ServiceType reflect.Type
	Dependency  reflect.Type
}

func (e ScopeViolationError) Error() string {
	if e.Dependency != nil {
		return fmt.Sprintf("scope violation: %s depends on scoped service %s, which cannot be resolved from the root provider (create a scope first)",
			formatType(e.ServiceType), formatType(e.Dependency))
	}
	return fmt.Sprintf("scope violation: scoped service %s cannot be resolved from the root provider (create a scope first)",
		formatType(e.ServiceType))
}

// CircularStructuralError reports an in-flight implementation descriptor with
// no recorded placeholder. A correctly detected cycle always finds its
// placeholder; this error signals a broken internal invariant, not user error.
type CircularStructuralError struct {
	ServiceType reflect.Type
}

func (e CircularStructuralError) Error() string {
	return fmt.Sprintf("structural error: %s is under construction but has no placeholder instance", formatType(e.ServiceType))
}

// MissingDependency is one unresolved edge found by build-time validation.
type MissingDependency struct {
	Dependent    reflect.Type
	DependentKey any // nil unless the dependent descriptor is keyed
	Dependency   reflect.Type
}

func (m MissingDependency) String() string {
	if m.DependentKey != nil {
		return fmt.Sprintf("%s (key: %v) -> %s", formatType(m.Dependent), m.DependentKey, formatType(m.Dependency))
	}
	return fmt.Sprintf("%s -> %s", formatType(m.Dependent), formatType(m.Dependency))
}

// ValidationError is the aggregated validate-on-build report: every dependency
// edge pointing at an unregistered token, across all descriptors, in one error.
type ValidationError struct {
	Missing []MissingDependency
}

func (e ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed: %d missing dependencies:", len(e.Missing))
	for _, m := range e.Missing {
		b.WriteString("\n  ")
		b.WriteString(m.String())
		b.WriteString(" (not registered)")
	}
	return b.String()
}

// ResolutionError wraps errors that occur while resolving a service, carrying
// the token the caller asked for.
type ResolutionError struct {
	ServiceType reflect.Type
	ServiceKey  any // nil for non-keyed services
	Cause       error
}

func (e ResolutionError) Error() string {
	if e.ServiceKey != nil {
		return fmt.Sprintf("failed to resolve %s (key: %v): %v", formatType(e.ServiceType), e.ServiceKey, e.Cause)
	}
	return fmt.Sprintf("failed to resolve %s: %v", formatType(e.ServiceType), e.Cause)
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a resolved instance did not have the type the
// caller asked for.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates destroy-hook failures from one Close call. Every
// failure is also logged as it happens; disposal never stops early.
type DisposalError struct {
	Context string // "provider" or "scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s disposal failed with %d errors:", e.Context, len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  %d. %v", i+1, err)
	}
	return b.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsNotRegistered reports whether err is (or wraps) a NotRegisteredError.
func IsNotRegistered(err error) bool {
	var nre NotRegisteredError
	return errors.As(err, &nre)
}

// IsScopeViolation reports whether err is (or wraps) a ScopeViolationError.
func IsScopeViolation(err error) bool {
	var sve ScopeViolationError
	return errors.As(err, &sve)
}

// IsDisposed reports whether err indicates use of a disposed provider.
func IsDisposed(err error) bool {
	return errors.Is(err, ErrProviderDisposed)
}

// formatType formats a reflect.Type for error messages and renderings.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
