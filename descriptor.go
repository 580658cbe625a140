package knot

import (
	"fmt"
	"reflect"
)

// Factory produces a service instance using the given provider. The provider
// passed in is the one that owns the instance being constructed: the root for
// Singleton descriptors, the resolving scope otherwise. A factory may resolve
// further services through it, including re-entering its own token; guarding
// against unbounded recursion there is the registrant's responsibility.
type Factory func(Provider) (any, error)

// descriptorKind discriminates the three registration shapes.
type descriptorKind int

const (
	kindImplementation descriptorKind = iota
	kindFactory
	kindValue
)

func (k descriptorKind) String() string {
	switch k {
	case kindImplementation:
		return "implementation"
	case kindFactory:
		return "factory"
	case kindValue:
		return "value"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Descriptor describes one service registration: a token, a lifetime, exactly
// one of implementation/factory/value, and the declared dependency tokens.
//
// Descriptor identity is the *Descriptor pointer. Every resolver cache, stack
// and partial map is keyed by it, so a token re-registered after removal
// resolves independently of any instance cached for the old registration.
type Descriptor struct {
	// ServiceType is the token this descriptor is registered under. It may be
	// an interface type or a pointer-to-struct type.
	ServiceType reflect.Type

	// Key is optional, for keyed services. Must be comparable.
	Key any

	// Lifetime determines which provider caches the produced instance.
	Lifetime Lifetime

	// Implementation is the concrete pointer-to-struct type to construct.
	// When the token itself is a pointer-to-struct it may serve as its own
	// implementation. Exactly one of Implementation/Factory/Value is set.
	Implementation reflect.Type

	// Factory produces the instance when set.
	Factory Factory

	// Value is a precomputed instance when set.
	Value any

	// Dependencies are the declared dependency tokens, in order. For an
	// implementation they are assigned positionally to its exported fields.
	// For a factory they are declarative, feeding graph analysis and
	// build-time validation only.
	Dependencies []reflect.Type

	kind descriptorKind
	plan *constructionPlan // computed at validation for implementations
}

// Validate checks the descriptor and normalizes its internal state. It is
// called on every path into a Collection, so a descriptor held by a registry
// snapshot is always valid.
func (d *Descriptor) Validate() error {
	if d == nil {
		return ErrDescriptorNil
	}
	if d.ServiceType == nil {
		return ErrServiceTypeNil
	}
	if !d.Lifetime.IsValid() {
		return LifetimeError{Value: d.Lifetime}
	}
	if d.Key != nil && !reflect.TypeOf(d.Key).Comparable() {
		return InvalidDescriptorError{ServiceType: d.ServiceType, Reason: fmt.Sprintf("key type %T is not comparable", d.Key)}
	}

	set := 0
	if d.Implementation != nil {
		set++
		d.kind = kindImplementation
	}
	if d.Factory != nil {
		set++
		d.kind = kindFactory
	}
	if d.Value != nil {
		set++
		d.kind = kindValue
	}
	switch set {
	case 0:
		return InvalidDescriptorError{ServiceType: d.ServiceType, Reason: "declares none of implementation, factory, or value"}
	case 1:
	default:
		return InvalidDescriptorError{ServiceType: d.ServiceType, Reason: "declares more than one of implementation, factory, and value"}
	}

	for i, dep := range d.Dependencies {
		if dep == nil {
			return InvalidDescriptorError{ServiceType: d.ServiceType, Reason: fmt.Sprintf("dependency %d is nil", i)}
		}
	}

	switch d.kind {
	case kindImplementation:
		return d.validateImplementation()
	case kindFactory:
		return nil
	case kindValue:
		return d.validateValue()
	}
	return nil
}

func (d *Descriptor) validateImplementation() error {
	impl := d.Implementation
	if impl.Kind() != reflect.Pointer || impl.Elem().Kind() != reflect.Struct {
		return InvalidDescriptorError{
			ServiceType: d.ServiceType,
			Reason:      fmt.Sprintf("implementation %s is not a pointer to struct", formatType(impl)),
		}
	}
	if !satisfiesToken(impl, d.ServiceType) {
		return InvalidDescriptorError{
			ServiceType: d.ServiceType,
			Reason:      fmt.Sprintf("implementation %s does not satisfy the token", formatType(impl)),
		}
	}

	plan, err := planConstruction(impl, d.Dependencies)
	if err != nil {
		return InvalidDescriptorError{ServiceType: d.ServiceType, Reason: err.Error()}
	}
	d.plan = plan
	return nil
}

func (d *Descriptor) validateValue() error {
	if len(d.Dependencies) > 0 {
		return InvalidDescriptorError{ServiceType: d.ServiceType, Reason: "value descriptors cannot declare dependencies"}
	}
	if !satisfiesToken(reflect.TypeOf(d.Value), d.ServiceType) {
		return InvalidDescriptorError{
			ServiceType: d.ServiceType,
			Reason:      fmt.Sprintf("value of type %s does not satisfy the token", formatType(reflect.TypeOf(d.Value))),
		}
	}
	return nil
}

// satisfiesToken reports whether a concrete type can be handed out under the
// given token.
func satisfiesToken(concrete, token reflect.Type) bool {
	if concrete == nil || token == nil {
		return false
	}
	if token.Kind() == reflect.Interface {
		return concrete.Implements(token)
	}
	return concrete.AssignableTo(token)
}
