package knot

import (
	"fmt"
	"reflect"
)

// constructionPlan is the precomputed field wiring for an implementation
// descriptor: which exported field of the struct receives each declared
// dependency. Computed once at validation and carried on the descriptor.
type constructionPlan struct {
	structType reflect.Type
	fieldIndex []int // fieldIndex[i] is the struct field receiving dependency i
}

// planConstruction maps the declared dependencies, positionally, onto the
// exported fields of the implementation struct. Dependency i goes to the i-th
// exported field; the field type must be assignable from the dependency token.
// Extra exported fields beyond the dependency list are left at their zero
// values.
func planConstruction(impl reflect.Type, deps []reflect.Type) (*constructionPlan, error) {
	structType := impl.Elem()

	var exported []int
	for i := 0; i < structType.NumField(); i++ {
		if structType.Field(i).IsExported() {
			exported = append(exported, i)
		}
	}

	if len(deps) > len(exported) {
		return nil, fmt.Errorf("implementation %s declares %d dependencies but has only %d exported fields",
			formatType(impl), len(deps), len(exported))
	}

	plan := &constructionPlan{
		structType: structType,
		fieldIndex: exported[:len(deps)],
	}
	for i, dep := range deps {
		field := structType.Field(plan.fieldIndex[i])
		if !dep.AssignableTo(field.Type) {
			return nil, fmt.Errorf("dependency %d (%s) is not assignable to field %s %s of %s",
				i, formatType(dep), field.Name, formatType(field.Type), formatType(impl))
		}
	}
	return plan, nil
}

// newPlaceholder allocates the zero-valued instance that stands in for a
// service while its dependency cycle is under construction. Holders of the
// returned pointer observe the genuine fields once construction transfers
// them.
func newPlaceholder(plan *constructionPlan) reflect.Value {
	return reflect.New(plan.structType)
}

// buildInstance constructs a fresh instance of the planned struct with the
// resolved dependencies assigned to its fields.
func buildInstance(plan *constructionPlan, resolved []any) (reflect.Value, error) {
	fresh := reflect.New(plan.structType)
	elem := fresh.Elem()
	for i, dep := range resolved {
		if dep == nil {
			continue
		}
		fv := elem.Field(plan.fieldIndex[i])
		rv := reflect.ValueOf(dep)
		if !rv.Type().AssignableTo(fv.Type()) {
			return reflect.Value{}, TypeMismatchError{
				Expected: fv.Type(),
				Actual:   rv.Type(),
				Context:  fmt.Sprintf("assigning dependency %d of %s", i, formatType(plan.structType)),
			}
		}
		fv.Set(rv)
	}
	return fresh, nil
}

// transferFields copies the genuine instance onto the placeholder in place.
// The fresh value is discarded by the caller; the placeholder is the canonical
// instance from here on.
func transferFields(placeholder, fresh reflect.Value) {
	placeholder.Elem().Set(fresh.Elem())
}
