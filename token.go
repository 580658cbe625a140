package knot

import "reflect"

// TokenOf returns the token for T without constructing a value of it. Use a
// pointer type parameter for struct services and the bare interface for
// interface services:
//
//	knot.TokenOf[*Database]()
//	knot.TokenOf[Logger]()
func TokenOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeKey identifies one keyed registration slot.
type typeKey struct {
	Type reflect.Type
	Key  any
}
