package knot

import (
	"encoding/json"
	"fmt"
)

// Lifetime specifies how instances produced for a descriptor are cached.
// The lifetime determines which provider owns the instance and when it is
// created and disposed.
type Lifetime int

const (
	// Singleton specifies that a single instance of the service will be created.
	// The instance is created on first request, cached at the root provider, and
	// shared by every scope in the tree.
	Singleton Lifetime = iota

	// Scoped specifies that a new instance of the service will be created for
	// each scope. In web applications this typically means one instance per
	// HTTP request. Scoped instances are disposed when their scope is disposed.
	Scoped

	// Transient specifies that a new instance of the service is created for
	// every top-level resolution call. Transient instances are never cached and
	// never disposed by the container.
	Transient
)

// String returns the string representation of the Lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("Unknown(%d)", int(l))
	}
}

// IsValid checks if the lifetime is one of the three defined values.
func (l Lifetime) IsValid() bool {
	return l >= Singleton && l <= Transient
}

// MarshalText implements encoding.TextMarshaler.
func (l Lifetime) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lifetime) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*l = Singleton
	case "Scoped", "scoped":
		*l = Scoped
	case "Transient", "transient":
		*l = Transient
	default:
		return LifetimeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Lifetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}
