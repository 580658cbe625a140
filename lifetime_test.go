package knot_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/knotwork/knot"
)

func TestLifetime(t *testing.T) {
	t.Run("constants", func(t *testing.T) {
		// Verify constant values
		if knot.Singleton != 0 {
			t.Errorf("Singleton should be 0, got %d", knot.Singleton)
		}
		if knot.Scoped != 1 {
			t.Errorf("Scoped should be 1, got %d", knot.Scoped)
		}
		if knot.Transient != 2 {
			t.Errorf("Transient should be 2, got %d", knot.Transient)
		}
	})

	t.Run("String", func(t *testing.T) {
		tests := []struct {
			lifetime knot.Lifetime
			expected string
		}{
			{knot.Singleton, "Singleton"},
			{knot.Scoped, "Scoped"},
			{knot.Transient, "Transient"},
			{knot.Lifetime(999), "Unknown(999)"},
			{knot.Lifetime(-1), "Unknown(-1)"},
		}

		for _, tt := range tests {
			if got := tt.lifetime.String(); got != tt.expected {
				t.Errorf("lifetime %d: expected %q, got %q", tt.lifetime, tt.expected, got)
			}
		}
	})

	t.Run("IsValid", func(t *testing.T) {
		tests := []struct {
			lifetime knot.Lifetime
			valid    bool
		}{
			{knot.Singleton, true},
			{knot.Scoped, true},
			{knot.Transient, true},
			{knot.Lifetime(-1), false},
			{knot.Lifetime(3), false},
			{knot.Lifetime(999), false},
		}

		for _, tt := range tests {
			if got := tt.lifetime.IsValid(); got != tt.valid {
				t.Errorf("lifetime %d: expected IsValid=%v, got %v", tt.lifetime, tt.valid, got)
			}
		}
	})
}

func TestLifetime_Marshaling(t *testing.T) {
	t.Run("MarshalText", func(t *testing.T) {
		tests := []struct {
			lifetime knot.Lifetime
			expected string
		}{
			{knot.Singleton, "Singleton"},
			{knot.Scoped, "Scoped"},
			{knot.Transient, "Transient"},
		}

		for _, tt := range tests {
			data, err := tt.lifetime.MarshalText()
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("lifetime %s: expected %q, got %q", tt.lifetime, tt.expected, string(data))
			}
		}
	})

	t.Run("UnmarshalText", func(t *testing.T) {
		tests := []struct {
			text     string
			expected knot.Lifetime
			wantErr  bool
		}{
			{"Singleton", knot.Singleton, false},
			{"singleton", knot.Singleton, false},
			{"Scoped", knot.Scoped, false},
			{"scoped", knot.Scoped, false},
			{"Transient", knot.Transient, false},
			{"transient", knot.Transient, false},
			{"Invalid", knot.Lifetime(0), true},
			{"SINGLETON", knot.Lifetime(0), true},
			{"", knot.Lifetime(0), true},
		}

		for _, tt := range tests {
			var lifetime knot.Lifetime
			err := lifetime.UnmarshalText([]byte(tt.text))

			if tt.wantErr {
				if err == nil {
					t.Errorf("text %q: expected error, got nil", tt.text)
				}
				var lifetimeErr knot.LifetimeError
				if !errors.As(err, &lifetimeErr) {
					t.Errorf("text %q: expected LifetimeError, got %T", tt.text, err)
				}
				continue
			}

			if err != nil {
				t.Errorf("text %q: unexpected error: %v", tt.text, err)
			}
			if lifetime != tt.expected {
				t.Errorf("text %q: expected %v, got %v", tt.text, tt.expected, lifetime)
			}
		}
	})

	t.Run("JSON roundtrip", func(t *testing.T) {
		type testStruct struct {
			Lifetime knot.Lifetime `json:"lifetime"`
		}

		for _, lifetime := range []knot.Lifetime{knot.Singleton, knot.Scoped, knot.Transient} {
			original := testStruct{Lifetime: lifetime}

			data, err := json.Marshal(original)
			if err != nil {
				t.Errorf("failed to marshal %v: %v", lifetime, err)
				continue
			}

			var decoded testStruct
			err = json.Unmarshal(data, &decoded)
			if err != nil {
				t.Errorf("failed to unmarshal %v: %v", lifetime, err)
				continue
			}

			if decoded.Lifetime != original.Lifetime {
				t.Errorf("roundtrip failed: expected %v, got %v", original.Lifetime, decoded.Lifetime)
			}
		}
	})

	t.Run("UnmarshalJSON rejects non-string", func(t *testing.T) {
		var lifetime knot.Lifetime
		if err := lifetime.UnmarshalJSON([]byte(`42`)); err == nil {
			t.Error("expected error for numeric JSON value, got nil")
		}
	})
}
