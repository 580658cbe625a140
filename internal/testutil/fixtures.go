package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knotwork/knot"
)

// Fixture is one registerable test service configuration.
type Fixture struct {
	Name     string
	Register func(knot.Collection) error
}

// CommonFixtures provides common service configurations for testing.
var CommonFixtures = struct {
	Logger   Fixture
	Database Fixture
	Cache    Fixture
	Service  Fixture
	Keyed    func(key any) Fixture
}{
	Logger: Fixture{
		Name: "Logger",
		Register: func(c knot.Collection) error {
			return c.RegisterImplementation(knot.TokenOf[TestLogger](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*MemoryLogger]()))
		},
	},
	Database: Fixture{
		Name: "Database",
		Register: func(c knot.Collection) error {
			return c.RegisterFactory(knot.TokenOf[TestDatabase](), knot.Singleton,
				func(knot.Provider) (any, error) { return NewStubDatabase("testdb"), nil })
		},
	},
	Cache: Fixture{
		Name: "Cache",
		Register: func(c knot.Collection) error {
			return c.RegisterImplementation(knot.TokenOf[TestCache](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*MapCache]()))
		},
	},
	Service: Fixture{
		Name: "Service",
		Register: func(c knot.Collection) error {
			return c.RegisterImplementation(knot.TokenOf[*ServiceWithDeps](), knot.Scoped,
				knot.WithDependencies(
					knot.TokenOf[TestLogger](),
					knot.TokenOf[TestDatabase](),
					knot.TokenOf[TestCache](),
				))
		},
	},
	Keyed: func(key any) Fixture {
		return Fixture{
			Name: "KeyedDatabase",
			Register: func(c knot.Collection) error {
				return c.RegisterFactory(knot.TokenOf[TestDatabase](), knot.Singleton,
					func(knot.Provider) (any, error) { return NewStubDatabase("keyed"), nil },
					knot.WithKey(key))
			},
		}
	},
}

// BuildFixture registers a fixture on a collection.
func BuildFixture(t *testing.T, collection knot.Collection, fixture Fixture) {
	t.Helper()
	if err := fixture.Register(collection); err != nil {
		t.Fatalf("failed to register %s: %v", fixture.Name, err)
	}
}

// SetupBasicServices registers the logger, database and cache fixtures.
func SetupBasicServices(t *testing.T, collection knot.Collection) {
	t.Helper()
	BuildFixture(t, collection, CommonFixtures.Logger)
	BuildFixture(t, collection, CommonFixtures.Database)
	BuildFixture(t, collection, CommonFixtures.Cache)
}

// SetupCompleteServices registers the basic fixtures plus the dependent
// service.
func SetupCompleteServices(t *testing.T, collection knot.Collection) {
	t.Helper()
	SetupBasicServices(t, collection)
	BuildFixture(t, collection, CommonFixtures.Service)
}

// CreateProviderWithBasicServices builds a provider over the basic fixtures.
func CreateProviderWithBasicServices(t *testing.T) knot.Provider {
	t.Helper()
	builder := NewCollectionBuilder(t)
	SetupBasicServices(t, builder.Collection())
	return builder.BuildProvider()
}

// CreateProviderWithCompleteServices builds a provider over all fixtures.
func CreateProviderWithCompleteServices(t *testing.T) knot.Provider {
	t.Helper()
	builder := NewCollectionBuilder(t)
	SetupCompleteServices(t, builder.Collection())
	return builder.BuildProvider()
}

// TestScenario is one named provider setup with its validation.
type TestScenario struct {
	Name     string
	Setup    func(t *testing.T) knot.Provider
	Validate func(t *testing.T, provider knot.Provider)
}

// RunTestScenarios executes a set of test scenarios as parallel subtests.
func RunTestScenarios(t *testing.T, scenarios []TestScenario) {
	t.Helper()
	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			t.Parallel()
			provider := scenario.Setup(t)
			scenario.Validate(t, provider)
		})
	}
}

// ErrorTestCase is one named action expected to fail in a specific way.
type ErrorTestCase struct {
	Name      string
	Setup     func(t *testing.T) knot.Provider
	Action    func(provider knot.Provider) error
	WantError error
	CheckErr  func(t *testing.T, err error)
}

// RunErrorTestCases executes error test cases as parallel subtests.
func RunErrorTestCases(t *testing.T, cases []ErrorTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			provider := tc.Setup(t)
			err := tc.Action(provider)

			if tc.WantError != nil {
				RequireError(t, err)
				assert.ErrorIs(t, err, tc.WantError)
			}
			if tc.CheckErr != nil {
				tc.CheckErr(t, err)
			}
		})
	}
}
