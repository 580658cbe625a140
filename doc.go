// Package knot is a dependency injection container built around explicit
// service descriptors and cycle-tolerant construction. Services declare their
// dependencies as tokens; the resolver constructs them lazily, caches them by
// lifetime, and closes dependency cycles without unbounded recursion.
//
// # Overview
//
// knot provides:
//   - Three service lifetimes: Singleton, Scoped, and Transient
//   - Explicit dependency declaration through typed tokens
//   - Circular dependency construction via in-place placeholder rewrite
//   - Keyed registrations for multiple implementations of one token
//   - Build-time validation of the whole dependency graph
//   - Pure graph diagnostics: dependency trees and cycle reports
//   - A module system for organizing registrations
//   - Thread-safe providers and scopes
//
// # Basic Usage
//
// Create a collection, register services, build a provider, and resolve:
//
//	services := knot.NewCollection()
//	services.RegisterValue(knot.TokenOf[*Config](), cfg)
//	services.RegisterImplementation(knot.TokenOf[*UserService](), knot.Singleton,
//	    knot.WithDependencies(knot.TokenOf[*Config]()))
//
//	provider, err := services.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	users, err := knot.Resolve[*UserService](provider)
//
// # Service Lifetimes
//
//   - Singleton: one instance per root provider, shared by every scope
//   - Scoped: one instance per scope, disposed with the scope
//   - Transient: a fresh instance per dependency edge, never cached
//
// # Tokens and Descriptors
//
// A token is the identity a service is registered and resolved under,
// expressed as a reflect.Type and usually produced with TokenOf:
//
//	knot.TokenOf[UserStore]()   // an interface token
//	knot.TokenOf[*Repository]() // a concrete token
//
// Each registration is a Descriptor: a token, a lifetime, exactly one of
// implementation type, factory, or prebuilt value, and the declared
// dependency tokens. Implementation dependencies are assigned positionally to
// the exported fields of the implementation struct.
//
// # Circular Dependencies
//
// Cycles between implementation descriptors resolve without recursion: before
// a service's dependencies are constructed, the resolver records an empty
// placeholder for it; when the dependency chain loops back, the dependent
// receives that placeholder, and once construction finishes the placeholder
// is populated in place. Every participant in the cycle ends up holding the
// same, fully constructed instance.
//
//	a, _ := knot.Resolve[*ServiceA](provider) // ServiceA <-> ServiceB is fine
//
// Factory descriptors opt out: a factory that resolves its own token recurses
// normally, and bounding that recursion is the registrant's concern.
//
// # Keyed Services
//
// Register multiple implementations of the same token under keys:
//
//	services.RegisterFactory(knot.TokenOf[Cache](), knot.Singleton, newRedis, knot.WithKey("redis"))
//	services.RegisterFactory(knot.TokenOf[Cache](), knot.Singleton, newMemory, knot.WithKey("memory"))
//
//	cache, err := knot.ResolveKeyed[Cache](provider, "redis")
//
// # Modules
//
// Group registrations into reusable modules:
//
//	var StorageModule = knot.NewModule("storage",
//	    knot.RegisterFactory(knot.TokenOf[*sql.DB](), knot.Singleton, openDB),
//	    knot.RegisterImplementation(knot.TokenOf[*UserRepo](), knot.Scoped,
//	        knot.WithDependencies(knot.TokenOf[*sql.DB]())),
//	)
//
//	services.AddModules(StorageModule)
//
// # Scopes
//
// Create isolated scopes for request-scoped services:
//
//	scope, err := provider.CreateScope()
//	defer scope.Close()
//
//	svc, err := knot.Resolve[*RequestHandler](scope)
//
// Scoped services resolved from different scopes are distinct instances;
// singletons are shared across all scopes. With ValidateScopes enabled,
// resolving a scoped service from the root, or injecting one into a
// root-constructed service, fails instead of silently capturing it.
//
// # Lifecycle Hooks
//
// An instance implementing Initializer has Initialize called once after
// construction; a failure fails the resolution and caches nothing. An
// instance implementing Disposable is closed when the provider that cached it
// is closed, in reverse creation order.
//
// # Diagnostics
//
// The provider exposes non-constructing graph analysis:
//
//	tree, _ := provider.GetDependencyTree(knot.TokenOf[*ServiceA]())
//	cycles, _ := provider.GetCircularDependencies()
//	text, _ := provider.VisualizeDependencyTree(knot.TokenOf[*ServiceA]())
//	fmt.Println(text)
//
// # Error Handling
//
// Failures carry typed errors: NotRegisteredError, ScopeViolationError,
// ValidationError (aggregated missing dependencies at build time),
// ResolutionError, TypeMismatchError, and DisposalError. Sentinels such as
// ErrProviderDisposed work with errors.Is; helpers like IsNotRegistered cover
// the common checks.
package knot
