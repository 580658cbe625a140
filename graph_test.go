package knot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knotwork/knot"
	"github.com/knotwork/knot/internal/testutil"
)

func TestProvider_GetDependencyTree(t *testing.T) {
	t.Parallel()

	t.Run("expands registered dependencies with statuses", func(t *testing.T) {
		t.Parallel()

		// TestCache is deliberately left unregistered.
		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[testutil.TestLogger](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*testutil.MemoryLogger]())).
			WithValue(knot.TokenOf[testutil.TestDatabase](), testutil.NewStubDatabase("primary")).
			WithImplementation(knot.TokenOf[*testutil.ServiceWithDeps](), knot.Singleton,
				knot.WithDependencies(
					knot.TokenOf[testutil.TestLogger](),
					knot.TokenOf[testutil.TestDatabase](),
					knot.TokenOf[testutil.TestCache](),
				)).
			BuildProvider()

		tree, err := provider.GetDependencyTree(knot.TokenOf[*testutil.ServiceWithDeps]())
		require.NoError(t, err)
		require.NotNil(t, tree)

		assert.Equal(t, knot.TokenOf[*testutil.ServiceWithDeps](), tree.ServiceType)
		assert.Equal(t, knot.StatusOK, tree.Status)
		assert.Equal(t, 0, tree.Depth)
		require.Len(t, tree.Dependencies, 3)

		logger := tree.Dependencies[0]
		assert.Equal(t, knot.TokenOf[testutil.TestLogger](), logger.ServiceType)
		assert.Equal(t, knot.StatusOK, logger.Status)
		assert.Equal(t, 1, logger.Depth)

		database := tree.Dependencies[1]
		assert.Equal(t, knot.TokenOf[testutil.TestDatabase](), database.ServiceType)
		assert.Equal(t, knot.StatusOK, database.Status)

		cache := tree.Dependencies[2]
		assert.Equal(t, knot.TokenOf[testutil.TestCache](), cache.ServiceType)
		assert.Equal(t, knot.StatusNotRegistered, cache.Status)
		assert.Empty(t, cache.Dependencies)
	})

	t.Run("unregistered root token yields a single marked node", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).BuildProvider()

		tree, err := provider.GetDependencyTree(knot.TokenOf[*testutil.Leaf]())
		require.NoError(t, err)
		require.NotNil(t, tree)
		assert.Equal(t, knot.StatusNotRegistered, tree.Status)
		assert.Empty(t, tree.Dependencies)
	})

	t.Run("cycles are marked instead of failing", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[*testutil.CycleA](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleB]())).
			WithImplementation(knot.TokenOf[*testutil.CycleB](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleA]())).
			BuildProvider()

		tree, err := provider.GetDependencyTree(knot.TokenOf[*testutil.CycleA]())
		require.NoError(t, err)

		require.Len(t, tree.Dependencies, 1)
		b := tree.Dependencies[0]
		require.Len(t, b.Dependencies, 1)

		back := b.Dependencies[0]
		assert.Equal(t, knot.StatusCircular, back.Status)
		assert.Equal(t, knot.TokenOf[*testutil.CycleA](), back.ServiceType)
		require.Len(t, back.Path, 3)
		assert.Empty(t, back.Dependencies)
	})

	t.Run("keyed registrations are invisible to the graph", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[testutil.TestLogger](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*testutil.MemoryLogger]()),
				knot.WithKey("audit")).
			BuildProvider()

		tree, err := provider.GetDependencyTree(knot.TokenOf[testutil.TestLogger]())
		require.NoError(t, err)
		assert.Equal(t, knot.StatusNotRegistered, tree.Status)
	})

	t.Run("edges concatenate across descriptors of one token", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[testutil.TestLogger](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*testutil.MemoryLogger]())).
			WithValue(knot.TokenOf[testutil.TestDatabase](), testutil.NewStubDatabase("primary")).
			WithImplementation(knot.TokenOf[*testutil.ServiceWithDeps](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[testutil.TestLogger]())).
			WithImplementation(knot.TokenOf[*testutil.ServiceWithDeps](), knot.Singleton,
				knot.WithDependencies(
					knot.TokenOf[testutil.TestLogger](),
					knot.TokenOf[testutil.TestDatabase](),
				)).
			BuildProvider()

		tree, err := provider.GetDependencyTree(knot.TokenOf[*testutil.ServiceWithDeps]())
		require.NoError(t, err)
		require.Len(t, tree.Dependencies, 3)
		assert.Equal(t, knot.TokenOf[testutil.TestLogger](), tree.Dependencies[0].ServiceType)
		assert.Equal(t, knot.TokenOf[testutil.TestLogger](), tree.Dependencies[1].ServiceType)
		assert.Equal(t, knot.TokenOf[testutil.TestDatabase](), tree.Dependencies[2].ServiceType)
	})

	t.Run("scope shares the root's registry view", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[testutil.TestLogger](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*testutil.MemoryLogger]())).
			BuildProvider()

		scope, err := provider.CreateScope()
		require.NoError(t, err)
		t.Cleanup(func() { _ = scope.Close() })

		tree, err := scope.GetDependencyTree(knot.TokenOf[testutil.TestLogger]())
		require.NoError(t, err)
		assert.Equal(t, knot.StatusOK, tree.Status)
	})

	t.Run("nil service type", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).BuildProvider()

		_, err := provider.GetDependencyTree(nil)
		assert.ErrorIs(t, err, knot.ErrServiceTypeNil)
	})

	t.Run("disposed provider", func(t *testing.T) {
		t.Parallel()

		collection := knot.NewCollection()
		provider, err := collection.Build()
		require.NoError(t, err)
		require.NoError(t, provider.Close())

		_, err = provider.GetDependencyTree(knot.TokenOf[*testutil.Leaf]())
		assert.ErrorIs(t, err, knot.ErrProviderDisposed)
	})
}

func TestProvider_GetCircularDependencies(t *testing.T) {
	t.Parallel()

	t.Run("acyclic registry reports none", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[testutil.TestLogger](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*testutil.MemoryLogger]())).
			WithImplementation(knot.TokenOf[*testutil.ServiceWithDeps](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[testutil.TestLogger]())).
			BuildProvider()

		cycles, err := provider.GetCircularDependencies()
		require.NoError(t, err)
		assert.Empty(t, cycles)
	})

	t.Run("mutual pair reported once", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[*testutil.CycleA](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleB]())).
			WithImplementation(knot.TokenOf[*testutil.CycleB](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleA]())).
			BuildProvider()

		cycles, err := provider.GetCircularDependencies()
		require.NoError(t, err)
		require.Len(t, cycles, 1)
		assert.Equal(t, "*CycleA -> *CycleB -> *CycleA", cycles[0].String())
	})

	t.Run("three party cycle follows registration order", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[*testutil.CycleX](), knot.Scoped,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleY]())).
			WithImplementation(knot.TokenOf[*testutil.CycleY](), knot.Scoped,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleZ]())).
			WithImplementation(knot.TokenOf[*testutil.CycleZ](), knot.Scoped,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleX]())).
			BuildProvider()

		cycles, err := provider.GetCircularDependencies()
		require.NoError(t, err)
		require.Len(t, cycles, 1)
		assert.Equal(t, "*CycleX -> *CycleY -> *CycleZ -> *CycleX", cycles[0].String())
	})

	t.Run("self reference", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[*testutil.SelfRef](), knot.Transient,
				knot.WithDependencies(knot.TokenOf[*testutil.SelfRef]())).
			BuildProvider()

		cycles, err := provider.GetCircularDependencies()
		require.NoError(t, err)
		require.Len(t, cycles, 1)
		assert.Equal(t, "*SelfRef -> *SelfRef", cycles[0].String())
	})

	t.Run("disposed provider", func(t *testing.T) {
		t.Parallel()

		collection := knot.NewCollection()
		provider, err := collection.Build()
		require.NoError(t, err)
		require.NoError(t, provider.Close())

		_, err = provider.GetCircularDependencies()
		assert.ErrorIs(t, err, knot.ErrProviderDisposed)
	})
}

func TestProvider_VisualizeDependencyTree(t *testing.T) {
	t.Parallel()

	t.Run("renders indented chain", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[testutil.TestLogger](), knot.Singleton,
				knot.WithImplementation(knot.TokenOf[*testutil.MemoryLogger]())).
			WithImplementation(knot.TokenOf[*testutil.ServiceWithDeps](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[testutil.TestLogger]())).
			BuildProvider()

		out, err := provider.VisualizeDependencyTree(knot.TokenOf[*testutil.ServiceWithDeps]())
		require.NoError(t, err)
		assert.Equal(t, "*ServiceWithDeps\n  TestLogger\n", out)
	})

	t.Run("renders circular and missing markers", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[*testutil.CycleA](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleB]())).
			WithImplementation(knot.TokenOf[*testutil.CycleB](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleA]())).
			BuildProvider()

		out, err := provider.VisualizeDependencyTree(knot.TokenOf[*testutil.CycleA]())
		require.NoError(t, err)
		expected := "*CycleA\n" +
			"  *CycleB\n" +
			"    *CycleA (circular: *CycleA -> *CycleB -> *CycleA)\n"
		assert.Equal(t, expected, out)

		missing, err := provider.VisualizeDependencyTree(knot.TokenOf[*testutil.Leaf]())
		require.NoError(t, err)
		assert.Equal(t, "*Leaf (not registered)\n", missing)
	})

	t.Run("nil service type", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).BuildProvider()

		_, err := provider.VisualizeDependencyTree(nil)
		assert.ErrorIs(t, err, knot.ErrServiceTypeNil)
	})
}

func TestProvider_VisualizeCircularDependencies(t *testing.T) {
	t.Parallel()

	t.Run("reports none", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithValue(knot.TokenOf[testutil.TestDatabase](), testutil.NewStubDatabase("primary")).
			BuildProvider()

		out, err := provider.VisualizeCircularDependencies()
		require.NoError(t, err)
		assert.Equal(t, "no circular dependencies detected\n", out)
	})

	t.Run("numbers each cycle", func(t *testing.T) {
		t.Parallel()

		provider := testutil.NewCollectionBuilder(t).
			WithImplementation(knot.TokenOf[*testutil.CycleA](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleB]())).
			WithImplementation(knot.TokenOf[*testutil.CycleB](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.CycleA]())).
			WithImplementation(knot.TokenOf[*testutil.SelfRef](), knot.Singleton,
				knot.WithDependencies(knot.TokenOf[*testutil.SelfRef]())).
			BuildProvider()

		out, err := provider.VisualizeCircularDependencies()
		require.NoError(t, err)
		expected := "1. *CycleA -> *CycleB -> *CycleA\n" +
			"2. *SelfRef -> *SelfRef\n"
		assert.Equal(t, expected, out)
	})
}
