package registry

import (
	"sync/atomic"
	"testing"

	"chbridge/internal/config"
)

type fakeDataSource struct {
	id     string
	closed atomic.Int32
}

func (f *fakeDataSource) ID() string { return f.id }
func (f *fakeDataSource) Close() error {
	f.closed.Add(1)
	return nil
}

func fakeConstructor() (Constructor, map[string]*fakeDataSource) {
	built := map[string]*fakeDataSource{}
	ctor := func(resolver *Resolver, cfg config.DataSourceConfig) (DataSource, error) {
		ds := &fakeDataSource{id: cfg.ID}
		built[cfg.ID] = ds
		return ds, nil
	}
	return ctor, built
}

func TestDataSourceRegistryReloadAndGet(t *testing.T) {
	ctor, built := fakeConstructor()
	reg := NewDataSourceRegistry(NewResolver())
	reg.RegisterType("fake", ctor)

	if err := reg.Reload(map[string]config.DataSourceConfig{
		"a": {ID: "a", Type: "fake"},
	}); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	h, err := reg.Get("a", false)
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if h.DataSource().ID() != "a" {
		t.Fatalf("got id %q", h.DataSource().ID())
	}
	h.Release()

	if _, err := reg.Get("missing", false); err == nil {
		t.Fatal("expected UnknownSource error")
	}

	_ = built
}

func TestDataSourceRegistryReloadRemovalClosesOnce(t *testing.T) {
	ctor, built := fakeConstructor()
	reg := NewDataSourceRegistry(NewResolver())
	reg.RegisterType("fake", ctor)

	if err := reg.Reload(map[string]config.DataSourceConfig{"a": {ID: "a", Type: "fake"}}); err != nil {
		t.Fatalf("Reload 1: %v", err)
	}

	h, err := reg.Get("a", false)
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}

	// Reload with empty config while a handle is still checked out: close
	// must be deferred until the handle is released.
	if err := reg.Reload(map[string]config.DataSourceConfig{}); err != nil {
		t.Fatalf("Reload 2: %v", err)
	}
	if built["a"].closed.Load() != 0 {
		t.Fatal("datasource closed while a handle was still outstanding")
	}

	if err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if built["a"].closed.Load() != 1 {
		t.Fatalf("closed count = %d, want 1", built["a"].closed.Load())
	}

	if _, err := reg.Get("a", false); err == nil {
		t.Fatal("expected removed datasource to be gone from the registry")
	}
}

func TestDataSourceRegistryReloadIsNoOpOnEqualDigest(t *testing.T) {
	ctor, built := fakeConstructor()
	reg := NewDataSourceRegistry(NewResolver())
	reg.RegisterType("fake", ctor)

	cfg := map[string]config.DataSourceConfig{"a": {ID: "a", Type: "fake", ConnectionString: "x"}}
	if err := reg.Reload(cfg); err != nil {
		t.Fatalf("Reload 1: %v", err)
	}
	if err := reg.Reload(cfg); err != nil {
		t.Fatalf("Reload 2: %v", err)
	}

	if len(built) != 1 {
		t.Fatalf("constructor called %d times, want 1 (equal digest reload should be a no-op)", len(built))
	}
}

func TestDataSourceRegistryAutoCreate(t *testing.T) {
	ctor, _ := fakeConstructor()
	reg := NewDataSourceRegistry(NewResolver())
	reg.RegisterType("jdbc", ctor)

	h, err := reg.Get("jdbc://example/db", true)
	if err != nil {
		t.Fatalf("Get autocreate: %v", err)
	}
	defer h.Release()
	if h.DataSource().ID() != "example" {
		t.Fatalf("autocreate id = %q", h.DataSource().ID())
	}
}
