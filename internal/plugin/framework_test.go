package plugin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabytelabs/modus-forge/internal/hook"
)

type fakePlugin struct {
	name      string
	initErr   error
	destroyed bool
	hooks     map[hook.Point]hook.Handler
	commands  map[string]CommandHandler
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) Init(_ context.Context) error { return f.initErr }

func (f *fakePlugin) Destroy(_ context.Context) error {
	f.destroyed = true
	return nil
}

func (f *fakePlugin) Hooks() map[hook.Point]hook.Handler { return f.hooks }

func (f *fakePlugin) Commands() map[string]CommandHandler { return f.commands }

func factoryFor(p *fakePlugin, err error) Factory {
	return func(_ map[string]interface{}) (Plugin, error) {
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func newFramework(t *testing.T) (*Framework, *hook.Bus) {
	t.Helper()
	bus := hook.NewBus()
	cfg := &Config{
		Bus:   bus,
		State: NewStateFile(filepath.Join(t.TempDir(), "plugin-state.json")),
	}
	return cfg.Complete().New(), bus
}

func TestLoadRegistersHooksAndCommands(t *testing.T) {
	f, bus := newFramework(t)

	p := &fakePlugin{
		name: "demo",
		hooks: map[hook.Point]hook.Handler{
			hook.AfterGenerate: func(_ context.Context, s *hook.State) (*hook.State, error) { return nil, nil },
		},
		commands: map[string]CommandHandler{
			"greet": func(_ context.Context, _ []string) (string, error) { return "hi", nil },
		},
	}
	require.NoError(t, f.RegisterFactory(Definition{ID: "demo"}, factoryFor(p, nil), nil))

	reports := f.Load(context.Background())
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Enabled)
	assert.Empty(t, reports[0].Error)

	assert.Equal(t, 1, bus.HandlerCount(hook.AfterGenerate))

	out, err := f.RunCommand(context.Background(), "greet", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestLoadFailureDoesNotAbortOthers(t *testing.T) {
	f, _ := newFramework(t)

	require.NoError(t, f.RegisterFactory(Definition{ID: "broken"}, factoryFor(nil, errors.New("bad wiring")), nil))
	require.NoError(t, f.RegisterFactory(Definition{ID: "fine"}, factoryFor(&fakePlugin{name: "fine"}, nil), nil))

	reports := f.Load(context.Background())
	require.Len(t, reports, 2)
	assert.False(t, reports[0].Enabled)
	assert.Contains(t, reports[0].Error, "bad wiring")
	assert.True(t, reports[1].Enabled)
	assert.Equal(t, 1, f.Registry().Len())
}

func TestInitFailureIsReported(t *testing.T) {
	f, _ := newFramework(t)
	p := &fakePlugin{name: "flaky", initErr: errors.New("no database")}
	require.NoError(t, f.RegisterFactory(Definition{ID: "flaky"}, factoryFor(p, nil), nil))

	reports := f.Load(context.Background())
	assert.Contains(t, reports[0].Error, "no database")
}

func TestDisableRemovesHooksAndRunsDestroy(t *testing.T) {
	f, bus := newFramework(t)
	p := &fakePlugin{
		name: "demo",
		hooks: map[hook.Point]hook.Handler{
			hook.BeforePersist: func(_ context.Context, s *hook.State) (*hook.State, error) { return nil, nil },
		},
	}
	require.NoError(t, f.RegisterFactory(Definition{ID: "demo"}, factoryFor(p, nil), nil))
	f.Load(context.Background())
	require.Equal(t, 1, bus.HandlerCount(hook.BeforePersist))

	require.NoError(t, f.Disable(context.Background(), "demo"))
	assert.True(t, p.destroyed)
	assert.Equal(t, 0, bus.HandlerCount(hook.BeforePersist))
	assert.Equal(t, 0, f.Registry().Len())
}

func TestEnableStatePersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "plugin-state.json")

	build := func() *Framework {
		cfg := &Config{Bus: hook.NewBus(), State: NewStateFile(statePath)}
		f := cfg.Complete().New()
		require.NoError(t, f.RegisterFactory(Definition{ID: "demo"}, factoryFor(&fakePlugin{name: "demo"}, nil), nil))
		return f
	}

	f1 := build()
	f1.Load(context.Background())
	require.NoError(t, f1.Disable(context.Background(), "demo"))

	f2 := build()
	reports := f2.Load(context.Background())
	assert.False(t, reports[0].Enabled)
	assert.Equal(t, 0, f2.Registry().Len())
}

func TestCommandCollisionFirstLoadedWins(t *testing.T) {
	f, _ := newFramework(t)

	first := &fakePlugin{name: "first", commands: map[string]CommandHandler{
		"run": func(_ context.Context, _ []string) (string, error) { return "first", nil },
	}}
	second := &fakePlugin{name: "second", commands: map[string]CommandHandler{
		"run": func(_ context.Context, _ []string) (string, error) { return "second", nil },
	}}
	require.NoError(t, f.RegisterFactory(Definition{ID: "first"}, factoryFor(first, nil), nil))
	require.NoError(t, f.RegisterFactory(Definition{ID: "second"}, factoryFor(second, nil), nil))
	f.Load(context.Background())

	out, err := f.RunCommand(context.Background(), "run", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	owner, ok := f.Registry().CommandOwner("run")
	require.True(t, ok)
	assert.Equal(t, "first", owner)
}

func TestDenyListBlocksLoad(t *testing.T) {
	cfg := &Config{Bus: hook.NewBus(), Deny: []string{"blocked"}}
	f := cfg.Complete().New()
	require.NoError(t, f.RegisterFactory(Definition{ID: "blocked"}, factoryFor(&fakePlugin{name: "blocked"}, nil), nil))

	reports := f.Load(context.Background())
	assert.False(t, reports[0].Enabled)
	assert.Contains(t, reports[0].Error, "denied")
}
