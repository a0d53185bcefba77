package forge

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neurabytelabs/modus-forge/internal/cache"
	"github.com/neurabytelabs/modus-forge/internal/config"
	"github.com/neurabytelabs/modus-forge/internal/grimoire"
	"github.com/neurabytelabs/modus-forge/internal/history"
	"github.com/neurabytelabs/modus-forge/internal/hook"
	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider"
	"github.com/neurabytelabs/modus-forge/internal/pipeline"
	"github.com/neurabytelabs/modus-forge/internal/plugin"
	"github.com/neurabytelabs/modus-forge/internal/plugin/builtin"
	"github.com/neurabytelabs/modus-forge/internal/probe"
	"github.com/neurabytelabs/modus-forge/internal/sse"
	"github.com/neurabytelabs/modus-forge/internal/store"
	"github.com/neurabytelabs/modus-forge/internal/strategy"
	"github.com/neurabytelabs/modus-forge/internal/telemetry"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/internal/workspace"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// deps is the shared dependency container built once per command
// invocation.
type deps struct {
	Config    *config.Config
	Store     *store.Store
	Cache     *cache.Cache
	Probes    *probe.Registry
	Router    *llm.Router
	Engine    *strategy.Engine
	Validator *validate.Validator
	Bus       *hook.Bus
	Plugins   *plugin.Framework
	History   *history.History
	Grimoire  *grimoire.Grimoire
	Telemetry *telemetry.Telemetry
	Profile   *workspace.ProfileStore
	Progress  *sse.Channel
	Pipeline  *pipeline.Pipeline
}

// buildDeps loads config and wires the full service graph.
func buildDeps(cmd *cobra.Command) (*deps, error) {
	setupLogging(cmd)

	projectDir, _ := cmd.Flags().GetString("config-dir")
	if projectDir == "" {
		projectDir, _ = os.Getwd()
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}

	s, err := store.New(cfg.StoreDir())
	if err != nil {
		return nil, err
	}
	tel, err := telemetry.New(cfg.TelemetryDir())
	if err != nil {
		return nil, err
	}

	c := cache.New(1000, 5*time.Minute)
	probes := probe.NewRegistry(c.Namespace("probe", time.Minute))
	if cfg.Pipeline.ContextProbes {
		probe.RegisterBuiltins(probes)
	}

	router := llm.NewRouter(provider.NewDefaultRegistry(), cfg.Models)
	validator := validate.New()
	engine := strategy.NewEngine(router, validator, cfg.Pipeline.Parallelism)
	bus := hook.NewBus()

	pluginCfg := &plugin.Config{
		Bus:    bus,
		Probes: probes,
		State:  plugin.NewStateFile(cfg.PluginStatePath()),
		Deny:   cfg.Plugins.Deny,
	}
	framework := pluginCfg.Complete().New()
	if cfg.Plugins.Enabled {
		if err := builtin.Apply(framework, nil); err != nil {
			return nil, fmt.Errorf("register built-in plugins: %w", err)
		}
		for _, report := range framework.Load(cmd.Context()) {
			if report.Error != "" {
				logger.Warn("[Forge] plugin %q: %s", report.ID, report.Error)
			}
		}
	}

	h := history.New(s)
	g := grimoire.New(s)
	progress := sse.NewChannel(sse.Options{
		Heartbeat:  cfg.Server.HeartbeatInterval,
		MaxClients: cfg.Server.MaxSSEClients,
	})

	pipeCfg := &pipeline.Config{
		Probes:    probes,
		Bus:       bus,
		Engine:    engine,
		Generator: router,
		Validator: validator,
		History:   h,
		Grimoire:  g,
		Telemetry: tel,
		Progress:  progress,
		Security:  cfg.Security,
		Defaults:  cfg.Pipeline,
	}

	return &deps{
		Config:    cfg,
		Store:     s,
		Cache:     c,
		Probes:    probes,
		Router:    router,
		Engine:    engine,
		Validator: validator,
		Bus:       bus,
		Plugins:   framework,
		History:   h,
		Grimoire:  g,
		Telemetry: tel,
		Profile:   workspace.NewProfileStore(cfg.DataDir),
		Progress:  progress,
		Pipeline:  pipeCfg.Complete().New(),
	}, nil
}
