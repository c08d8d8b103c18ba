// Command forge loads a blueprint by name, constructs the entity
// hierarchy it describes, reports what was built, and tears it down.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/entityforge/entityforge/internal/core/assets"
	"github.com/entityforge/entityforge/internal/core/blueprint"
	"github.com/entityforge/entityforge/internal/core/entity"
	"github.com/entityforge/entityforge/internal/core/events"
	"github.com/entityforge/entityforge/internal/core/observability/log"
	"github.com/entityforge/entityforge/internal/core/systems/tag"
	"github.com/entityforge/entityforge/internal/core/systems/transform"
)

type config struct {
	AssetRoot string `yaml:"asset_root"`
	LogLevel  string `yaml:"log_level"`
}

func loadConfig(path string) (config, error) {
	cfg := config{AssetRoot: ".", LogLevel: "info"}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: forge [-config file] <blueprint-name>")
		os.Exit(2)
	}
	name := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := log.New(level)

	factory := entity.New(entity.Config{
		Logger: logger,
		Loader: assets.NewDiskLoader(cfg.AssetRoot),
		Decode: blueprint.DecodeYAML,
	})
	transformSys := transform.New(logger)
	transformSys.Register(factory)
	tagSys := tag.New(logger)
	tagSys.Register(factory)
	factory.Initialize()

	factory.Events().Subscribe(events.EntityCreated, func(ev events.Event) {
		logger.Info("entity created",
			zap.Uint64("entity", ev.Entity),
			zap.String("blueprint", ev.Blueprint))
	})

	root := factory.CreateFromName(name)
	if root.IsNull() {
		logger.Error("construction failed", zap.String("blueprint", name))
		os.Exit(1)
	}

	if tf, ok := transformSys.Get(root); ok {
		logger.Info("root bounds",
			zap.Float64s("min", tf.Bounds.Min[:]),
			zap.Float64s("max", tf.Bounds.Max[:]),
			zap.Int("children", len(transformSys.Children(root))))
	}

	factory.QueueForDestruction(root)
	for _, child := range transformSys.Children(root) {
		factory.QueueForDestruction(child)
	}
	factory.DestroyQueuedEntities()
	logger.Info("done", zap.Int("live_entities", len(factory.EntityToBlueprintMap())))
}
