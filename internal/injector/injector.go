//go:build wireinject
// +build wireinject

// The build tag keeps the wire stubs out of the final build.

package injector

import (
	"github.com/google/wire"
	"go.uber.org/zap/zapcore"

	"github.com/entityforge/entityforge/internal/core/assets"
	"github.com/entityforge/entityforge/internal/core/entity"
	"github.com/entityforge/entityforge/internal/core/observability/log"
)

func ProvideLogger(level zapcore.Level) *log.Logger {
	wire.Build(log.New)
	return nil
}

func ProvideFactory(cfg entity.Config) *entity.Factory {
	wire.Build(entity.New)
	return nil
}

func ProvideDiskLoader(root string) *assets.DiskLoader {
	wire.Build(assets.NewDiskLoader)
	return nil
}
