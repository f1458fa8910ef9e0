//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"authflow/internal/app"
)

func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		TelemetrySet,
		StorageSet,
		AuthSet,
		TransportSet,
		AppSet,
	))
}

func InitializeMigrationRunner() (*MigrationRunner, error) {
	panic(wire.Build(
		ConfigSet,
		provideOpenDB,
		NewMigrationRunner,
	))
}
