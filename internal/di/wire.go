//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/memberkit/credential-service/internal/app"
)

// InitializeApp assembles the HTTP service with its stores, guards and
// telemetry.
func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

// InitializeSchemaBootstrap needs only the database and the password hasher.
// It backs "migrate bootstrap".
func InitializeSchemaBootstrap() (*SchemaBootstrap, error) {
	panic(wire.Build(
		ConfigSet,
		provideOpenDB,
		providePasswordHasher,
		NewSchemaBootstrap,
	))
}
