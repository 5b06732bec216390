package observability

import (
	"context"

	"github.com/memberkit/credential-service/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

const instrumentationName = "github.com/memberkit/credential-service"

func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
			attribute.String("credential.hash_algorithm", cfg.HashAlgorithm),
		),
	)
}
