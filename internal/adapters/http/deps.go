package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/gridveil/internal/adapters/postgres"
	"github.com/samirrijal/gridveil/internal/adapters/valkey"
	"github.com/samirrijal/gridveil/internal/core/usecases"
	"github.com/samirrijal/gridveil/internal/pkg/config"
)

// JobStarter kicks off the execution of a created anonymisation job. The API
// binary wires either an in-process runner or a Temporal workflow starter.
type JobStarter interface {
	StartJob(ctx context.Context, jobID string) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Datasets  *usecases.DatasetService
	Anonymise *usecases.AnonymiseService
	Results   *usecases.ResultService
	Runner    JobStarter
	Defaults  config.AnonymiseConfig
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
