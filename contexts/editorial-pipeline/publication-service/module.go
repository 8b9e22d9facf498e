package publicationservice

import (
	"log/slog"
	"time"

	httpadapter "pressroom/contexts/editorial-pipeline/publication-service/adapters/http"
	"pressroom/contexts/editorial-pipeline/publication-service/adapters/memory"
	"pressroom/contexts/editorial-pipeline/publication-service/application/commands"
	"pressroom/contexts/editorial-pipeline/publication-service/application/queries"
	"pressroom/contexts/editorial-pipeline/publication-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Reviews commands.ReviewUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Reviews        ports.ReviewRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	reviewUseCase := commands.ReviewUseCase{
		Reviews:        deps.Reviews,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	reviewQueryUseCase := queries.ReviewQueryUseCase{
		Reviews: deps.Reviews,
	}
	return Module{
		Handler: httpadapter.Handler{
			Reviews: reviewUseCase,
			Queries: reviewQueryUseCase,
			Logger:  deps.Logger,
		},
		Reviews: reviewUseCase,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Reviews:        store,
		Idempotency:    store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
