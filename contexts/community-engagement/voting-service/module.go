package votingservice

import (
	"log/slog"
	"time"

	httpadapter "pressroom/contexts/community-engagement/voting-service/adapters/http"
	"pressroom/contexts/community-engagement/voting-service/adapters/memory"
	"pressroom/contexts/community-engagement/voting-service/application/commands"
	"pressroom/contexts/community-engagement/voting-service/application/queries"
	"pressroom/contexts/community-engagement/voting-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Votes          ports.VoteRepository
	Projections    ports.ProjectionRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	voteUseCase := commands.VoteUseCase{
		Votes:          deps.Votes,
		Projections:    deps.Projections,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	voteQueryUseCase := queries.VoteQueryUseCase{
		Votes: deps.Votes,
	}
	return Module{
		Handler: httpadapter.Handler{
			Votes:   voteUseCase,
			Queries: voteQueryUseCase,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []ports.VotableProjection, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Votes:          store,
		Projections:    store,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
