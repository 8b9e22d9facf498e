package boardservice

import (
	"log/slog"

	httpadapter "pressroom/contexts/community-engagement/board-service/adapters/http"
	"pressroom/contexts/community-engagement/board-service/adapters/memory"
	"pressroom/contexts/community-engagement/board-service/application/commands"
	"pressroom/contexts/community-engagement/board-service/application/queries"
	"pressroom/contexts/community-engagement/board-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repository ports.BoardRepository
	VoteState  ports.VoteStateReader
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	boardUseCase := commands.BoardUseCase{
		Repository: deps.Repository,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	readUseCase := queries.BoardReadUseCase{
		Repository: deps.Repository,
		VoteState:  deps.VoteState,
	}
	return Module{
		Handler: httpadapter.Handler{
			Content: boardUseCase,
			Reads:   readUseCase,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository: store,
		VoteState:  store,
		Outbox:     store,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
