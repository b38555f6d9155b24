package settlement

import (
	"github.com/smallbiznis/relaygrid/internal/settlement/repository"
	"github.com/smallbiznis/relaygrid/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
