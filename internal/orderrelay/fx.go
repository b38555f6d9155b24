package orderrelay

import (
	"github.com/smallbiznis/relaygrid/internal/orderrelay/repository"
	"github.com/smallbiznis/relaygrid/internal/orderrelay/service"
	"go.uber.org/fx"
)

var Module = fx.Module("orderrelay.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
