package offer

import (
	"github.com/smallbiznis/relaygrid/internal/offer/repository"
	"github.com/smallbiznis/relaygrid/internal/offer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("offer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
