package calculation

import (
	"github.com/smallbiznis/exporta/internal/calculation/repository"
	"github.com/smallbiznis/exporta/internal/calculation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calculation",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
