package modules

import (
	"github.com/smartq/launchpad/modules/deployment"
	"github.com/smartq/launchpad/pkg/application"
)

var BuiltInModules = []application.Module{
	deployment.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
