package deployment

import (
	"embed"

	"github.com/smartq/launchpad/modules/deployment/handlers"
	"github.com/smartq/launchpad/modules/deployment/infrastructure/persistence"
	"github.com/smartq/launchpad/modules/deployment/presentation/controllers"
	"github.com/smartq/launchpad/modules/deployment/services"
	"github.com/smartq/launchpad/pkg/application"
)

//go:embed infrastructure/persistence/schema/deployment-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&migrationFiles)

	siteRepo := persistence.NewSiteRepository()
	scopingRepo := persistence.NewScopingApprovalRepository()
	costingRepo := persistence.NewCostingApprovalRepository()
	auditRepo := persistence.NewWorkflowAuditRepository()
	actionRepo := persistence.NewApprovalActionRepository()

	app.RegisterServices(
		services.NewSiteService(siteRepo, app.EventPublisher()),
		services.NewWorkflowService(siteRepo, costingRepo, auditRepo, app.EventPublisher()),
		services.NewScopingApprovalService(scopingRepo, siteRepo, actionRepo, app.EventPublisher()),
		services.NewCostingApprovalService(costingRepo, siteRepo, actionRepo, app.EventPublisher()),
		services.NewAuditQueryService(auditRepo, actionRepo),
	)

	app.RegisterControllers(
		controllers.NewDeploymentAPIController(app),
	)

	handlers.RegisterNotificationHandlers(app)

	return nil
}

func (m *Module) Name() string {
	return "deployment"
}
