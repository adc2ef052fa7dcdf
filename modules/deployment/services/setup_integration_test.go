package services_test

import (
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment"
	deploymentsvc "github.com/smartq/launchpad/modules/deployment/services"
	"github.com/smartq/launchpad/pkg/configuration"
	"github.com/smartq/launchpad/pkg/itf"
)

var (
	adminID    = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	opsID      = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	engineerID = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	userID     = uuid.MustParse("00000000-0000-0000-0000-0000000000d1")
)

func canDialPostgres(tb testing.TB) bool {
	tb.Helper()
	conf := configuration.Use()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(conf.Database.Host, conf.Database.Port), time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func setupEnv(tb testing.TB) *itf.TestEnvironment {
	tb.Helper()
	if !canDialPostgres(tb) {
		tb.Skip("postgres is not reachable; skipping integration test")
	}
	return itf.NewTestContext().
		WithModules(deployment.NewModule()).
		WithActor(engineerID, "deployment_engineer").
		Build(tb)
}

func siteService(env *itf.TestEnvironment) *deploymentsvc.SiteService {
	return env.Service(deploymentsvc.SiteService{}).(*deploymentsvc.SiteService)
}

func workflowService(env *itf.TestEnvironment) *deploymentsvc.WorkflowService {
	return env.Service(deploymentsvc.WorkflowService{}).(*deploymentsvc.WorkflowService)
}

func scopingService(env *itf.TestEnvironment) *deploymentsvc.ScopingApprovalService {
	return env.Service(deploymentsvc.ScopingApprovalService{}).(*deploymentsvc.ScopingApprovalService)
}

func costingService(env *itf.TestEnvironment) *deploymentsvc.CostingApprovalService {
	return env.Service(deploymentsvc.CostingApprovalService{}).(*deploymentsvc.CostingApprovalService)
}

func auditService(env *itf.TestEnvironment) *deploymentsvc.AuditQueryService {
	return env.Service(deploymentsvc.AuditQueryService{}).(*deploymentsvc.AuditQueryService)
}
