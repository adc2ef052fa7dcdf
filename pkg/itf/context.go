package itf

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartq/launchpad/pkg/application"
	"github.com/smartq/launchpad/pkg/composables"
)

// TestContext is a fluent builder for integration test fixtures. Each test
// gets its own database; all writes happen inside one transaction that is
// rolled back on cleanup.
type TestContext struct {
	ctx     context.Context
	pool    *pgxpool.Pool
	tx      pgx.Tx
	app     application.Application
	actor   composables.Actor
	modules []application.Module
	dbName  string
}

func NewTestContext() *TestContext {
	return &TestContext{
		ctx:     context.Background(),
		modules: []application.Module{},
	}
}

func (tc *TestContext) WithModules(modules ...application.Module) *TestContext {
	tc.modules = append(tc.modules, modules...)
	return tc
}

// WithActor sets the authenticated actor the fixture context carries.
func (tc *TestContext) WithActor(id uuid.UUID, role string) *TestContext {
	tc.actor = composables.Actor{ID: id, Role: role}
	return tc
}

func (tc *TestContext) WithDBName(tb testing.TB, name string) *TestContext {
	tb.Helper()
	if tc.dbName == "" {
		tc.dbName = name
	}
	return tc
}

func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()

	if tc.dbName == "" {
		tc.dbName = tb.Name()
	}

	CreateDB(tc.dbName)
	tc.pool = NewPool(DbOpts(tc.dbName))

	app, err := SetupApplication(tc.pool, tc.modules...)
	if err != nil {
		tb.Fatal(err)
	}
	tc.app = app

	tx, err := tc.pool.Begin(tc.ctx)
	if err != nil {
		tb.Fatal(err)
	}
	tc.tx = tx

	tc.ctx = tc.buildContext()

	tb.Cleanup(func() {
		if err := tx.Rollback(context.Background()); err != nil && err != pgx.ErrTxClosed {
			tb.Logf("failed to rollback transaction: %v", err)
		}
		tc.pool.Close()
	})

	return &TestEnvironment{
		Ctx:   tc.ctx,
		Pool:  tc.pool,
		Tx:    tc.tx,
		App:   tc.app,
		Actor: tc.actor,
	}
}

func (tc *TestContext) buildContext() context.Context {
	ctx := tc.ctx
	ctx = composables.WithPool(ctx, tc.pool)
	ctx = composables.WithTx(ctx, tc.tx)
	if tc.actor.ID != uuid.Nil {
		ctx = composables.WithActor(ctx, tc.actor)
	}
	return ctx
}

type TestEnvironment struct {
	Ctx   context.Context
	Pool  *pgxpool.Pool
	Tx    pgx.Tx
	App   application.Application
	Actor composables.Actor
}

func (te *TestEnvironment) Service(service interface{}) interface{} {
	return te.App.Service(service)
}

// AsActor returns the environment context rebound to a different actor, for
// tests that need to act under several roles against the same fixture.
func (te *TestEnvironment) AsActor(id uuid.UUID, role string) context.Context {
	return composables.WithActor(te.Ctx, composables.Actor{ID: id, Role: role})
}
