package gatedb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/tokengate/middleware/pkg/gate/store/pg"
	mghelper "github.com/tokengate/middleware/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating gate_config table...")
		return mghelper.CreateSchema(ctx, db, &pg.ConfigDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping gate_config table...")
		return mghelper.DropTables(ctx, db, &pg.ConfigDao{})
	})
}
