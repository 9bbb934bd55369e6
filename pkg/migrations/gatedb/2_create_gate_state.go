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
		log.Println("creating gate_state table...")
		if err := mghelper.CreateSchema(ctx, db, &pg.StateDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &pg.StateDao{}, "updated_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping gate_state table...")
		return mghelper.DropTables(ctx, db, &pg.StateDao{})
	})
}
