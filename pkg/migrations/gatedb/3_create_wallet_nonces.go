package gatedb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/tokengate/middleware/pkg/nonce"
	mghelper "github.com/tokengate/middleware/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating wallet_nonces table...")
		if err := mghelper.CreateSchema(ctx, db, &nonce.NonceDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &nonce.NonceDao{}, "expires_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping wallet_nonces table...")
		return mghelper.DropTables(ctx, db, &nonce.NonceDao{})
	})
}
