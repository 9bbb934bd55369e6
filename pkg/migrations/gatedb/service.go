// Package gatedb holds all the migrations for the gate database
package gatedb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the gate database
var Migrations = migrate.NewMigrations()
