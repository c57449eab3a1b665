package repository

import (
	"context"
	_ "embed"

	"github.com/medflow/medflow-timesheet/pkg/database"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate
func Schema() string {
	return schema
}

// Migrate creates the timesheet tables if they do not exist
func Migrate(ctx context.Context, db *database.DB) error {
	return db.ExecScript(ctx, schema)
}
