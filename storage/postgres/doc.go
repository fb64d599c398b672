// Package postgres implements goSSO.UserRepository and goSSO.SessionRepository
// on PostgreSQL through database/sql and the pgx stdlib driver. Schema changes
// are embedded goose migrations applied by [Migrate].
//
// Repositories take a [DBTX] so the same code runs on *sql.DB and inside a
// transaction opened with [WithTx].
package postgres
