// Package postgres provides PostgreSQL implementations of the store interfaces.
//
// Stores accept a store.DBTX so they run against either a connection pool or
// a caller-managed transaction. Database errors are translated to the store
// error taxonomy by MapError. The schema lives in embedded goose migrations
// applied by Migrate.
package postgres
