// Package testdb provides utilities for database integration tests: locating
// the test database, applying the embedded migrations once per process, and
// running test bodies inside rolled-back transactions.
package testdb
