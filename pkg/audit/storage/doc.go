// Package storage provides the audit trail storage backends: a SQLite
// backend for production and an in-memory backend for tests.
package storage
