// Package database owns the store handle and its schema.
//
// Two drivers are supported behind one *sql.DB:
//   - sqlite (default): a single database file, opened through mattn/go-sqlite3
//   - postgres: a pgxpool connection exposed through pgx's database/sql adapter
//
// Queries are written with ? placeholders and rebound per dialect.
package database
