// Package database stores finished runs in a SQLite history file.
//
// Each saved run keeps its count summary and the full JSON report, so the
// history command can list runs per dataset and compare two of them.
// History is append-only and is never consulted to skip work: every scan
// re-reads the dataset.
//
// modernc.org/sqlite is CGO-free, so the binary cross-compiles without a C
// toolchain. Writes are serialized across processes with a lock file next
// to the database.
package database
