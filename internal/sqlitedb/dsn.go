// Package sqlitedb builds mattn/go-sqlite3 DSNs with the connection
// options every caller of this engine's SQLite databases needs,
// independent of the repository and vectorstore packages so both can
// import it without a cycle.
package sqlitedb

import "strings"

// DSN appends the query parameters every connection to path needs:
// foreign-key enforcement on, since SQLite treats PRAGMA foreign_keys
// as connection-scoped and a no-op inside a transaction, so it must be
// set as part of the connection string rather than in CreateSchema.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}
