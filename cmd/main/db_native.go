//go:build !cgo_sqlite

package main

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// initDB opens the pure-Go driver. It understands pragmas in the
// _pragma=name(value) form, so the mattn-style options are translated.
func initDB(dataSource string) (*sql.DB, error) {
	return sql.Open("sqlite", nativeDSN(dataSource))
}

func nativeDSN(dataSource string) string {
	path, query, found := strings.Cut(dataSource, "?")
	if !found {
		return dataSource
	}
	var pragmas []string
	for _, opt := range strings.Split(query, "&") {
		name, value, _ := strings.Cut(opt, "=")
		switch name {
		case "_journal_mode":
			pragmas = append(pragmas, "_pragma=journal_mode("+value+")")
		case "_busy_timeout":
			pragmas = append(pragmas, "_pragma=busy_timeout("+value+")")
		case "_synchronous":
			pragmas = append(pragmas, "_pragma=synchronous("+value+")")
		default:
			pragmas = append(pragmas, opt)
		}
	}
	return path + "?" + strings.Join(pragmas, "&")
}
