//go:build !cgo_sqlite

package main

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

// nativeParams are the mattn-style DSN parameters that the pure Go driver
// only understands as _pragma values.
var nativeParams = map[string]string{
	"_journal_mode": "journal_mode",
	"_busy_timeout": "busy_timeout",
	"_synchronous":  "synchronous",
	"_foreign_keys": "foreign_keys",
}

func initDB(dataSource string) (*sql.DB, error) {
	dsn, err := nativeDSN(dataSource)
	if err != nil {
		return nil, err
	}
	return sql.Open("sqlite", dsn)
}

// nativeDSN rewrites ?_journal_mode=WAL into ?_pragma=journal_mode(WAL) and
// likewise for the other nativeParams, so one database_path works with both
// drivers. Other parameters are passed through.
func nativeDSN(dataSource string) (string, error) {
	path, rawQuery, ok := strings.Cut(dataSource, "?")
	if !ok {
		return dataSource, nil
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid database_path query: %w", err)
	}
	for param, pragma := range nativeParams {
		for _, v := range query[param] {
			query.Add("_pragma", fmt.Sprintf("%s(%s)", pragma, v))
		}
		query.Del(param)
	}
	return path + "?" + query.Encode(), nil
}
