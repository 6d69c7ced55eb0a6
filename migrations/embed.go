// Package migrations embeds the schema for the outbox database and the
// ClickHouse audit sink.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// FS holds one directory per relational driver, laid out for golang-migrate.
//
//go:embed mysql/*.sql postgres/*.sql
var FS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// ClickHouseStatements returns the ClickHouse DDL in file order, one
// statement per file.
func ClickHouseStatements() ([]string, error) {
	names, err := fs.Glob(clickhouseFS, "clickhouse/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	stmts := make([]string, 0, len(names))
	for _, name := range names {
		b, err := clickhouseFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if s := strings.TrimSpace(string(b)); s != "" {
			stmts = append(stmts, s)
		}
	}

	return stmts, nil
}
