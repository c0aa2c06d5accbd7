// Package migrations holds the schema of the sale stores and applies it.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// schema holds one directory of numbered .sql scripts per backend.
//
//go:embed postgres/*.sql clickhouse/*.sql
var schema embed.FS

// script is one schema file, named by its numbered file name.
type script struct {
	name string
	body string
}

// scripts returns the non-blank scripts of a backend in file name order.
func scripts(backend string) ([]script, error) {
	names, err := fs.Glob(schema, path.Join(backend, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list %s schema: %w", backend, err)
	}
	sort.Strings(names)

	out := make([]script, 0, len(names))
	for _, name := range names {
		body, err := fs.ReadFile(schema, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		if strings.TrimSpace(string(body)) == "" {
			continue
		}
		out = append(out, script{name: path.Base(name), body: string(body)})
	}
	return out, nil
}

// statements splits a script on semicolons outside single-quoted literals and
// drops -- comments. A literal left open at the end is an error.
func (s script) statements() ([]string, error) {
	var (
		stmts   []string
		cur     strings.Builder
		quoted  bool
		comment bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		cur.Reset()
	}
	for i := 0; i < len(s.body); i++ {
		ch := s.body[i]
		switch {
		case comment:
			if ch == '\n' {
				comment = false
				cur.WriteByte(ch)
			}
		case quoted:
			cur.WriteByte(ch)
			if ch == '\'' {
				if i+1 < len(s.body) && s.body[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
					continue
				}
				quoted = false
			}
		case ch == '-' && i+1 < len(s.body) && s.body[i+1] == '-':
			comment = true
			i++
		case ch == '\'':
			quoted = true
			cur.WriteByte(ch)
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if quoted {
		return nil, fmt.Errorf("%s: unterminated string literal", s.name)
	}
	flush()
	return stmts, nil
}
