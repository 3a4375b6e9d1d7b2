// Package sqltext implements the lexical SQL handling the dispatch layer
// needs: counting and rewriting positional placeholders, and splitting batch
// scripts into statements. Scanning skips string literals, quoted
// identifiers, line and block comments, and PostgreSQL dollar-quoted blocks,
// so a '?' or ';' inside any of those is never treated as syntax.
package sqltext

import (
	"strconv"
	"strings"
)

// CountPlaceholders returns the number of positional '?' placeholders in sql.
func CountPlaceholders(sql string) int {
	n := 0
	scan(sql, func(i int) {
		if sql[i] == '?' {
			n++
		}
	})
	return n
}

// RewriteDollar rewrites '?' placeholders to '$1', '$2', ... for backends
// with numbered placeholder syntax.
func RewriteDollar(sql string) string {
	if !strings.ContainsRune(sql, '?') {
		return sql
	}
	out := make([]byte, 0, len(sql)+8)
	last, arg := 0, 1
	scan(sql, func(i int) {
		if sql[i] != '?' {
			return
		}
		out = append(out, sql[last:i]...)
		out = append(out, '$')
		out = strconv.AppendInt(out, int64(arg), 10)
		arg++
		last = i + 1
	})
	out = append(out, sql[last:]...)
	return string(out)
}

// Split breaks a semicolon-delimited script into individual statements.
// Empty statements (stray semicolons, trailing whitespace) are dropped.
func Split(script string) []string {
	var stmts []string
	last := 0
	scan(script, func(i int) {
		if script[i] != ';' {
			return
		}
		if s := strings.TrimSpace(script[last:i]); s != "" {
			stmts = append(stmts, s)
		}
		last = i + 1
	})
	if s := strings.TrimSpace(script[last:]); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

// scan walks sql byte by byte and calls visit for every position that lies
// outside literals and comments.
func scan(sql string, visit func(i int)) {
	i := 0
	for i < len(sql) {
		switch sql[i] {
		case '\'':
			i = skipQuoted(sql, i+1, '\'')
			continue
		case '"':
			i = skipQuoted(sql, i+1, '"')
			continue
		case '`':
			i = skipQuoted(sql, i+1, '`')
			continue
		case '-':
			if strings.HasPrefix(sql[i:], "--") {
				i = skipLine(sql, i+2)
				continue
			}
		case '/':
			if strings.HasPrefix(sql[i:], "/*") {
				i = skipBlock(sql, i+2)
				continue
			}
		case '$':
			if j, ok := skipDollarQuoted(sql, i); ok {
				i = j
				continue
			}
		}
		visit(i)
		i++
	}
}

// skipQuoted advances past a literal opened with q. A doubled quote inside
// the literal is an escape. Unterminated literals run to the end of input.
func skipQuoted(s string, i int, q byte) int {
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func skipLine(s string, i int) int {
	for i < len(s) && s[i] != '\n' {
		i++
	}
	return i
}

func skipBlock(s string, i int) int {
	for i < len(s) {
		if s[i] == '*' && i+1 < len(s) && s[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return i
}

// skipDollarQuoted handles PostgreSQL $tag$...$tag$ blocks. It reports false
// when position i is not the start of a dollar-quoted block (for example a
// numbered placeholder like $1).
func skipDollarQuoted(s string, i int) (int, bool) {
	j := i + 1
	for j < len(s) && isTagByte(s[j]) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return 0, false
	}
	tag := s[i : j+1]
	end := strings.Index(s[j+1:], tag)
	if end < 0 {
		return len(s), true
	}
	return j + 1 + end + len(tag), true
}

func isTagByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
