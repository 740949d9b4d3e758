package extractor

import (
	"strconv"
	"strings"
)

// TypeSymbolName reduces declared type text to the name of its symbol:
// generic arguments and array suffixes are stripped, null/undefined union
// members dropped and only the last qualified segment kept. Unions of
// several real members and structural types have no symbol and yield "".
func TypeSymbolName(typeText string) string {
	members := NonNullMembers(typeText)
	if len(members) != 1 {
		return ""
	}
	t := members[0]

	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "[]")
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	if !IsIdentifier(t) {
		return ""
	}
	return t
}

// UnionMembers splits type text on top-level "|".
func UnionMembers(typeText string) []string {
	var out []string
	for _, m := range splitTopLevel(typeText, '|') {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// NonNullMembers returns the union members other than null and undefined.
func NonNullMembers(typeText string) []string {
	var out []string
	for _, m := range UnionMembers(typeText) {
		if m != "null" && m != "undefined" {
			out = append(out, m)
		}
	}
	return out
}

// IsNullable reports whether the type admits null or undefined.
func IsNullable(typeText string) bool {
	return len(NonNullMembers(typeText)) != len(UnionMembers(typeText))
}

// ElementType returns the element type of an array-shaped type: T[],
// Array<T> or ReadonlyArray<T>.
func ElementType(typeText string) (string, bool) {
	members := NonNullMembers(typeText)
	if len(members) != 1 {
		return "", false
	}
	t := members[0]
	if strings.HasSuffix(t, "[]") {
		elem := strings.TrimSpace(strings.TrimSuffix(t, "[]"))
		if strings.HasPrefix(elem, "(") && strings.HasSuffix(elem, ")") {
			elem = strings.TrimSpace(elem[1 : len(elem)-1])
		}
		return elem, true
	}
	for _, prefix := range []string{"Array<", "ReadonlyArray<"} {
		if strings.HasPrefix(t, prefix) && strings.HasSuffix(t, ">") {
			return strings.TrimSpace(t[len(prefix) : len(t)-1]), true
		}
	}
	return "", false
}

// LiteralType parses a literal type member ('a', "a", 1, true) into its value.
func LiteralType(member string) (any, bool) {
	m := strings.TrimSpace(member)
	switch {
	case m == "true":
		return true, true
	case m == "false":
		return false, true
	case len(m) >= 2 && (m[0] == '\'' || m[0] == '"') && m[len(m)-1] == m[0]:
		return unquote(m), true
	}
	if n, err := strconv.ParseFloat(m, 64); err == nil {
		return n, true
	}
	return nil, false
}

// IsIdentifier reports whether s is a valid identifier name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		digit := r >= '0' && r <= '9'
		if !letter && !(digit && i > 0) {
			return false
		}
	}
	return true
}

// splitTopLevel splits s on sep outside of <>, (), [] and {}.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
