package jsonpath

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract evaluates a JSONPath expression against a JSON document and
// returns the matched value as a string.
//
// Supported syntax is the common subset: "$", "$.a.b", "$.a[0].b",
// "$['a']", "$[\"a\"]" and bare "a.b" paths. Null values are returned
// as the string "null".
func Extract(json string, path string) (string, error) {
	if json == "" {
		return "", fmt.Errorf("empty JSON document")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}

	result := gjson.Get(json, toGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// Exists reports whether a JSONPath expression matches anything in the
// document.
func Exists(json string, path string) bool {
	if json == "" || path == "" {
		return false
	}
	return gjson.Get(json, toGjsonPath(path)).Exists()
}

// Expect checks a set of JSONPath expectations against a JSON document.
// Each key is a JSONPath expression and each value the exact string the
// extracted value must equal. All expectations are evaluated; the returned
// error aggregates every mismatch.
func Expect(json string, want map[string]string) error {
	if len(want) == 0 {
		return nil
	}

	paths := make([]string, 0, len(want))
	for p := range want {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var failures []string
	for _, p := range paths {
		got, err := Extract(json, p)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		if got != want[p] {
			failures = append(failures, fmt.Sprintf("%s = %q, want %q", p, got, want[p]))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("expectation failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// toGjsonPath converts a JSONPath expression to gjson's dotted syntax.
//
// JSONPath: $.users[0].name  ->  gjson: users.0.name
func toGjsonPath(path string) string {
	if path == "$" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	var b strings.Builder
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '[':
			// Quoted member access: ['name'] or ["name"]
			if i+1 < len(path) && (path[i+1] == '\'' || path[i+1] == '"') {
				quote := path[i+1]
				end := strings.IndexByte(path[i+2:], quote)
				if end >= 0 {
					if b.Len() > 0 {
						b.WriteByte('.')
					}
					b.WriteString(path[i+2 : i+2+end])
					i += 2 + end + 1 // land on ']', consumed by the loop increment
					continue
				}
			}
			// Array index: [0]
			if b.Len() > 0 {
				b.WriteByte('.')
			}
		case ']':
			// consumed by the '[' branch
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
