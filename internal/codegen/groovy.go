package codegen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rendis/nfstudio/pkg/schema"
)

var (
	bareNamePattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	workflowBlockPattern = regexp.MustCompile(`^workflow\s*\{`)
	singleQuoteEscaper   = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	doubleQuoteEscaper   = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	commentEscaper       = strings.NewReplacer("*/", `*\/`, "\r\n", " ", "\n", " ")
	tripleQuoteEscaper   = strings.NewReplacer(`"""`, `\"\"\"`)
)

// groovyLiteral renders a Go value decoded from YAML or JSON as a Groovy literal.
// Strings are single-quoted so no interpolation happens.
func groovyLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + singleQuoteEscaper.Replace(x) + "'"
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = groovyLiteral(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		if len(x) == 0 {
			return "[:]"
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]string, len(keys))
		for i, k := range keys {
			entries[i] = groovyKey(k) + ": " + groovyLiteral(x[k])
		}
		return "[" + strings.Join(entries, ", ") + "]"
	default:
		return groovyLiteral(fmt.Sprint(x))
	}
}

// groovyKey renders a map key or property name, quoting it unless it is a
// plain identifier.
func groovyKey(k string) string {
	if bareNamePattern.MatchString(k) {
		return k
	}
	return groovyLiteral(k)
}

// commentText flattens s onto one line and breaks up "*/" so it cannot end
// the surrounding comment.
func commentText(s string) string {
	return commentEscaper.Replace(s)
}

// scriptBody escapes triple quotes so s stays inside a """ script block.
func scriptBody(s string) string {
	return tripleQuoteEscaper.Replace(s)
}

// settingLiteral renders a profile setting: numbers and booleans stay bare,
// everything else is quoted.
func settingLiteral(s string) string {
	if s == "true" || s == "false" {
		return s
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	return groovyLiteral(s)
}

// channelDecl renders one input or output line, e.g. `path "*.bam", emit: bam`.
// Names that are not plain identifiers are double-quoted so ${} interpolation
// keeps working for globs like "${id}.bam".
func channelDecl(c schema.Channel) string {
	kind := c.Kind
	if kind == "" {
		kind = schema.ChannelVal
	}

	var decl string
	switch kind {
	case schema.ChannelStdout:
		decl = "stdout"
	case schema.ChannelTuple:
		decl = "tuple " + c.Name
	default:
		name := c.Name
		if !bareNamePattern.MatchString(name) {
			name = `"` + doubleQuoteEscaper.Replace(name) + `"`
		}
		decl = string(kind) + " " + name
	}

	if c.Emit != "" {
		decl += ", emit: " + c.Emit
	}
	return decl
}

// indent prefixes every non-empty line of s with n spaces.
func indent(n int, s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// workflowBlock wraps the workflow text in `workflow { }` unless the user
// already wrote the block header.
func workflowBlock(src string) string {
	src = strings.TrimSpace(src)
	if workflowBlockPattern.MatchString(src) {
		return src
	}
	if src == "" {
		return "workflow {\n}"
	}
	return "workflow {\n" + indent(4, src) + "\n}"
}
