package taskgraph

import (
	"regexp"
	"strings"

	"github.com/vvka-141/sfdeploy/internal/checksum"
)

// Node is one task definition.
type Node struct {
	Name      string
	Schema    string
	DependsOn []string // predecessors in declaration order, de-duplicated
	Schedule  string   // SCHEDULE clause value, empty if none
	Artifact  string   // repository path of the defining file
}

// IsRoot reports whether the node has no predecessors.
func (n *Node) IsRoot() bool { return len(n.DependsOn) == 0 }

const identPattern = `(?:"[^"]+"|[A-Za-z_][A-Za-z0-9_$]*)`

var (
	qualifiedIdent = identPattern + `(?:\s*\.\s*` + identPattern + `){0,2}`

	createTaskRe = regexp.MustCompile(`(?i)\bCREATE\s+(?:OR\s+REPLACE\s+)?TASK\s+(?:IF\s+NOT\s+EXISTS\s+)?(` + qualifiedIdent + `)`)
	afterRe      = regexp.MustCompile(`(?i)\bAFTER\s+(` + qualifiedIdent + `(?:\s*,\s*` + qualifiedIdent + `)*)`)
	scheduleRe   = regexp.MustCompile(`(?i)\bSCHEDULE\s*=\s*'([^']*)'`)
	identRe      = regexp.MustCompile(qualifiedIdent)
)

// Parse extracts the task defined by content, if any. Comments are ignored.
// Only the clauses before the task body (AS ...) are inspected, so AFTER or
// SCHEDULE inside the body does not create edges.
func Parse(artifact, schema, content string) (*Node, bool) {
	text := checksum.StripComments(content)

	loc := createTaskRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, false
	}

	node := &Node{
		Name:     NormalizeIdent(text[loc[2]:loc[3]]),
		Schema:   schema,
		Artifact: artifact,
	}

	header := text[loc[1]:]
	if end := bodyStart(header); end >= 0 {
		header = header[:end]
	}

	if m := scheduleRe.FindStringSubmatch(header); m != nil {
		node.Schedule = strings.TrimSpace(m[1])
	}

	seen := make(map[string]bool)
	for _, m := range afterRe.FindAllStringSubmatch(blankLiterals(header), -1) {
		for _, raw := range identRe.FindAllString(m[1], -1) {
			dep := NormalizeIdent(raw)
			if dep == node.Name || seen[dep] {
				continue
			}
			seen[dep] = true
			node.DependsOn = append(node.DependsOn, dep)
		}
	}

	return node, true
}

// NormalizeIdent reduces a possibly qualified identifier to its last
// segment. Unquoted identifiers are upper-cased as Snowflake resolves them;
// quoted identifiers keep their case.
func NormalizeIdent(raw string) string {
	inQuote := false
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '"':
			inQuote = !inQuote
		case '.':
			if !inQuote {
				start = i + 1
			}
		}
	}
	last := strings.TrimSpace(raw[start:])

	if len(last) >= 2 && last[0] == '"' && last[len(last)-1] == '"' {
		return last[1 : len(last)-1]
	}
	return strings.ToUpper(last)
}

// bodyStart returns the offset of the AS keyword that opens the task body,
// skipping quoted text, or -1.
func bodyStart(s string) int {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'', '"':
			j := i + 1
			for j < len(s) && s[j] != c {
				if c == '\'' && s[j] == '\\' {
					j++
				}
				j++
			}
			i = j
		case 'a', 'A':
			if i+1 < len(s) && (s[i+1] == 's' || s[i+1] == 'S') &&
				(i == 0 || !isWordByte(s[i-1])) &&
				(i+2 == len(s) || !isWordByte(s[i+2])) {
				return i
			}
		}
	}
	return -1
}

// blankLiterals replaces the contents of single-quoted literals with spaces
// so keywords inside COMMENT or WHEN strings are not matched.
func blankLiterals(s string) string {
	b := []byte(s)
	in := false
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '\'':
			in = !in
		case in:
			b[i] = ' '
		}
	}
	return string(b)
}

func isWordByte(b byte) bool {
	return b == '_' || b == '$' || b == '.' || b == '"' ||
		('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
