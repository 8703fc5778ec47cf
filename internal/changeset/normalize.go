package changeset

import (
	"path"
	"sort"
	"strings"

	"github.com/vvka-141/sfdeploy/internal/files/scanner"
)

// Normalize cleans raw paths into a change set: backslashes become slashes,
// leading "./" is dropped, non-.sql entries and blanks are removed, and the
// result is de-duplicated and sorted.
func Normalize(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))

	for _, p := range raw {
		p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
		if p == "" {
			continue
		}
		for strings.HasPrefix(p, "./") {
			p = p[2:]
		}
		p = path.Clean(p)
		if p == "." || !scanner.IsSQLFile(p) || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}

	sort.Strings(out)
	return out
}
