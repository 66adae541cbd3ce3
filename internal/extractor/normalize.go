package extractor

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\t", " ")

// NormalizeText folds compatibility characters (ligatures, non-breaking and
// full-width forms) with NFKC, unifies line endings, turns tabs into spaces
// and strips trailing spaces from every line.
func NormalizeText(text string) string {
	text = lineEndings.Replace(norm.NFKC.String(text))
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
