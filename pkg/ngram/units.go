package ngram

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Document is an ordered sequence of grapheme clusters produced by
// sanitization. It is never modified after it has been segmented.
type Document []string

// Segment splits text into grapheme clusters.
func Segment(text string) Document {
	doc := make(Document, 0, len(text))
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		doc = append(doc, g.Str())
	}
	return doc
}

// Join concatenates units into the string form used as a model key.
func Join(units []string) string {
	switch len(units) {
	case 0:
		return ""
	case 1:
		return units[0]
	}
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u)
	}
	return b.String()
}

// UnitCount returns the number of grapheme clusters in s.
func UnitCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
