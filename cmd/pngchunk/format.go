package main

import (
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

const ellipsis = "…"

// truncate shortens s to at most width grapheme clusters, so combining
// marks and emoji sequences are never split. width <= 0 disables it.
func truncate(s string, width int) string {
	if width <= 0 || uniseg.GraphemeClusterCount(s) <= width {
		return s
	}

	var sb strings.Builder
	gr := uniseg.NewGraphemes(s)
	for n := 0; n < width-1 && gr.Next(); n++ {
		sb.WriteString(gr.Str())
	}
	sb.WriteString(ellipsis)
	return sb.String()
}

// quote escapes control characters while keeping printable unicode.
func quote(s string) string {
	return strconv.Quote(s)
}
