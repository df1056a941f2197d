package extract

import (
	"strings"

	"github.com/pfrederiksen/minerva-scrape/internal/pattern"
)

// Items returns the reward lines found in segment, canonicalised as
// "Plan: <name> <quantity> Gold". Duplicates are dropped and the first
// occurrence keeps its position. The result is never nil.
func Items(segment string, lib pattern.Library) []string {
	items := make([]string, 0)
	seen := make(map[string]bool)

	for _, m := range lib.Item.FindAllStringSubmatch(segment, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		it := "Plan: " + name + " " + m[2] + " Gold"
		if seen[it] {
			continue
		}
		seen[it] = true
		items = append(items, it)
	}
	return items
}
