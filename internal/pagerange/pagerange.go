// Package pagerange turns a user-supplied page specification such as
// "1,3-5,9" into the pages it selects from a document.
//
// Parsing is lenient per token and strict only on the whole: a token that is
// malformed or out of range is dropped, and it is up to the caller to reject
// an empty selection.
package pagerange

import (
	"sort"
	"strconv"
	"strings"
)

// Parse returns the distinct pages selected by spec, ascending, each within
// [1, total]. Tokens are comma separated and are either a page number or an
// inclusive "A-B" range.
func Parse(spec string, total int) []int {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			start, end, ok := parseRange(part)
			if !ok {
				continue
			}
			// Clamp before iterating so "1-999999999" costs at most total steps.
			start = max(start, 1)
			end = min(end, total)
			for p := start; p <= end; p++ {
				seen[p] = struct{}{}
			}
			continue
		}
		if !isDigits(part) {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		if p >= 1 && p <= total {
			seen[p] = struct{}{}
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// parseRange splits an "A-B" token on its first dash. Both sides must be
// integers; surrounding blanks are allowed.
func parseRange(part string) (int, int, bool) {
	left, right, _ := strings.Cut(part, "-")
	start, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
