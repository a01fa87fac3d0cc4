package types

import (
	"fmt"
	"strings"
)

// UniqueHeaders names every column of a header row. Header text is kept as
// typed (spaces included) because column aliases may depend on it. Blank
// headers become __EMPTY, __EMPTY_1, ...; a repeated header gets _1, _2, ...
// appended.
func UniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	count := make(map[string]int)

	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "__EMPTY"
		}

		name := h
		for used[name] {
			count[h]++
			name = fmt.Sprintf("%s_%d", h, count[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
