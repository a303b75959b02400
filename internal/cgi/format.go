package cgi

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/beward-tools/bewardctl/internal/protocol"
)

// FormatFields renders a module's fields as aligned "key: value" lines in
// device order.
func FormatFields(name string, fields *protocol.Fields) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== %s ===\n", name))
	if fields.Len() == 0 {
		b.WriteString("(no fields)\n")
		return b.String()
	}

	width := lo.Max(lo.Map(fields.Keys(), func(k string, _ int) int { return len(k) }))
	fields.Each(func(k, v string) {
		b.WriteString(fmt.Sprintf("%-*s  %s\n", width+1, k+":", v))
	})
	return b.String()
}

// FormatChanges renders the pending changes of a set command, marking keys
// the module does not know.
func FormatChanges(name string, current, changes map[string]string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== %s changes ===\n", name))
	keys := lo.Keys(changes)
	slices.Sort(keys)
	for _, k := range keys {
		old, ok := current[k]
		if !ok {
			b.WriteString(fmt.Sprintf("  %s: %s (unknown field, ignored)\n", k, changes[k]))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %s → %s\n", k, old, changes[k]))
	}
	if len(keys) == 0 {
		b.WriteString("(no changes specified)\n")
	}
	return b.String()
}

// FormatDiff renders the fields that differ between two field sets.
func FormatDiff(name string, old, new map[string]string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("=== %s differences ===\n", name))

	keys := lo.Uniq(append(lo.Keys(old), lo.Keys(new)...))
	slices.Sort(keys)

	hasChanges := false
	for _, k := range keys {
		o, inOld := old[k]
		n, inNew := new[k]
		switch {
		case !inOld:
			b.WriteString(fmt.Sprintf("  + %s: %s\n", k, n))
		case !inNew:
			b.WriteString(fmt.Sprintf("  - %s: %s\n", k, o))
		case o != n:
			b.WriteString(fmt.Sprintf("  %s: %s → %s\n", k, o, n))
		default:
			continue
		}
		hasChanges = true
	}
	if !hasChanges {
		b.WriteString("(no differences detected)\n")
	}
	return b.String()
}
