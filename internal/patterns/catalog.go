package patterns

import (
	"sort"
	"strings"
)

// Catalog maps a pattern term onto the service it implicates.
type Catalog interface {
	ServiceFor(term Term) (string, bool)
}

type alias struct {
	fragment string
	service  string
}

// TableCatalog resolves serviceName terms to their value and spanName terms through a
// table of span name fragments, matched case-insensitively. The longest matching
// fragment wins.
type TableCatalog struct {
	aliases []alias
}

func NewTableCatalog(spanAliases map[string]string) *TableCatalog {
	aliases := make([]alias, 0, len(spanAliases))
	for fragment, service := range spanAliases {
		if fragment == "" || service == "" {
			continue
		}
		aliases = append(aliases, alias{fragment: strings.ToLower(fragment), service: service})
	}
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i].fragment) != len(aliases[j].fragment) {
			return len(aliases[i].fragment) > len(aliases[j].fragment)
		}
		return aliases[i].fragment < aliases[j].fragment
	})
	return &TableCatalog{aliases: aliases}
}

func (c *TableCatalog) ServiceFor(term Term) (string, bool) {
	switch {
	case strings.EqualFold(term.Field, FieldServiceName):
		if term.Value == "" {
			return "", false
		}
		return term.Value, true
	case strings.EqualFold(term.Field, FieldSpanName):
		value := strings.ToLower(term.Value)
		for _, a := range c.aliases {
			if strings.Contains(value, a.fragment) {
				return a.service, true
			}
		}
	}
	return "", false
}
