package patterns

import (
	"sort"
	"strings"
)

// ServiceEvidence is the total pattern count attributed to a service.
type ServiceEvidence struct {
	Service string `json:"service"`
	Count   int64  `json:"count"`
}

type Ranking struct {
	Services []ServiceEvidence
	// Unparsed counts patterns whose expression could not be parsed.
	Unparsed int
	// Unmapped counts parsed patterns that named no known service.
	Unmapped int
}

// Top returns the best supported service, if any.
func (r Ranking) Top() (ServiceEvidence, bool) {
	if len(r.Services) == 0 {
		return ServiceEvidence{}, false
	}
	return r.Services[0], true
}

// RankServices attributes each pattern's count to the service it names, ordered by
// count descending and then by name. When restrictTo is non-empty, services outside
// it are dropped.
func RankServices(result Result, catalog Catalog, restrictTo []string) Ranking {
	allowed := make(map[string]struct{}, len(restrictTo))
	for _, service := range restrictTo {
		allowed[service] = struct{}{}
	}

	var ranking Ranking
	counts := make(map[string]int64)
	for _, pattern := range result.Patterns {
		terms, err := ParseExpression(pattern.Expression)
		if err != nil {
			ranking.Unparsed++
			continue
		}
		service, ok := serviceOf(terms, catalog)
		if !ok {
			ranking.Unmapped++
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[service]; !ok {
				continue
			}
		}
		counts[service] += pattern.Count
	}

	ranking.Services = make([]ServiceEvidence, 0, len(counts))
	for service, count := range counts {
		ranking.Services = append(ranking.Services, ServiceEvidence{Service: service, Count: count})
	}
	sort.Slice(ranking.Services, func(i, j int) bool {
		if ranking.Services[i].Count != ranking.Services[j].Count {
			return ranking.Services[i].Count > ranking.Services[j].Count
		}
		return ranking.Services[i].Service < ranking.Services[j].Service
	})
	return ranking
}

// serviceOf prefers an explicit serviceName term over a span name alias.
func serviceOf(terms []Term, catalog Catalog) (string, bool) {
	for _, term := range terms {
		if strings.EqualFold(term.Field, FieldServiceName) {
			if service, ok := catalog.ServiceFor(term); ok {
				return service, true
			}
		}
	}
	for _, term := range terms {
		if strings.EqualFold(term.Field, FieldServiceName) {
			continue
		}
		if service, ok := catalog.ServiceFor(term); ok {
			return service, true
		}
	}
	return "", false
}
