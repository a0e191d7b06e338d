package patterns

import "strings"

// Root cause kinds as they appear in candidate strings such as "cart.Failure".
const (
	KindFailure        = "Failure"
	KindCPU            = "cpu"
	KindMemory         = "memory"
	KindNetworkLatency = "networkLatency"
	KindLatency        = "latency"
	KindLargeGc        = "LargeGc"
	KindUnreachable    = "Unreachable"
	KindCacheFailure   = "CacheFailure"
	KindFloodHomepage  = "FloodHomepage"
)

// LatencyKinds is the order in which latency candidates are matched for a service.
var LatencyKinds = []string{
	KindCPU,
	KindMemory,
	KindNetworkLatency,
	KindLatency,
	KindFailure,
	KindLargeGc,
	KindUnreachable,
	KindCacheFailure,
	KindFloodHomepage,
}

type Candidate struct {
	Service string
	Kind    string
}

func (c Candidate) String() string {
	if c.Kind == "" {
		return c.Service
	}
	return c.Service + "." + c.Kind
}

// ParseCandidate splits a candidate at its first dot. A candidate without a dot is a
// bare service.
func ParseCandidate(candidate string) Candidate {
	service, kind, found := strings.Cut(candidate, ".")
	if !found {
		return Candidate{Service: candidate}
	}
	return Candidate{Service: service, Kind: kind}
}

// ServicesOfKind returns, in first-seen order, the services of candidates with the given kind.
func ServicesOfKind(candidates []string, kind string) []string {
	seen := make(map[string]struct{})
	var services []string
	for _, raw := range candidates {
		candidate := ParseCandidate(raw)
		if candidate.Kind != kind || candidate.Service == "" {
			continue
		}
		if _, ok := seen[candidate.Service]; ok {
			continue
		}
		seen[candidate.Service] = struct{}{}
		services = append(services, candidate.Service)
	}
	return services
}

// MatchCandidate returns the first of service.kind for kinds, then the bare service,
// that appears in candidates.
func MatchCandidate(service string, candidates []string, kinds []string) (string, bool) {
	present := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		present[candidate] = struct{}{}
	}
	for _, kind := range kinds {
		name := Candidate{Service: service, Kind: kind}.String()
		if _, ok := present[name]; ok {
			return name, true
		}
	}
	if _, ok := present[service]; ok {
		return service, true
	}
	return "", false
}
