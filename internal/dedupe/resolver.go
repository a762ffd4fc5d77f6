// Package dedupe decides whether an incoming normalized record matches
// a doctor already in storage. Strategies are tried in a fixed priority
// order and the first hit wins; the strategy set is swappable so a
// stronger scheme can replace the weak name match without touching the
// orchestrator.
package dedupe

import (
	"log"

	"github.com/doctordir/importer/internal/mapper"
)

// Match method names, in declining signal strength.
const (
	MethodProviderKey = "provider_key"
	MethodIdme        = "idme"
	MethodNameDegree  = "name_degree"
)

// DoctorFinder is the storage lookup surface the strategies run against.
type DoctorFinder interface {
	FindDoctorByProviderKey(key string) (uint, bool, error)
	FindDoctorByIdme(idme string) (uint, bool, error)
	FindDoctorByNameAndDegree(first, last, degree string) (uint, bool, error)
}

// Match identifies the stored doctor an incoming record resolves to and
// the strategy that produced the hit.
type Match struct {
	DoctorID uint
	Method   string
}

// Strategy is one duplicate-detection scheme.
type Strategy interface {
	Name() string
	Find(doc mapper.NormalizedDoctor) (uint, bool, error)
}

// Resolver tries its strategies in order, stopping at the first hit.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the default three-tier resolver: provider key,
// then idme, then the (first, last, degree) triple. The name match is
// the weakest signal and a known source of false positives; a record
// with no reliable key degrades to it silently.
func NewResolver(finder DoctorFinder) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			providerKeyStrategy{finder: finder},
			idmeStrategy{finder: finder},
			nameDegreeStrategy{finder: finder},
		},
	}
}

// NewResolverWithStrategies builds a resolver with a custom strategy
// order, for substituting a stronger matching scheme.
func NewResolverWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve classifies the record against storage. The second return is
// false when no strategy matched.
func (r *Resolver) Resolve(doc mapper.NormalizedDoctor) (Match, bool, error) {
	for _, strategy := range r.strategies {
		id, ok, err := strategy.Find(doc)
		if err != nil {
			return Match{}, false, err
		}
		if !ok {
			continue
		}
		if strategy.Name() == MethodNameDegree {
			// Ambiguity, not an error: two distinct remote identities can
			// collide on name+degree and there is no way to tell them apart
			// here. Logged so operators can audit weak matches.
			log.Printf("Duplicate resolver: weak name+degree match for %q (doctor %d)", doc.FullName(), id)
		}
		return Match{DoctorID: id, Method: strategy.Name()}, true, nil
	}
	return Match{}, false, nil
}

type providerKeyStrategy struct {
	finder DoctorFinder
}

func (providerKeyStrategy) Name() string { return MethodProviderKey }

func (s providerKeyStrategy) Find(doc mapper.NormalizedDoctor) (uint, bool, error) {
	if doc.ProviderKey == "" {
		return 0, false, nil
	}
	return s.finder.FindDoctorByProviderKey(doc.ProviderKey)
}

type idmeStrategy struct {
	finder DoctorFinder
}

func (idmeStrategy) Name() string { return MethodIdme }

func (s idmeStrategy) Find(doc mapper.NormalizedDoctor) (uint, bool, error) {
	if doc.Idme == "" {
		return 0, false, nil
	}
	return s.finder.FindDoctorByIdme(doc.Idme)
}

type nameDegreeStrategy struct {
	finder DoctorFinder
}

func (nameDegreeStrategy) Name() string { return MethodNameDegree }

func (s nameDegreeStrategy) Find(doc mapper.NormalizedDoctor) (uint, bool, error) {
	if doc.FirstName == "" || doc.LastName == "" {
		return 0, false, nil
	}
	return s.finder.FindDoctorByNameAndDegree(doc.FirstName, doc.LastName, doc.Degree)
}
