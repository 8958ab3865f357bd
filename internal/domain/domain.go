package domain

import (
	"errors"
	"strings"
)

// Domain identifies one of the independent recommendation catalogs.
type Domain string

const (
	DomainMovies   Domain = "movies"
	DomainProducts Domain = "products"
	DomainMusic    Domain = "music"
	DomainCourses  Domain = "courses"
)

// AllDomains lists every catalog in a fixed order. The order is load-bearing:
// the cross-domain ranker encodes a domain as its index in this slice.
var AllDomains = []Domain{DomainMovies, DomainProducts, DomainMusic, DomainCourses}

var (
	ErrUnknownDomain  = errors.New("unknown domain")
	ErrModelNotLoaded = errors.New("model not loaded for domain")
	ErrInvalidCount   = errors.New("count must be positive")
	ErrInvalidAction  = errors.New("invalid action")
)

// ParseDomain validates a domain name from external input. Matching is
// case-insensitive.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(s))
	for _, known := range AllDomains {
		if d == known {
			return d, nil
		}
	}
	return "", ErrUnknownDomain
}

// Index returns the position of d in AllDomains, or -1.
func (d Domain) Index() int {
	for i, known := range AllDomains {
		if d == known {
			return i
		}
	}
	return -1
}

func (d Domain) String() string { return string(d) }
