package core

import (
	"iter"
	"strings"
)

// ExtractDesired walks packages in declaration order, actions before
// sequences, and yields one subscription per listed event type. The returned
// sequence is pure and may be ranged over any number of times.
func ExtractDesired(packages []PackageDecl) iter.Seq[DesiredSubscription] {
	return func(yield func(DesiredSubscription) bool) {
		for _, pkg := range packages {
			for _, group := range [][]CallableDecl{pkg.Actions, pkg.Sequences} {
				for _, callable := range group {
					for _, eventType := range callable.ListensFor {
						eventType = strings.TrimSpace(eventType)
						if eventType == "" {
							continue
						}
						desired := DesiredSubscription{
							EventType:    eventType,
							PackageName:  pkg.Name,
							CallableName: callable.Name,
						}
						if !yield(desired) {
							return
						}
					}
				}
			}
		}
	}
}

// CollectDesired materializes the sequence, collapsing duplicate
// (event, package, callable) triples to their first occurrence.
func CollectDesired(seq iter.Seq[DesiredSubscription]) []DesiredSubscription {
	seen := map[DesiredSubscription]struct{}{}
	out := []DesiredSubscription{}
	for desired := range seq {
		if _, ok := seen[desired]; ok {
			continue
		}
		seen[desired] = struct{}{}
		out = append(out, desired)
	}
	return out
}
