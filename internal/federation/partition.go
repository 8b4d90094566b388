package federation

import "heekkr/internal/resolver"

type assignment struct {
	resolver   resolver.Resolver
	libraryIDs []string
}

// partition splits libraryIDs by owning resolver. Resolvers owning no id are
// left out. Registration order of resolvers and request order of ids are
// kept; ids owned by no resolver are dropped.
func partition(resolvers []resolver.Resolver, libraryIDs []string) []assignment {
	var work []assignment
	for _, r := range resolvers {
		id := r.ID()
		var owned []string
		for _, libraryID := range libraryIDs {
			if resolver.Owns(id, libraryID) {
				owned = append(owned, libraryID)
			}
		}
		if len(owned) > 0 {
			work = append(work, assignment{resolver: r, libraryIDs: owned})
		}
	}
	return work
}
