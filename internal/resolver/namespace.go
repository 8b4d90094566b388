package resolver

import "strings"

const Separator = ":"

// Namespace builds the globally unique id of a backend-native library id.
func Namespace(resolverID, native string) string {
	return resolverID + Separator + native
}

// Owns reports whether fullID lives in the namespace of resolverID.
func Owns(resolverID, fullID string) bool {
	return strings.HasPrefix(fullID, resolverID+Separator)
}

// StripNamespace returns the native part of fullID. ok is false when fullID
// does not belong to resolverID.
func StripNamespace(resolverID, fullID string) (native string, ok bool) {
	return strings.CutPrefix(fullID, resolverID+Separator)
}
