package entity

// Library is one physical branch exposed by a backend. ID is globally unique
// and always of the form "<resolverID>:<native id>".
type Library struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	ResolverID string      `json:"resolver_id"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
