package domain

// Tier names which fallback level produced a Source.
type Tier string

const (
	TierRemote  Tier = "remote"
	TierLocal   Tier = "local"
	TierBuiltin Tier = "builtin"
)

// Source is the table chosen by the resolver together with where it came from.
type Source struct {
	Tier   Tier
	Origin string // URL, file path, or "builtin"
	Table  Table
	Raw    []byte // raw CSV bytes; nil for the builtin tier
}
