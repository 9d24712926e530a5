package store

// Tier identifies which persistence backend currently serves reads and
// writes. Transitions are one-way within a session: a classified remote
// failure demotes Remote to Local (or Memory), and a failing local medium
// demotes to Memory. A fresh session starts over from the configured tier.
type Tier int

const (
	TierRemote Tier = iota // remote service preferred, local mirror kept as backup
	TierLocal              // remote disabled for this session, local cache authoritative
	TierMemory             // nothing persists; the in-memory snapshot is all there is
)

func (t Tier) String() string {
	switch t {
	case TierRemote:
		return "remote"
	case TierLocal:
		return "local"
	case TierMemory:
		return "memory"
	default:
		return "unknown"
	}
}
