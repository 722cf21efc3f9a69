package lib

// RelayKind is the type of a gossip relay message
type RelayKind string

const (
	RelayChat      RelayKind = "chat"      // free text posted to the shared channel; inspected by the warden
	RelayHeartbeat RelayKind = "heartbeat" // presence and optional progress report
	RelayPaper     RelayKind = "paper"     // a paper announcement; handled by the submission path
)

// RelayMessage is a message delivered by the external transport
type RelayMessage struct {
	Kind     RelayKind `json:"kind"`
	SenderID string    `json:"senderId"`
	Text     string    `json:"text,omitempty"`
	// heartbeat fields
	Name        string  `json:"name,omitempty"`
	TPS         float64 `json:"tps,omitempty"`         // observed throughput
	WorkQuality float64 `json:"workQuality,omitempty"` // fraction of validated work in [0,1]
	InfoGain    float64 `json:"infoGain,omitempty"`    // information gain in [0,1]
	Quality     float64 `json:"quality,omitempty"`     // work quality of the interval
	Consumed    float64 `json:"consumed,omitempty"`    // compute consumed since the last heartbeat
	Contributed float64 `json:"contributed,omitempty"` // compute contributed since the last heartbeat
	IdentityKey string  `json:"identityKey,omitempty"` // hex encoded ed25519 public key
	// paper announcement
	Paper     *Paper `json:"paper,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"` // unix milliseconds
}
