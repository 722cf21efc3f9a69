package lib

// Agent field names in the store
const (
	FieldName         = "name"
	FieldLastSeen     = "lastSeen"
	FieldOnline       = "online"
	FieldStrikes      = "strikes"
	FieldBanned       = "banned"
	FieldBannedAt     = "bannedAt"
	FieldTau          = "tau"
	FieldKappa        = "kappa"
	FieldReputation   = "reputation"
	FieldProgressAt   = "progressAt"
	FieldIdentityKey  = "identityKey"
	FieldComputeSplit = "computeSplit"

	SetCredited  = "credited"  // credited.<paperId> = average score of the verified paper
	SetValidated = "validated" // validated.<paperId> = timestamp of the validation
	SetStrikes   = "strike"    // strike.<incidentId> = timestamp
	SetPardons   = "pardon"    // pardon.<incidentId> = timestamp
)

// Agent is a network participant; every count is derived from grow-only member leaves so that
// concurrent writers converge on the same value
type Agent struct {
	ID              string             `json:"id"`
	Name            string             `json:"name,omitempty"`
	Contributions   int                `json:"contributions"`
	ValidationsDone int                `json:"validationsDone"`
	Credits         map[string]float64 `json:"credits,omitempty"` // paperId -> quality score of the verified paper
	Strikes         int                `json:"strikes"`
	Banned          bool               `json:"banned"`
	BannedAt        int64              `json:"bannedAt,omitempty"`
	Tau             float64            `json:"tau"`
	Kappa           float64            `json:"kappa"`
	Reputation      float64            `json:"reputation"`
	ProgressAt      int64              `json:"progressAt,omitempty"` // unix ms of the last τ update
	LastSeen        int64              `json:"lastSeen,omitempty"`   // unix ms of the last presence signal
	Online          bool               `json:"online"`
	IdentityKey     string             `json:"identityKey,omitempty"` // hex encoded public key
	ComputeSplit    float64            `json:"computeSplit"`          // contributed / consumed compute
	HasComputeSplit bool               `json:"-"`
}

// AgentFromRecord() decodes an agent record
func AgentFromRecord(id string, r Record) *Agent {
	credits := r.MemberValues(SetCredited)
	strikes := len(r.MemberValues(SetStrikes)) - len(r.MemberValues(SetPardons))
	if strikes < 0 {
		strikes = 0
	}
	return &Agent{
		ID:              id,
		Name:            r.String(FieldName),
		Contributions:   len(credits),
		ValidationsDone: len(r.MemberValues(SetValidated)),
		Credits:         credits,
		Strikes:         strikes,
		Banned:          r.Bool(FieldBanned),
		BannedAt:        r.Int64(FieldBannedAt),
		Tau:             r.Float(FieldTau),
		Kappa:           r.Float(FieldKappa),
		Reputation:      r.Float(FieldReputation),
		ProgressAt:      r.Int64(FieldProgressAt),
		LastSeen:        r.Int64(FieldLastSeen),
		Online:          r.Bool(FieldOnline),
		IdentityKey:     r.String(FieldIdentityKey),
		ComputeSplit:    r.Float(FieldComputeSplit),
		HasComputeSplit: r.Has(FieldComputeSplit),
	}
}

// NewAgent() returns an empty agent, used when no record has materialized yet
func NewAgent(id string) *Agent { return &Agent{ID: id, Credits: map[string]float64{}} }

// AgentPath() returns the store path of an agent
func AgentPath(id string) string { return JoinPath(AgentsPath, id) }

// MempoolPaperPath() returns the store path of a pending paper
func MempoolPaperPath(id string) string { return JoinPath(MempoolPath, id) }

// VerifiedPaperPath() returns the store path of a verified or rejected paper
func VerifiedPaperPath(id string) string { return JoinPath(PapersPath, id) }
