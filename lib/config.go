package lib

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/units"
)

/* This file implements logic for 'user controlled' configurations of each module of the node */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath = "config.json" // the file path for the node configuration
)

// Config is the structure of the user configuration options for a hive node
type Config struct {
	MainConfig       // main options spanning over all modules
	RPCConfig        // rpc API options
	StoreConfig      // replicated store options
	DedupConfig      // duplicate detection options
	ConsensusConfig  // paper validation options
	ReputationConfig // rank and progress normalization options
	WardenConfig     // moderation options
	ArchiveConfig    // content archival options
	MetricsConfig    // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:       DefaultMainConfig(),
		RPCConfig:        DefaultRPCConfig(),
		StoreConfig:      DefaultStoreConfig(),
		DedupConfig:      DefaultDedupConfig(),
		ConsensusConfig:  DefaultConsensusConfig(),
		ReputationConfig: DefaultReputationConfig(),
		WardenConfig:     DefaultWardenConfig(),
		ArchiveConfig:    DefaultArchiveConfig(),
		MetricsConfig:    DefaultMetricsConfig(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel string `json:"logLevel"` // any level includes the levels above it: debug < info < warning < error
	NodeID   string `json:"nodeID"`   // the replica identity used to break last-write-wins ties
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel: "info",
		NodeID:   "hive-node-1",
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// RPC CONFIG BELOW

type RPCConfig struct {
	RPCPort           string  `json:"rpcPort"`           // the port where the rpc server is hosted
	RPCUrl            string  `json:"rpcURL"`            // the url where the rpc server is hosted
	TimeoutS          int     `json:"timeoutS"`          // the rpc request timeout in seconds
	MaxConnections    int     `json:"maxConnections"`    // the maximum simultaneous rpc connections
	RequestsPerSecond float64 `json:"requestsPerSecond"` // sustained request rate across all callers
	RequestBurst      int     `json:"requestBurst"`      // burst allowance on top of the sustained rate
	MaxRequestBytes   int64   `json:"maxRequestBytes"`   // the largest accepted request body
}

// DefaultRPCConfig() serves the rpc on localhost:50080
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:           "50080",
		RPCUrl:            "http://localhost:50080",
		TimeoutS:          10,
		MaxConnections:    512,
		RequestsPerSecond: 50,
		RequestBurst:      100,
		MaxRequestBytes:   int64(2 * units.MB),
	}
}

// STORE CONFIG BELOW

// StoreConfig is user configurations for the local replica and the settle-read budgets
type StoreConfig struct {
	DataDirPath     string `json:"dataDirPath"`     // path of the designated folder where the application stores its data
	DBName          string `json:"dbName"`          // name of the database
	InMemory        bool   `json:"inMemory"`        // non-disk replica, only for testing
	SettleMS        int    `json:"settleMS"`        // how long a read waits for replicas before proceeding with what it has
	WriteTimeoutMS  int    `json:"writeTimeoutMS"`  // how long a write waits for replica acknowledgements
	ValueLogMaxSize int64  `json:"valueLogMaxSize"` // the badger value log file size
}

// DefaultDataDirPath() is $USERHOME/.hive
func DefaultDataDirPath() string {
	// get the user home
	home, err := os.UserHomeDir()
	// if unable to get the user home
	if err != nil {
		// fatal error
		panic(err)
	}
	// exit with full default data directory path
	return filepath.Join(home, ".hive")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath:     DefaultDataDirPath(),
		DBName:          "hive",
		InMemory:        false,
		SettleMS:        1500,
		WriteTimeoutMS:  2000,
		ValueLogMaxSize: int64(256 * units.MB),
	}
}

// Settle() returns the settle-read budget as a duration
func (s StoreConfig) Settle() time.Duration { return time.Duration(s.SettleMS) * time.Millisecond }

// WriteTimeout() returns the write acknowledgement budget as a duration
func (s StoreConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// DEDUP CONFIG BELOW

// DedupConfig controls near-duplicate detection; thresholds are Jaccard similarities of significant title words
type DedupConfig struct {
	RejectThreshold       float64 `json:"rejectThreshold"`       // at or above: reject against a verified paper
	WarnThreshold         float64 `json:"warnThreshold"`         // at or above: allow but warn
	CorroboratedThreshold float64 `json:"corroboratedThreshold"` // at or above with a word count match on a verified paper: reject
	CacheCapacity         int64   `json:"cacheCapacity"`         // entries per registry cache
	RebuildIntervalS      int     `json:"rebuildIntervalS"`      // how often the caches are re-seeded from the store
	ScanSettleMS          int     `json:"scanSettleMS"`          // settle budget of the fuzzy scan
}

// DefaultDedupConfig() returns the 0.90 / 0.50 policy
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		RejectThreshold:       0.90,
		WarnThreshold:         0.50,
		CorroboratedThreshold: 0.75,
		CacheCapacity:         10_000,
		RebuildIntervalS:      300,
		ScanSettleMS:          1500,
	}
}

// CONSENSUS CONFIG BELOW

// ConsensusConfig defines the submission format and the peer validation thresholds
type ConsensusConfig struct {
	ValidationThreshold int      `json:"validationThreshold"` // approvals needed to verify a paper
	FlagThreshold       int      `json:"flagThreshold"`       // flags needed to reject a paper
	MinTitleLength      int      `json:"minTitleLength"`      // characters
	DraftMinWords       int      `json:"draftMinWords"`       // drafts and revisions
	FinalMinWords       int      `json:"finalMinWords"`       // final submissions
	MinReferences       int      `json:"minReferences"`       // bracketed [n] markers
	RequiredSections    []string `json:"requiredSections"`    // section headers every paper must carry
}

// DefaultConsensusConfig() returns the network's publication rules
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		ValidationThreshold: 2,
		FlagThreshold:       3,
		MinTitleLength:      5,
		DraftMinWords:       300,
		FinalMinWords:       1500,
		MinReferences:       3,
		RequiredSections: []string{
			"Abstract", "Introduction", "Methodology", "Results", "Discussion", "Conclusion", "References",
		},
	}
}

// REPUTATION CONFIG BELOW

// ReputationConfig holds the τ/κ weights and the trust accrual options
type ReputationConfig struct {
	Alpha                 float64 `json:"alpha"`                 // κ weight of throughput
	Beta                  float64 `json:"beta"`                  // κ weight of validated work
	Gamma                 float64 `json:"gamma"`                 // κ weight of information gain
	Lambda                float64 `json:"lambda"`                // reputation decay
	TPSMax                float64 `json:"tpsMax"`                // throughput that saturates the α term
	TrustPerValidation    float64 `json:"trustPerValidation"`    // trust earned per effective validation
	MaxTrust              float64 `json:"maxTrust"`              // trust ceiling
	IdentityMultiplier    float64 `json:"identityMultiplier"`    // power multiplier for agents with an identity key
	FairnessFloor         float64 `json:"fairnessFloor"`         // lowest acceptable contributed/consumed compute ratio
	RogueMinContributions int     `json:"rogueMinContributions"` // contributions before the fairness floor is enforced
	RogueScanIntervalS    int     `json:"rogueScanIntervalS"`    // how often rogue detection runs
	OnlineWindowS         int     `json:"onlineWindowS"`         // heartbeat age after which an agent counts as offline
}

// DefaultReputationConfig() returns α=0.3 β=0.5 γ=0.2 λ=0.95
func DefaultReputationConfig() ReputationConfig {
	return ReputationConfig{
		Alpha:                 0.3,
		Beta:                  0.5,
		Gamma:                 0.2,
		Lambda:                0.95,
		TPSMax:                100,
		TrustPerValidation:    0.1,
		MaxTrust:              50,
		IdentityMultiplier:    1.5,
		FairnessFloor:         0.5,
		RogueMinContributions: 5,
		RogueScanIntervalS:    600,
		OnlineWindowS:         90,
	}
}

// WARDEN CONFIG BELOW

// WardenConfig is the content policy and strike limit
type WardenConfig struct {
	StrikeLimit   int      `json:"strikeLimit"`   // strikes that ban an agent
	BannedPhrases []string `json:"bannedPhrases"` // matched as case-insensitive substrings
	BannedWords   []string `json:"bannedWords"`   // matched on word boundaries
	Whitelist     []string `json:"whitelist"`     // agent ids that are never inspected
}

// DefaultWardenConfig() returns the network's default content policy
func DefaultWardenConfig() WardenConfig {
	return WardenConfig{
		StrikeLimit: 3,
		BannedPhrases: []string{
			"get rich", "buy now", "free money", "guaranteed returns", "send eth", "connect your wallet", "click here",
		},
		BannedWords: []string{"token", "airdrop", "presale", "scam", "casino", "pump"},
		Whitelist:   []string{"warden", "hive-operator"},
	}
}

// ARCHIVE CONFIG BELOW

// ArchiveConfig points at the content-addressed pinning service
type ArchiveConfig struct {
	ArchiveEnabled  bool   `json:"archiveEnabled"`  // archive verified papers
	Endpoint        string `json:"endpoint"`        // pinning service url; empty uses the local content addresser
	MaxAttempts     uint64 `json:"maxAttempts"`     // total attempts per archive call
	BackoffStepMS   int    `json:"backoffStepMS"`   // linear backoff step between attempts
	AttemptTimeoutS int    `json:"attemptTimeoutS"` // per attempt timeout
}

// DefaultArchiveConfig() returns 3 attempts with a 1s linear step
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		ArchiveEnabled:  true,
		Endpoint:        "",
		MaxAttempts:     3,
		BackoffStepMS:   1000,
		AttemptTimeoutS: 30,
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	Enabled           bool   `json:"enabled"`           // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:           true,
		PrometheusAddress: "0.0.0.0:9090",
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(filepath string) error {
	// convert the config to indented 'pretty' json bytes
	jsonBytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	// write the config.json file to the data directory
	return os.WriteFile(filepath, jsonBytes, os.ModePerm)
}

// NewConfigFromFile() populates a Config object from a JSON file
func NewConfigFromFile(filepath string) (Config, error) {
	// read the file into bytes
	fileBytes, err := os.ReadFile(filepath)
	if err != nil {
		return Config{}, err
	}
	// define the default config to fill in any blanks in the file
	c := DefaultConfig()
	// populate the default config with the file bytes
	if err = json.Unmarshal(fileBytes, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
