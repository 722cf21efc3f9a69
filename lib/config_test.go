package lib

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	// calculate expected
	expected := Config{
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
	// execute the function call
	got := DefaultConfig()
	// compare got vs expected
	diff := cmp.Diff(expected, got)
	require.Empty(t, diff, "config mismatch: %s", diff)
}

func TestFileConfig(t *testing.T) {
	filePath := "./test_config"
	// define a variable to test upon
	config := DefaultConfig()
	config.WardenConfig.BannedWords = append(config.WardenConfig.BannedWords, "rugpull")
	config.RejectThreshold = 0.95
	// write to file
	require.NoError(t, config.WriteToFile(filePath))
	defer os.RemoveAll(filePath)
	// read from file
	got, err := NewConfigFromFile(filePath)
	require.NoError(t, err)
	// compare got vs expected
	require.Empty(t, cmp.Diff(config, got))
}

func TestPartialFileConfig(t *testing.T) {
	filePath := "./test_partial_config"
	// a file that only overrides a single option
	require.NoError(t, os.WriteFile(filePath, []byte(`{"validationThreshold": 3}`), os.ModePerm))
	defer os.RemoveAll(filePath)
	// read from file
	got, err := NewConfigFromFile(filePath)
	require.NoError(t, err)
	// the override is applied and the rest falls back to defaults
	expected := DefaultConfig()
	expected.ValidationThreshold = 3
	require.Empty(t, cmp.Diff(expected, got))
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected int32
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"nonsense", DebugLevel},
	}
	for _, test := range tests {
		t.Run(test.level, func(t *testing.T) {
			m := MainConfig{LogLevel: test.level}
			require.Equal(t, test.expected, m.GetLogLevel())
		})
	}
}
