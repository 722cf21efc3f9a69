package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p2pclaw/hive/lib"
	"github.com/stretchr/testify/require"
)

func TestReadRelay(t *testing.T) {
	config, l = lib.DefaultConfig(), lib.NewNullLogger()
	feed := strings.Join([]string{
		`{"kind":"chat","senderId":"a1","text":"hello"}`,
		`not json`,
		`{"kind":"heartbeat","senderId":"a2","tps":10}`,
	}, "\n")
	// execute the function call
	var got []lib.RelayMessage
	for msg := range readRelay(context.Background(), strings.NewReader(feed)) {
		got = append(got, msg)
	}
	// the malformed line is skipped
	require.Len(t, got, 2)
	require.Equal(t, lib.RelayChat, got[0].Kind)
	require.Equal(t, "hello", got[0].Text)
	require.Equal(t, lib.RelayHeartbeat, got[1].Kind)
	require.Equal(t, 10.0, got[1].TPS)
}

func TestReadRelayCanceled(t *testing.T) {
	config, l = lib.DefaultConfig(), lib.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// nobody receives, so the reader exits on the canceled context and closes the channel
	messages := readRelay(ctx, strings.NewReader(`{"kind":"chat","senderId":"a1","text":"hello"}`))
	for range messages {
	}
}

func TestInitializeDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hive")
	// the first call creates the directory and the default config
	c := InitializeDataDirectory(dir, lib.NewNullLogger())
	require.Equal(t, dir, c.DataDirPath)
	_, err := os.Stat(filepath.Join(dir, lib.ConfigFilePath))
	require.NoError(t, err)
	// the second call loads the file it wrote
	require.Equal(t, c.NodeID, InitializeDataDirectory(dir, lib.NewNullLogger()).NodeID)
}
