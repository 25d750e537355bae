package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMaskArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("sink", "", "")
	fs.String("cache", "", "")
	fs.String("game", "", "")
	fs.Bool("version", false, "")
	args := []string{
		"stardb-exporter",
		"-game", "gi",
		"-sink", "type=redis&url=redis://:secret@localhost:6379/0",
		"-cache=type=lru",
		"achievements",
	}
	masked, tampered := maskArgs(fs, args)
	require.True(t, tampered)
	require.NotContains(t, masked[4], "secret")
	require.Equal(t, "gi", masked[2])
	require.Equal(t, args[5], masked[5])

	_, tampered = maskArgs(fs, []string{"stardb-exporter", "-game=hsr", "-cache", "type=lru"})
	require.False(t, tampered)
} // end TestMaskArgs()

func TestMergeConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"Game": "hsr",
		"Keys": "keys.json",
		"Sink": "type=file&path=out.json",
		"Syslog": "type=host",
		"Replay": ["a.pcap"],
		"Grace": "5s"
	}`), 0o644))
	fileConfig, err := loadConfigFromFile(path)
	require.NoError(t, err)
	require.True(t, fileConfig.Syslog.IsSet())
	require.Equal(t, "type=host", fileConfig.Syslog.String())

	cli := &Config{Game: "gi", Replay: []string{"b.pcap"}, command: "achievements"}
	merged := mergeConfigs(fileConfig, cli)
	require.Equal(t, "gi", merged.Game)
	require.Equal(t, "keys.json", merged.Keys)
	require.Equal(t, []string{"b.pcap"}, merged.Replay)
	require.Equal(t, "achievements", merged.command)
	require.Equal(t, 5*time.Second, merged.grace())

	merged.Grace = "soon"
	require.Equal(t, 2*time.Second, merged.grace())
} // end TestMergeConfigs()
