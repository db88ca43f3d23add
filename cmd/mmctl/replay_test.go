package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouao/CSAPP-Labs/internal/config"
)

func TestReplayCommand(t *testing.T) {
	tests := []struct {
		name        string
		trace       string
		check       bool
		json        bool
		maxHeap     string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "sample table",
			trace:       sampleTrace,
			wantContain: []string{"sample.rep", "Perf index", "Policy: Malloclab"},
		},
		{
			name:        "sample with checker",
			trace:       sampleTrace,
			check:       true,
			wantContain: []string{"sample.rep"},
		},
		{
			name:        "sample as JSON",
			trace:       sampleTrace,
			json:        true,
			wantContain: []string{`"perf_index"`, `"peak_live_bytes": 768`},
		},
		{
			name:    "heap too small",
			trace:   sampleTrace,
			maxHeap: "1KiB",
			wantErr: true,
		},
		{
			name:    "malformed trace",
			trace:   "10\n1\n1\n1\nz 0 1\n",
			wantErr: true,
		},
		{
			name:    "free of dead block",
			trace:   "10\n1\n1\n1\nf 0\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			jsonOut = tt.json
			replayCheck = tt.check
			replayMaxHeap = tt.maxHeap

			path := writeTrace(t, "sample.rep", tt.trace)
			output, err := captureOutput(t, func() error {
				return runReplay([]string{path})
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("runReplay() error = %v, wantErr %v\nOutput: %s", err, tt.wantErr, output)
				return
			}
			if tt.json && !tt.wantErr {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestReplayCommand_GeneratedTrace(t *testing.T) {
	resetFlags()
	out := filepath.Join(t.TempDir(), "gen.rep")
	genOps, genIDs, genMaxSize, genSeed = 2000, 500, "2KiB", 17

	_, err := captureOutput(t, func() error { return runGen([]string{out}) })
	require.NoError(t, err)

	jsonOut = true
	output, err := captureOutput(t, func() error { return runReplay([]string{out, out}) })
	require.NoError(t, err)

	var report replayReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	require.Len(t, report.Results, 2)
	require.NotNil(t, report.Summary)
	assert.Equal(t, 2, report.Summary.Traces)
	assert.Greater(t, report.Summary.PerfIndex, 0.0)
	assert.LessOrEqual(t, report.Summary.PerfIndex, 1.0)
}

func TestReplayOptions_FlagsOverrideConfig(t *testing.T) {
	resetFlags()
	cfgPath := filepath.Join(t.TempDir(), "mmctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("policy: fine\ndriver:\n  iterations: 4\n  check: true\n"), 0644))
	configPath = cfgPath

	cfg, err := loadConfig()
	require.NoError(t, err)
	replayMaxHeap = "8MiB"
	replayPolicy = "coarse"

	opts, err := replayOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, 8<<20, opts.MaxHeap)
	assert.Equal(t, "Coarse", opts.Policy.Name)
	assert.Equal(t, 4, opts.Iterations)
	assert.True(t, opts.Check)
	require.NotNil(t, opts.UtilWeight)
	assert.Equal(t, config.DefaultUtilWeight, *opts.UtilWeight)

	replayMaxHeap = "huge"
	_, err = replayOptions(config.Default())
	require.Error(t, err)
}

func TestReplayOptions_ZeroUtilWeightKept(t *testing.T) {
	resetFlags()
	cfgPath := filepath.Join(t.TempDir(), "mmctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("driver:\n  util_weight: 0\n"), 0644))
	configPath = cfgPath

	cfg, err := loadConfig()
	require.NoError(t, err)
	opts, err := replayOptions(cfg)
	require.NoError(t, err)
	require.NotNil(t, opts.UtilWeight)
	assert.Zero(t, *opts.UtilWeight)
}

func TestReplayCommand_MissingFile(t *testing.T) {
	resetFlags()
	_, err := captureOutput(t, func() error {
		return runReplay([]string{filepath.Join(t.TempDir(), "nope.rep")})
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}
