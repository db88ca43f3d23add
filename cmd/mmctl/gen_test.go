package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shouao/CSAPP-Labs/internal/trace"
)

func TestGenCommand(t *testing.T) {
	resetFlags()
	out := filepath.Join(t.TempDir(), "random.rep")
	genOps, genIDs, genMaxSize, genSeed = 400, 100, "1KiB", 3

	output, err := captureOutput(t, func() error { return runGen([]string{out}) })
	require.NoError(t, err)
	assertContains(t, output, []string{"Wrote", "random.rep"})

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	tr, err := trace.Parse(f)
	require.NoError(t, err)
	require.NoError(t, tr.Validate())
	for _, op := range tr.Ops {
		require.LessOrEqual(t, op.Size, 1024)
	}
}

func TestGenCommand_Stdout(t *testing.T) {
	resetFlags()
	genOps, genIDs = 20, 10

	output, err := captureOutput(t, func() error { return runGen([]string{"-"}) })
	require.NoError(t, err)
	require.NotContains(t, output, "Wrote")

	tr, err := trace.Parse(strings.NewReader(output))
	require.NoError(t, err)
	require.NotEmpty(t, tr.Ops)
}

func TestGenCommand_BadFlags(t *testing.T) {
	resetFlags()
	genMaxSize = "big"
	_, err := captureOutput(t, func() error { return runGen([]string{"-"}) })
	require.Error(t, err)

	resetFlags()
	genOps = 0
	_, err = captureOutput(t, func() error { return runGen([]string{"-"}) })
	require.Error(t, err)
}
