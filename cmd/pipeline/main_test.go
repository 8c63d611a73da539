package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/adapters/tabular"
)

func TestRootCommandListsStages(t *testing.T) {
	root := newRootCmd()
	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"load", "preprocess", "train", "evaluate", "run", "generate"})
	assert.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}

func TestGenerateWritesReadableCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "raw", "bookings.csv")
	root := newRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"generate", "--rows", "30", "--output", out})
	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "wrote 30 bookings")

	table, err := tabular.NewDataReader(out).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, 30, table.NumRows())
}

func TestStageFailsOnMissingEnvFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"load", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
