package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamt19/bullet/internal/tensor"
	"github.com/liamt19/bullet/internal/trainer"
)

const tinySchedule = `
net_id: tiny
eval_scale: 400
batch_size: 4
batches_per_superbatch: 2
start_superbatch: 1
end_superbatch: 2
save_rate: 1
wdl: {type: constant, value: 0.5}
lr: {type: constant, value: 0.001}
loss: {type: mse}
`

const tinyData = `x5o/7/7/7/7/7/o5x x 0 1 | 0 | 0.5
x5o/7/7/7/7/7/o5x o 0 1 | 35 | 1.0
# comment
xx4o/7/7/7/7/7/o5x o 0 1 | -120 | 0.0
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewCLI()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "bullet "+trainer.Version+"\n", out)
}

func TestSchedule(t *testing.T) {
	out, err := execute(t, "schedule", "--config", writeFile(t, "s.yaml", tinySchedule))
	require.NoError(t, err)
	assert.Contains(t, out, "tiny")
	assert.NotContains(t, out, "\x1b[")

	out, err = execute(t, "schedule", "--colour")
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[31m")
}

func TestScheduleMissingFile(t *testing.T) {
	_, err := execute(t, "schedule", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTrain(t *testing.T) {
	outDir := t.TempDir()
	_, err := execute(t, "train",
		"--config", writeFile(t, "s.yaml", tinySchedule),
		"--data", writeFile(t, "d.txt", tinyData),
		"--out", outDir,
		"--threads", "2",
		"--hidden", "4",
		"--dtype", "f16",
	)
	require.NoError(t, err)

	for _, name := range []string{"tiny-1.bnet", "tiny-2.bnet"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	_, err = execute(t, "train",
		"--config", writeFile(t, "s.yaml", strings.Replace(tinySchedule, "end_superbatch: 2", "end_superbatch: 3", 1)),
		"--data", writeFile(t, "d.txt", tinyData),
		"--out", outDir,
		"--hidden", "4",
		"--resume", filepath.Join(outDir, "tiny-2.bnet"),
	)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "tiny-3.bnet"))
	assert.NoError(t, err)
}

func TestTrainRejectsBadFlags(t *testing.T) {
	dataPath := writeFile(t, "d.txt", tinyData)
	for name, args := range map[string][]string{
		"no data":    {"train"},
		"device":     {"train", "--data", dataPath, "--device", "tpu"},
		"activation": {"train", "--data", dataPath, "--activation", "gelu"},
		"dtype":      {"train", "--data", dataPath, "--dtype", "bf16"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestParseActivation(t *testing.T) {
	a, err := parseActivation("SCReLU")
	require.NoError(t, err)
	assert.Equal(t, tensor.SCReLU, a)
}
