package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= 50 && x < 150 && y >= 50 && y < 150 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "qrhunt "+Version))
}

func TestEvaluate_MemoryLedger(t *testing.T) {
	t.Setenv("QRHUNT_RENDER_DIR", t.TempDir())
	path := writePNG(t)

	out, err := run(t, "--storage-driver", "memory", "evaluate", "--user", "alice", path)
	require.NoError(t, err)

	var got struct {
		SubmissionID string `json:"submission_id"`
		Outcome      struct {
			Status string `json:"status"`
			Points int64  `json:"points"`
		} `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.SubmissionID)
	assert.Equal(t, "SCORED", got.Outcome.Status)
	assert.Equal(t, int64(1), got.Outcome.Points)
}

func TestEvaluate_SQLitePersistsAcrossRuns(t *testing.T) {
	t.Setenv("QRHUNT_RENDER_DIR", t.TempDir())
	db := filepath.Join(t.TempDir(), "hunt.db")
	path := writePNG(t)

	_, err := run(t, "--storage-dsn", db, "evaluate", "--user", "bob", path)
	require.NoError(t, err)

	out, err := run(t, "--storage-dsn", db, "evaluate", "--user", "bob", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"DUPLICATE"`)
}

func TestEvaluate_RequiresUser(t *testing.T) {
	_, err := run(t, "--storage-driver", "memory", "evaluate", writePNG(t))
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "--worker-mode", "thread", "evaluate", "--user", "carol", writePNG(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker.mode")
}
