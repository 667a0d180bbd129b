package applog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w := New(path).WithClock(func() time.Time { return fixed })

	w.Append("[INFO ] device created\n")
	w.Append("[WARN ] slow path")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"2024-05-01T12:00:00Z [INFO ] device created\n"+
			"2024-05-01T12:00:00Z [WARN ] slow path\n",
		string(data))
}

func TestWriter_AppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	_, err := New(path).Write([]byte("more\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\nmore\n", string(data))
}

func TestWriter_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	w := New(path)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Append(fmt.Sprintf("message %02d %s", i, strings.Repeat("x", 200)))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.Contains(t, line, " message ")
		assert.True(t, strings.HasSuffix(line, strings.Repeat("x", 200)), "interleaved line: %q", line)
	}
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, New("").Path())
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	var extra bytes.Buffer

	quiet := NewLogger(New(path), &extra, false)
	quiet.Debug("hidden")
	quiet.Info("shown", "scene", "geometry/tri")

	loud := NewLogger(New(path), nil, true)
	loud.Debug("detail")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "scene=geometry/tri")
	assert.Contains(t, string(data), "msg=detail")
	assert.Contains(t, extra.String(), "msg=shown")
}

func TestNewLogger_UnwritableFileStillReachesExtra(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "test.log")
	var extra bytes.Buffer

	logger := NewLogger(New(path), &extra, false)
	logger.Info("first")
	logger.Info("second")

	assert.Contains(t, extra.String(), "msg=first")
	assert.Contains(t, extra.String(), "msg=second")
	assert.NoFileExists(t, path)
}
