package workbooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

// fakeGate implements FileGate for tests with counters.
type fakeGate struct {
	acquireErr error
	acquires   atomic.Int64
	releases   atomic.Int64
}

func (g *fakeGate) AcquireFile(ctx context.Context) error {
	g.acquires.Add(1)
	return g.acquireErr
}
func (g *fakeGate) ReleaseFile() { g.releases.Add(1) }

type denyAll struct{}

func (denyAll) ValidateOpenPath(string) (string, error) {
	return "", mcperr.Errorf(mcperr.PermissionDenied, "denied")
}
func (denyAll) ValidateWritePath(string) (string, error) {
	return "", mcperr.Errorf(mcperr.PermissionDenied, "denied")
}

func TestWithReadReleasesCapacity(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(gate, nil)

	var seen string
	require.NoError(t, m.WithRead(context.Background(), "a.csv", func(p string) error {
		seen = p
		return nil
	}))
	require.Equal(t, "a.csv", seen)

	boom := errors.New("boom")
	require.ErrorIs(t, m.WithRead(context.Background(), "a.csv", func(string) error { return boom }), boom)
	require.Equal(t, int64(2), gate.acquires.Load())
	require.Equal(t, int64(2), gate.releases.Load())
}

func TestGateFailureIsBusy(t *testing.T) {
	gate := &fakeGate{acquireErr: context.DeadlineExceeded}
	m := NewManager(gate, nil)

	err := m.WithRead(context.Background(), "a.csv", func(string) error {
		t.Fatal("fn must not run without capacity")
		return nil
	})
	require.Equal(t, mcperr.BusyResource, mcperr.CodeOf(err))
	require.Equal(t, int64(0), gate.releases.Load())
}

func TestValidatorRunsFirst(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(gate, denyAll{})

	err := m.WithRead(context.Background(), "a.csv", func(string) error { return nil })
	require.Equal(t, mcperr.PermissionDenied, mcperr.CodeOf(err))
	err = m.WithWrite(context.Background(), "a.xlsx", func(*excelize.File, bool) error { return nil })
	require.Equal(t, mcperr.PermissionDenied, mcperr.CodeOf(err))
	require.Equal(t, int64(0), gate.acquires.Load())
}

func TestWithWriteCreatesThenReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	m := NewManager(nil, nil)

	require.NoError(t, m.WithWrite(context.Background(), path, func(f *excelize.File, created bool) error {
		require.True(t, created)
		return f.SetCellValue("Sheet1", "A1", "first")
	}))

	require.NoError(t, m.WithWrite(context.Background(), path, func(f *excelize.File, created bool) error {
		require.False(t, created)
		v, err := f.GetCellValue("Sheet1", "A1")
		require.NoError(t, err)
		require.Equal(t, "first", v)
		return f.SetCellValue("Sheet1", "A2", "second")
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue("Sheet1", "A2")
	require.NoError(t, err)
	require.Equal(t, "second", v)
}

func TestWithWriteReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	m := NewManager(nil, nil)
	require.NoError(t, m.WithWrite(context.Background(), path, func(f *excelize.File, created bool) error {
		require.True(t, created)
		return nil
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestWithWriteFnErrorSkipsSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	m := NewManager(nil, nil)
	boom := errors.New("boom")

	err := m.WithWrite(context.Background(), path, func(*excelize.File, bool) error { return boom })
	require.ErrorIs(t, err, boom)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestWithWriteSaveFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "book.xlsx")
	m := NewManager(nil, nil)

	err := m.WithWrite(context.Background(), path, func(*excelize.File, bool) error { return nil })
	require.ErrorIs(t, err, mcperr.ErrWriteFailed)
}
