package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/pkg/mcperr"
)

func mustTempDir(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	// Ensure real path (EvalSymlinks on macOS can change /var -> /private/var)
	real, err := filepath.EvalSymlinks(d)
	require.NoError(t, err)
	return real
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestNewManager_ValidateConfig(t *testing.T) {
	dir := mustTempDir(t)
	m, err := NewManager([]string{dir, "  "}, nil)
	require.NoError(t, err)
	require.NoError(t, m.ValidateConfig())
	require.Equal(t, []string{dir}, m.AllowedDirectories())

	empty, err := NewManagerFromSettings(config.Settings{})
	require.NoError(t, err)
	require.Error(t, empty.ValidateConfig())

	_, err = NewManager([]string{filepath.Join(dir, "missing")}, nil)
	require.Error(t, err)
	_, err = NewManager([]string{dir}, []string{"csv"})
	require.Error(t, err)
}

func TestValidateOpenPath_AllowsEveryReadableFormat(t *testing.T) {
	root := mustTempDir(t)
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)
	for _, name := range []string{"ok.xlsx", "ok.xlsm", "ok.xls", "OK.CSV"} {
		fpath := filepath.Join(sub, name)
		writeFile(t, fpath)
		got, err := m.ValidateOpenPath(fpath)
		require.NoError(t, err, name)
		require.True(t, filepath.IsAbs(got))
		require.Equal(t, fpath, got)
	}
}

func TestValidateOpenPath_DeniesOutsideRoot(t *testing.T) {
	root := mustTempDir(t)
	outside := filepath.Join(mustTempDir(t), "escape.xlsx")
	writeFile(t, outside)

	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)
	_, err = m.ValidateOpenPath(outside)
	require.ErrorIs(t, err, ErrNotAllowed)
	require.Equal(t, mcperr.PermissionDenied, mcperr.CodeOf(err))

	_, err = m.ValidateOpenPath(filepath.Join(root, "..", filepath.Base(filepath.Dir(outside)), "escape.xlsx"))
	require.Error(t, err)
}

func TestValidateOpenPath_DotDotPrefixedNameIsInside(t *testing.T) {
	root := mustTempDir(t)
	fpath := filepath.Join(root, "..data.csv")
	writeFile(t, fpath)

	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)
	_, err = m.ValidateOpenPath(fpath)
	require.NoError(t, err)
}

func TestValidateOpenPath_SymlinkEscapeDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test skipped on Windows")
	}
	root := mustTempDir(t)
	target := filepath.Join(mustTempDir(t), "target.xlsx")
	writeFile(t, target)
	link := filepath.Join(root, "link.xlsx")
	require.NoError(t, os.Symlink(target, link))

	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)
	_, err = m.ValidateOpenPath(link)
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestValidateOpenPath_Errors(t *testing.T) {
	root := mustTempDir(t)
	fp := filepath.Join(root, "bad.txt")
	writeFile(t, fp)

	m, err := NewManager([]string{root}, nil)
	require.NoError(t, err)

	_, err = m.ValidateOpenPath(fp)
	require.ErrorIs(t, err, ErrUnsupportedExtension)
	require.Equal(t, mcperr.UnsupportedFormat, mcperr.CodeOf(err))

	_, err = m.ValidateOpenPath(filepath.Join(root, "missing.csv"))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.ValidateOpenPath("")
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestValidateWritePath(t *testing.T) {
	root := mustTempDir(t)
	m, err := NewManager([]string{root}, []string{".xlsx", ".xlsm"})
	require.NoError(t, err)

	fresh := filepath.Join(root, "new.xlsx")
	got, err := m.ValidateWritePath(fresh)
	require.NoError(t, err)
	require.Equal(t, fresh, got)

	existing := filepath.Join(root, "old.xlsx")
	writeFile(t, existing)
	got, err = m.ValidateWritePath(existing)
	require.NoError(t, err)
	require.Equal(t, existing, got)

	_, err = m.ValidateWritePath(filepath.Join(root, "nope", "new.xlsx"))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.ValidateWritePath(filepath.Join(mustTempDir(t), "new.xlsx"))
	require.ErrorIs(t, err, ErrNotAllowed)

	_, err = m.ValidateWritePath(filepath.Join(root, "new.csv"))
	require.ErrorIs(t, err, ErrUnsupportedExtension)
}
