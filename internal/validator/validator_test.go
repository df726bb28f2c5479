package validator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hekzory/nota/internal/runenv"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

func TestValidateSupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	v := New(runenv.Env{Cwd: dir})

	for _, ext := range SupportedExtensions {
		for _, name := range []string{"file" + ext, "UPPER" + strings.ToUpper(ext)} {
			writeFile(t, dir, name)
			assert.NoError(t, v.Validate(name), "extension %s", name)
		}
	}
}

func TestValidateUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	v := New(runenv.Env{Cwd: dir})

	for _, name := range []string{"notes.txt", "README.md", "data.json", "Makefile", "archive.tar.gz", "style.css"} {
		writeFile(t, dir, name)

		err := v.Validate(name)
		var extErr *UnsupportedExtensionError
		require.True(t, errors.As(err, &extErr), "%s: got %v", name, err)
		assert.Contains(t, err.Error(), "Supported extensions: .js, .jsx")
		assert.Contains(t, err.Error(), ".bash")
	}
}

func TestValidateMissingFile(t *testing.T) {
	v := New(runenv.Env{Cwd: t.TempDir()})

	err := v.Validate("foo.py")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "File not found: foo.py", err.Error())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pkg.go"), 0755))
	v := New(runenv.Env{Cwd: dir})

	err := v.Validate("pkg.go")
	var naf *NotAFileError
	require.True(t, errors.As(err, &naf))
	assert.Equal(t, "pkg.go is not a file", err.Error())
}

func TestValidateRootPrefix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0755))
	writeFile(t, dir, filepath.Join("src", "index.ts"))

	v := New(runenv.Env{Cwd: dir})
	assert.NoError(t, v.Validate("@/src/index.ts"))
}

func TestUnsupportedExtensionWithoutExt(t *testing.T) {
	err := &UnsupportedExtensionError{}
	assert.True(t, strings.HasPrefix(err.Error(), "Unsupported file type: (none)\n"))
}
