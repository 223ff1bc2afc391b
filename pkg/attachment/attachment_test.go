package attachment

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestFormatLink(t *testing.T) {
	assert.Equal(t, "[a.png](https://cdn/a.png)", FormatLink("a.png", "https://cdn/a.png"))
}

func TestFormatLinks_JoinsInOrder(t *testing.T) {
	formatted := FormatLinks([]UploadResult{
		{Name: "a.png", URL: "urlA"},
		{Name: "b.png", URL: "urlB"},
	})

	assert.Equal(t, "[a.png](urlA)\n[b.png](urlB)", formatted)
}

func TestFormatLinks_DropsFailedEntries(t *testing.T) {
	formatted := FormatLinks([]UploadResult{
		{Name: "a.png"},
		{Name: "b.png", URL: "urlB"},
		{URL: "urlC"},
	})

	assert.Equal(t, "[b.png](urlB)", formatted)
}

func TestFormatLinks_Empty(t *testing.T) {
	assert.Equal(t, "", FormatLinks(nil))
	assert.Equal(t, "", FormatLinks([]UploadResult{{Name: "x"}}))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "![Uploading...]()", Placeholder(""))
	assert.Equal(t, "![Téléversement...]()", Placeholder("Téléversement"))
}

func TestNormalizeName(t *testing.T) {
	name, err := NormalizeName("  my photo (1).png ")
	assert.NilError(t, err)
	assert.Equal(t, "my_photo_1_.png", name)

	_, err = NormalizeName("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NormalizeName("///")
	assert.ErrorContains(t, err, "invalid")
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	assert.NilError(t, os.WriteFile(path, []byte("hello"), 0o644))

	fd, err := FromPath(path)
	assert.NilError(t, err)
	assert.Equal(t, "notes.txt", fd.Name)
	assert.Equal(t, int64(5), fd.SizeBytes)

	rc, err := fd.Open()
	assert.NilError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	assert.NilError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = FromPath(dir)
	assert.ErrorIs(t, err, ErrIsDirectory)

	_, err = FromPath(filepath.Join(dir, "missing"))
	assert.Assert(t, is.ErrorContains(err, "stat attachment"))
}

func TestFromBytes(t *testing.T) {
	fd := FromBytes("clip.png", []byte{1, 2, 3})
	assert.Equal(t, int64(3), fd.SizeBytes)
	assert.Equal(t, "", fd.Path)
	assert.DeepEqual(t, []string{"clip.png"}, Names([]FileDescriptor{fd}))
}
