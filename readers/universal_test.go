package readers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_UniversalFileReader_CanRead(t *testing.T) {
	r := UniversalFileReader{}
	assert.True(t, r.CanRead("some/file.docx"))
	assert.True(t, r.CanRead("some/file.odt"))
	assert.True(t, r.CanRead("some/file.PDF"))
	assert.True(t, r.CanRead("some/file.txt"))
	assert.True(t, r.CanRead("some/file.xml"))
	assert.False(t, r.CanRead("some/file.exe"))
	assert.False(t, r.CanRead("some/noext"))
}

func Test_UniversalFileReader_ReadText(t *testing.T) {
	r := UniversalFileReader{}

	txt, err := r.ReadText("testdata/test.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", txt)

	txt, err = r.ReadText("testdata/manual.md")
	require.NoError(t, err)
	assert.Equal(t, "Fehlercode E42: Pumpe prüfen", txt)
}

func Test_UniversalFileReader_Extract(t *testing.T) {
	r := UniversalFileReader{}

	txt, err := r.Extract(strings.NewReader("pump manual"), "manual.txt")
	require.NoError(t, err)
	assert.Equal(t, "pump manual", txt)

	_, err = r.Extract(strings.NewReader("MZ"), "setup.exe")
	assert.ErrorContains(t, err, "unsupported document type")
}
