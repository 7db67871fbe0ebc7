package wa

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderQRDataURI(t *testing.T) {
	uri, err := RenderQRDataURI("2@abc123,def456,ghi789")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), "got prefix %q", uri[:32])

	// payload must round-trip as valid base64
	_, err = base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
}

func TestBuildDataURISniffsMime(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	uri, err := BuildDataURI(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	uri, err = BuildDataURI(strings.NewReader("plain text payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:text/plain"))
}
