package storage

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentTypeForFormat(t *testing.T) {
	assert.Equal(t, "image/jpeg", contentTypeForFormat("jpeg"))
	assert.Equal(t, "image/png", contentTypeForFormat("png"))
	assert.Equal(t, "image/gif", contentTypeForFormat("gif"))
	assert.Equal(t, "image/webp", contentTypeForFormat("webp"))
	assert.Equal(t, "application/octet-stream", contentTypeForFormat("tiff"))
}

func TestExtensionForFormat(t *testing.T) {
	assert.Equal(t, "png", extensionForFormat("png"))
	assert.Equal(t, "bin", extensionForFormat(""))
}

func TestCountingReader(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 4096)
	reader := newCountingReader(bytes.NewReader(data))

	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, int64(4096), reader.Bytes())
}
