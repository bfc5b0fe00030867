package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jacket.png")
	data := []byte("\x89PNG\r\n\x1a\n0000")
	require.NoError(t, os.WriteFile(path, data, 0644))

	img, err := readImage(path)
	require.NoError(t, err)
	assert.Equal(t, "jacket.png", img.Filename)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, data, img.Data)
}

func TestReadImage_Missing(t *testing.T) {
	_, err := readImage(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.ErrorContains(t, err, "failed to read image")
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, map[string]string{"name": "jacket"}))
	assert.Equal(t, "{\n  \"name\": \"jacket\"\n}\n", out.String())
}

func TestPrintJSON_EncodeError(t *testing.T) {
	var out bytes.Buffer
	err := printJSON(&out, math.Inf(1))
	assert.ErrorContains(t, err, "failed to encode result")
	assert.Empty(t, out.String())
}
