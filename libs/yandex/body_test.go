package yandex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBody(t *testing.T) {
	document := []byte(`<?xml version="1.0" encoding="utf-8"?><tracks clid="c"></tracks>`)

	tests := []struct {
		name     string
		compress bool
		prefix   string
	}{
		{name: "plain", compress: false, prefix: "compressed=0&data="},
		{name: "compressed", compress: true, prefix: "compressed=1&data="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Body(document, tt.compress)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, string(body[:len(tt.prefix)]))

			decoded, compressed, err := ParseBody(body)
			require.NoError(t, err)
			assert.Equal(t, tt.compress, compressed)
			assert.Equal(t, document, decoded)
		})
	}
}

func TestBodyPlainIsVerbatim(t *testing.T) {
	body, err := Body([]byte("<x/>"), false)
	require.NoError(t, err)
	assert.Equal(t, "compressed=0&data=<x/>", string(body))
}

func TestParseBodyRejectsUnknownPrefix(t *testing.T) {
	_, _, err := ParseBody([]byte("data=<x/>"))
	assert.Error(t, err)

	_, _, err = ParseBody([]byte("compressed=1&data=not-gzip"))
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "multipart/form-data", ContentType(true, "text/xml"))
	assert.Equal(t, "text/xml", ContentType(false, "text/xml"))
	assert.Equal(t, "application/octet-stream", ContentType(false, ""))
}
