package yandex

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	ContentTypeCompressed   = "multipart/form-data"
	DefaultContentTypePlain = "application/octet-stream"

	prefixCompressed = "compressed=1&data="
	prefixPlain      = "compressed=0&data="
)

// Body frames a tracks document for the collector. Despite the form-like prefix the
// result is a single opaque request body, not a form encoding.
func Body(document []byte, compress bool) ([]byte, error) {
	if !compress {
		buf := make([]byte, 0, len(prefixPlain)+len(document))
		buf = append(buf, prefixPlain...)
		return append(buf, document...), nil
	}

	buf := bytes.NewBufferString(prefixCompressed)
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(document); err != nil {
		return nil, fmt.Errorf("could not compress document: %v", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("could not finish compressed document: %v", err)
	}
	return buf.Bytes(), nil
}

// ParseBody is the inverse of Body.
func ParseBody(body []byte) ([]byte, bool, error) {
	switch {
	case bytes.HasPrefix(body, []byte(prefixPlain)):
		return body[len(prefixPlain):], false, nil
	case bytes.HasPrefix(body, []byte(prefixCompressed)):
		zr, err := gzip.NewReader(bytes.NewReader(body[len(prefixCompressed):]))
		if err != nil {
			return nil, true, fmt.Errorf("could not open compressed document: %v", err)
		}
		defer zr.Close()
		document, err := io.ReadAll(zr)
		if err != nil {
			return nil, true, fmt.Errorf("could not decompress document: %v", err)
		}
		return document, true, nil
	default:
		return nil, false, fmt.Errorf("unexpected body prefix")
	}
}

func ContentType(compress bool, plain string) string {
	if compress {
		return ContentTypeCompressed
	}
	if plain == "" {
		return DefaultContentTypePlain
	}
	return plain
}
