package attrcache

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"

	"github.com/goforj/attrcache/cachecore"
)

// CompressionCodec represents a value compression algorithm.
type CompressionCodec = cachecore.CompressionCodec

const (
	CompressionNone = cachecore.CompressionNone
	CompressionGzip = cachecore.CompressionGzip
)

var (
	compressMagic = []byte("CMP1")

	ErrValueTooLarge      = errors.New("attrcache: value exceeds max size")
	ErrUnsupportedCodec   = errors.New("attrcache: unsupported compression codec")
	ErrCorruptCompression = errors.New("attrcache: corrupt compressed payload")
)

// encodeValue applies codec and then the size limit, so a value that only
// fits once compressed is accepted.
func encodeValue(codec CompressionCodec, max int, value []byte) ([]byte, error) {
	switch codec {
	case CompressionNone:
		if max > 0 && len(value) > max {
			return nil, ErrValueTooLarge
		}
		return value, nil
	case CompressionGzip:
		var buf bytes.Buffer
		buf.Write(compressMagic)
		_ = buf.WriteByte('g')
		zw, _ := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if _, err := zw.Write(value); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		out := buf.Bytes()
		if max > 0 && len(out) > max {
			return nil, ErrValueTooLarge
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}

// decodeValue passes through payloads without the compression header, so
// entries written before compression was enabled still decode.
func decodeValue(in []byte) ([]byte, error) {
	if len(in) < len(compressMagic)+1 || !bytes.Equal(in[:len(compressMagic)], compressMagic) {
		return in, nil
	}
	payload := in[len(compressMagic)+1:]
	switch in[len(compressMagic)] {
	case 'g':
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, ErrCorruptCompression
		}
		defer gr.Close()
		out, err := io.ReadAll(gr)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
