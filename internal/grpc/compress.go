package grpc

import (
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/gzip"
)

// Message compressors registered with grpc-go. Clients opt in with grpc.UseCompressor.
const (
	ZstdCompressor   = "zstd"
	SnappyCompressor = "snappy"
	GZIPCompressor   = "gzip"
)

func init() {
	encoding.RegisterCompressor(zstdCompressor{})
	encoding.RegisterCompressor(snappyCompressor{})
}

// zstdCompressor streams messages through klauspost zstd.
type zstdCompressor struct{}

func (zstdCompressor) Name() string { return ZstdCompressor }

func (zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
}

func (zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &zstdReader{decoder: decoder}, nil
}

// zstdReader releases the decoder once the message is drained.
type zstdReader struct {
	decoder *zstd.Decoder
}

func (z *zstdReader) Read(p []byte) (int, error) {
	n, err := z.decoder.Read(p)
	if err != nil {
		z.decoder.Close()
	}
	return n, err
}

// snappyCompressor uses the framed snappy stream format.
type snappyCompressor struct{}

func (snappyCompressor) Name() string { return SnappyCompressor }

func (snappyCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

func (snappyCompressor) Decompress(r io.Reader) (io.Reader, error) {
	return snappy.NewReader(r), nil
}
