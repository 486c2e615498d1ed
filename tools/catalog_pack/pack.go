package catalogpack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"combatsim/broker/internal/catalog"
)

// Bundle describes a packed catalog.
type Bundle struct {
	Source     string `json:"source"`
	Output     string `json:"output"`
	Codec      string `json:"codec"`
	RawBytes   int    `json:"raw_bytes"`
	PackedSize int    `json:"packed_bytes"`
	Parts      int    `json:"parts"`
	Bots       int    `json:"bots"`
}

// Ratio reports the packed size as a fraction of the raw size.
func (b Bundle) Ratio() float64 {
	if b.RawBytes == 0 {
		return 0
	}
	return float64(b.PackedSize) / float64(b.RawBytes)
}

// Pack validates the catalog at src and writes it compressed with codec into outDir.
// The bundle keeps the source name and appends the codec extension, e.g. bots.yaml.zst.
func Pack(src, codec, outDir string) (Bundle, error) {
	if strings.TrimSpace(src) == "" {
		return Bundle{}, fmt.Errorf("source catalog must be provided")
	}
	compressor, err := catalog.CompressorByName(codec)
	if err != nil {
		return Bundle{}, err
	}
	if catalog.CompressorForPath(src) != nil {
		return Bundle{}, fmt.Errorf("%s is already compressed", filepath.Base(src))
	}

	//1.- Refuse to pack documents the service would reject at startup.
	cat, err := catalog.LoadFile(src)
	if err != nil {
		return Bundle{}, err
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		return Bundle{}, err
	}
	packed, err := compressor.Compress(raw)
	if err != nil {
		return Bundle{}, err
	}

	if outDir == "" {
		outDir = filepath.Dir(src)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Bundle{}, err
	}
	out := filepath.Join(outDir, filepath.Base(src)+compressor.Extension())
	if err := os.WriteFile(out, packed, 0o644); err != nil {
		return Bundle{}, err
	}

	//2.- Read the bundle back through the loader so a broken codec never ships.
	if _, err := catalog.LoadFile(out); err != nil {
		return Bundle{}, fmt.Errorf("verify bundle: %w", err)
	}
	parts, bots := cat.Len()
	return Bundle{
		Source:     src,
		Output:     out,
		Codec:      compressor.Name(),
		RawBytes:   len(raw),
		PackedSize: len(packed),
		Parts:      parts,
		Bots:       bots,
	}, nil
}

// Unpack restores the plain document of a bundle.
func Unpack(path string) ([]byte, error) {
	compressor := catalog.CompressorForPath(path)
	if compressor == nil {
		return nil, fmt.Errorf("%s is not a catalog bundle", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compressor.Decompress(data)
}
