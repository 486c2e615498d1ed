package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"combatsim/broker/tools/catalog_pack"
)

func main() {
	in := flag.String("in", "", "Catalog document (.yaml or .json) to pack")
	codec := flag.String("codec", "zstd", "Compression codec: zstd, snappy or gzip")
	out := flag.String("out", "", "Output directory (defaults to the source directory)")
	unpack := flag.Bool("unpack", false, "Print the plain document of a bundle instead of packing")
	jsonFlag := flag.Bool("json", false, "Emit JSON instead of human-readable output")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "in flag is required")
		os.Exit(1)
	}

	if *unpack {
		data, err := catalogpack.Unpack(*in)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(2)
		}
		_, _ = os.Stdout.Write(data)
		return
	}

	bundle, err := catalogpack.Pack(*in, *codec, *out)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(bundle); err != nil {
			fmt.Fprintln(os.Stderr, "encode error:", err)
			os.Exit(3)
		}
		return
	}
	fmt.Printf("%s -> %s (%s)\n", bundle.Source, bundle.Output, bundle.Codec)
	fmt.Printf("  %d parts, %d bots\n", bundle.Parts, bundle.Bots)
	fmt.Printf("  %d -> %d bytes (%.1f%%)\n", bundle.RawBytes, bundle.PackedSize, bundle.Ratio()*100)
}
