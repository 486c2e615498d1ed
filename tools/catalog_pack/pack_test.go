package catalogpack

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const smallCatalog = `parts:
  - { name: Test Laser, slot: Weapon, type: Energy Gun, coverage: 0, integrity: 10, weapon: { damage: "8-12", damageType: Thermal } }
  - { name: Light Armor Plating, slot: Utility, type: Protection, coverage: 80, integrity: 40 }
bots:
  - name: Target Dummy
    size: Medium
    movement: Walking
    coreIntegrity: 100
    coreCoverage: 100
    parts:
      - { name: Light Armor Plating, number: 2 }
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bots.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestPackRoundTripsEveryCodec(t *testing.T) {
	src := writeCatalog(t, smallCatalog)
	for codec, ext := range map[string]string{"zstd": ".zst", "snappy": ".sz", "gzip": ".gz"} {
		t.Run(codec, func(t *testing.T) {
			outDir := filepath.Join(t.TempDir(), "bundles")
			bundle, err := Pack(src, codec, outDir)
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}
			if bundle.Output != filepath.Join(outDir, "bots.yaml"+ext) || bundle.Codec != codec {
				t.Fatalf("unexpected bundle %+v", bundle)
			}
			if bundle.Parts != 2 || bundle.Bots != 1 || bundle.RawBytes != len(smallCatalog) {
				t.Fatalf("unexpected counts %+v", bundle)
			}
			plain, err := Unpack(bundle.Output)
			if err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			if !bytes.Equal(plain, []byte(smallCatalog)) {
				t.Fatalf("round trip mismatch:\n%s", plain)
			}
		})
	}
}

func TestPackRejectsInvalidInput(t *testing.T) {
	src := writeCatalog(t, smallCatalog)
	if _, err := Pack(src, "lzma", ""); err == nil {
		t.Fatal("expected an unknown codec to fail")
	}
	broken := writeCatalog(t, strings.Replace(smallCatalog, "Light Armor Plating, number", "Missing Plating, number", 1))
	if _, err := Pack(broken, "zstd", ""); err == nil {
		t.Fatal("expected a bot with an unknown part to fail validation")
	}
	if _, err := Unpack(src); err == nil {
		t.Fatal("expected a plain document to be rejected by Unpack")
	}
}

func TestBundleRatio(t *testing.T) {
	if (Bundle{}).Ratio() != 0 {
		t.Fatal("empty bundle ratio must be zero")
	}
	if got := (Bundle{RawBytes: 200, PackedSize: 50}).Ratio(); got != 0.25 {
		t.Fatalf("unexpected ratio %f", got)
	}
}
