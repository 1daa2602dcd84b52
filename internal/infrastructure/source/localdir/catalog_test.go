package localdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

func TestParseIdentity(t *testing.T) {
	cases := []struct {
		path    string
		docID   string
		version string
	}{
		{"PolarFire_FPGA_Board_Design_UG0726_V11.pdf", "PolarFire FPGA Board Design UG0726", "V11"},
		{"SmartFusion2_DS0128_VB.pdf", "SmartFusion2 DS0128", "VB"},
		{"Clocking_Guide_2021.pdf", "Clocking Guide", "2021"},
		{"standalone.pdf", "standalone", "unknown_version"},
	}
	for _, tc := range cases {
		docID, version := ParseIdentity(tc.path)
		if docID != tc.docID || version != tc.version {
			t.Errorf("ParseIdentity(%q) = (%q, %q), want (%q, %q)",
				tc.path, docID, version, tc.docID, tc.version)
		}
	}
}

func TestChecksumIsContentAddressed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "Doc_A_V1.pdf")
	b := filepath.Join(dir, "Renamed_Doc_V9.pdf")
	c := filepath.Join(dir, "Doc_C_V1.pdf")
	if err := os.WriteFile(a, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c, []byte("different bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	sumA, err := catalog.Checksum(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	sumB, err := catalog.Checksum(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	sumC, err := catalog.Checksum(ctx, c)
	if err != nil {
		t.Fatal(err)
	}

	if sumA != sumB {
		t.Fatalf("identical bytes under different names: %s != %s", sumA, sumB)
	}
	if sumA == sumC {
		t.Fatalf("different bytes produced the same checksum")
	}
}

func TestResolveMatchesDerivedIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PolarFire_UG0726_V11.pdf")
	if err := os.WriteFile(path, []byte("pdf bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	file, err := catalog.Resolve(context.Background(), "PolarFire UG0726", "V11")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if file.Path != path {
		t.Fatalf("path = %s, want %s", file.Path, path)
	}

	_, err = catalog.Resolve(context.Background(), "PolarFire UG0726", "V12")
	if !domain.IsKind(err, domain.ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}
