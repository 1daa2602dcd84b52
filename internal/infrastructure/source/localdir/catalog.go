package localdir

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
	"github.com/jonzo97/mchp-fpga-mcp/internal/core/ports"
)

const (
	defaultDocID   = "unknown_doc"
	defaultVersion = "unknown_version"
)

var versionSuffix = regexp.MustCompile(`_(V[A-Z0-9]+)$`)

// Catalog discovers PDF source files in one directory. Identity is
// derived per file (filename convention for doc id/version, sha256 for
// content), never trusted from manifest bookkeeping.
type Catalog struct {
	dir string
}

func New(dir string) (*Catalog, error) {
	if dir == "" {
		dir = "./incoming"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create incoming dir: %w", err)
	}
	return &Catalog{dir: dir}, nil
}

func (c *Catalog) List(ctx context.Context) ([]ports.SourceFile, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("glob incoming dir: %w", err)
	}
	sort.Strings(matches)

	files := make([]ports.SourceFile, 0, len(matches))
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		docID, version := ParseIdentity(path)
		files = append(files, ports.SourceFile{
			Path:      path,
			DocID:     docID,
			Version:   version,
			SizeBytes: info.Size(),
		})
	}
	return files, nil
}

// Checksum streams the file through sha256 so large manuals never load
// into memory whole.
func (c *Catalog) Checksum(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (c *Catalog) Resolve(ctx context.Context, docID, version string) (ports.SourceFile, error) {
	files, err := c.List(ctx)
	if err != nil {
		return ports.SourceFile{}, err
	}
	for _, file := range files {
		if file.DocID == docID && file.Version == version {
			return file, nil
		}
	}
	return ports.SourceFile{}, domain.WrapError(
		domain.ErrMissingSource,
		"resolve source file",
		fmt.Errorf("%s:%s not found in %s", docID, version, c.dir),
	)
}

// ParseIdentity infers doc id and version from the filename convention.
// "PolarFire_FPGA_Board_Design_UG0726_V11.pdf" yields
// ("PolarFire FPGA Board Design UG0726", "V11").
func ParseIdentity(path string) (docID, version string) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if m := versionSuffix.FindStringSubmatchIndex(stem); m != nil {
		version = stem[m[2]:m[3]]
		docID = strings.ReplaceAll(stem[:m[0]], "_", " ")
		return docID, version
	}

	parts := strings.Split(stem, "_")
	if len(parts) > 1 {
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
	if stem == "" {
		return defaultDocID, defaultVersion
	}
	return stem, defaultVersion
}
