package graphfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Bundle member names.
const (
	graphMember = "graph.json"
	metaMember  = "meta.toml"
)

// BundleExt is the extension of zipped graph bundles.
const BundleExt = ".fsmc"

// MetaVersion is the bundle layout written by this package.
const MetaVersion = 1

// Meta describes a bundled graph.
type Meta struct {
	Version     int       `toml:"version"`
	Name        string    `toml:"name"`
	Description string    `toml:"description,omitempty"`
	Saved       time.Time `toml:"saved"`
}

// WriteFile writes d to path. Paths ending in BundleExt get a zip bundle
// with metadata; anything else gets plain JSON.
func WriteFile(path string, d Document, meta Meta) error {
	if !strings.EqualFold(filepath.Ext(path), BundleExt) {
		data, err := ToJSON(d, true)
		if err != nil {
			return err
		}
		return os.WriteFile(path, append(data, '\n'), 0o644)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteBundle(file, d, meta); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteBundle writes d and meta to w as a zip bundle.
func WriteBundle(w io.Writer, d Document, meta Meta) error {
	if meta.Version == 0 {
		meta.Version = MetaVersion
	}
	if meta.Saved.IsZero() {
		meta.Saved = time.Now().UTC().Truncate(time.Second)
	}

	data, err := ToJSON(d, true)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	gw, err := zw.Create(graphMember)
	if err != nil {
		return err
	}
	if _, err := gw.Write(data); err != nil {
		return err
	}

	mw, err := zw.Create(metaMember)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(mw).Encode(meta); err != nil {
		return fmt.Errorf("encode %s: %w", metaMember, err)
	}

	return zw.Close()
}

// ReadFile reads a document from path, accepting plain JSON or a bundle.
// Plain JSON files carry no metadata.
func ReadFile(path string) (Document, Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, Meta{}, err
	}
	return ReadBytes(data)
}

// ReadBytes reads a document from data, accepting plain JSON or a bundle.
func ReadBytes(data []byte) (Document, Meta, error) {
	if !isZip(data) {
		d, err := ParseJSON(data)
		return d, Meta{}, err
	}
	return ReadBundle(bytes.NewReader(data), int64(len(data)))
}

// ReadBundle reads a zip bundle.
func ReadBundle(r io.ReaderAt, size int64) (Document, Meta, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Document{}, Meta{}, err
	}

	var graphData, metaData []byte
	for _, f := range zr.File {
		if f.Name != graphMember && f.Name != metaMember {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Document{}, Meta{}, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return Document{}, Meta{}, err
		}
		if f.Name == graphMember {
			graphData = data
		} else {
			metaData = data
		}
	}

	if graphData == nil {
		return Document{}, Meta{}, fmt.Errorf("%s not found in bundle", graphMember)
	}

	var meta Meta
	if metaData != nil {
		if _, err := toml.Decode(string(metaData), &meta); err != nil {
			return Document{}, Meta{}, fmt.Errorf("parse %s: %w", metaMember, err)
		}
		if meta.Version > MetaVersion {
			return Document{}, Meta{}, fmt.Errorf("bundle version %d is newer than supported %d", meta.Version, MetaVersion)
		}
	}

	d, err := ParseJSON(graphData)
	if err != nil {
		return Document{}, Meta{}, err
	}
	return d, meta, nil
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
