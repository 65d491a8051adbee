package ktype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML form of an image.
//
//	name: boot
//	slide: false
//	fixed:
//	  - name: site.proc
//	    size: 40
//	    signature: "pp d"
//	var:
//	  - name: site.pathbuf
//	    header_size: 16
//	    header_signature: "pd"
//	    type_size: 8
//	    type_signature: "d"
//	    flags: [priv_acct]
type Manifest struct {
	Name  string          `yaml:"name"`
	Slide bool            `yaml:"slide"`
	Fixed []FixedManifest `yaml:"fixed"`
	Var   []VarManifest   `yaml:"var"`
}

// FixedManifest is one fixed descriptor.
type FixedManifest struct {
	Name      string   `yaml:"name"`
	Size      uint64   `yaml:"size"`
	Signature string   `yaml:"signature"`
	Flags     []string `yaml:"flags,omitempty"`
}

// VarManifest is one variable descriptor.
type VarManifest struct {
	Name            string   `yaml:"name"`
	HeaderSize      uint64   `yaml:"header_size"`
	HeaderSignature string   `yaml:"header_signature,omitempty"`
	TypeSize        uint64   `yaml:"type_size"`
	TypeSignature   string   `yaml:"type_signature"`
	Flags           []string `yaml:"flags,omitempty"`
}

// ParseManifest decodes a YAML manifest into a Static image. Unknown keys
// are rejected.
func ParseManifest(r io.Reader) (*Static, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &Static{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	return m.Image()
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := ParseManifest(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if img.Name == "" {
		img.Name = path
	}
	return img, nil
}

// Image builds the descriptors described by m.
func (m *Manifest) Image() (*Static, error) {
	img := &Static{Name: m.Name, Slide: m.Slide}
	for i, fm := range m.Fixed {
		flags, err := parseFlags(fm.Flags)
		if err != nil {
			return nil, fmt.Errorf("fixed[%d]: %w", i, err)
		}
		d, err := NewFixed(fm.Name, fm.Size, fm.Signature, flags)
		if err != nil {
			return nil, fmt.Errorf("fixed[%d]: %w", i, err)
		}
		img.AddFixed(d)
	}
	for i, vm := range m.Var {
		flags, err := parseFlags(vm.Flags)
		if err != nil {
			return nil, fmt.Errorf("var[%d]: %w", i, err)
		}
		d, err := NewVar(vm.Name, vm.HeaderSize, vm.HeaderSignature, vm.TypeSize, vm.TypeSignature, flags)
		if err != nil {
			return nil, fmt.Errorf("var[%d]: %w", i, err)
		}
		img.AddVar(d)
	}
	return img, nil
}

func parseFlags(names []string) (Flags, error) {
	var f Flags
	for _, n := range names {
		bit, err := ParseFlag(n)
		if err != nil {
			return 0, err
		}
		f |= bit
	}
	return f, nil
}
