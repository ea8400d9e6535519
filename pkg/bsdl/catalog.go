package bsdl

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Catalog maps IDCODEs to the BSDL devices that declare them. Exact
// patterns are checked before ones with don't-care bits.
type Catalog struct {
	exact     map[uint32]*Device
	wildcards []*Device
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{exact: make(map[uint32]*Device)}
}

// Add registers d. A later device with the same exact IDCODE replaces an
// earlier one.
func (c *Catalog) Add(d *Device) {
	if d.Mask == 0xFFFFFFFF {
		c.exact[d.Value] = d
		return
	}
	c.wildcards = append(c.wildcards, d)
}

// Len returns the number of registered devices.
func (c *Catalog) Len() int {
	return len(c.exact) + len(c.wildcards)
}

// Lookup finds the device declaring id.
func (c *Catalog) Lookup(id uint32) (*Device, bool) {
	if d, ok := c.exact[id]; ok {
		return d, true
	}
	for _, d := range c.wildcards {
		if d.Matches(id) {
			return d, true
		}
	}
	return nil, false
}

// DeviceName returns the entity name declaring id.
func (c *Catalog) DeviceName(id uint32) (string, bool) {
	d, ok := c.Lookup(id)
	if !ok {
		return "", false
	}
	return d.Entity, true
}

// LoadDir recursively loads all .bsd/.bsdl/.bsm files under root. Files
// that fail to parse or lack an IDCODE are skipped and reported together
// in the returned error; the catalog keeps everything that loaded.
func LoadDir(root string) (*Catalog, error) {
	parser, err := NewParser()
	if err != nil {
		return nil, err
	}
	c := NewCatalog()
	var skipped []error
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isBSDLFile(path) {
			return nil
		}
		file, err := parser.ParseFile(path)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		dev, err := DeviceFromFile(file)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		dev.Path = path
		c.Add(dev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bsdl: load %s: %w", root, err)
	}
	return c, errors.Join(skipped...)
}

func isBSDLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bsd", ".bsdl", ".bsm":
		return true
	default:
		return false
	}
}
