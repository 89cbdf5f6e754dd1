package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InventoryEntry is one content file discovered in an export bundle. The
// export names files {fragment}_{slug}.html, where the fragment is a
// source-system identifier; files that don't follow the convention get an
// empty slug. Inventories live only for the duration of one import run.
type InventoryEntry struct {
	Filename string
	Fragment string
	Slug     string
	Path     string
}

// BuildInventory scans dir for HTML content files. Entries come back in
// directory order (lexical), which is what makes matching deterministic.
func BuildInventory(dir string) ([]InventoryEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan content dir: %w", err)
	}

	var inventory []InventoryEntry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.EqualFold(filepath.Ext(name), ".html") {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		fragment := parts[0]
		slug := ""
		if len(parts) == 2 {
			slug = strings.TrimSuffix(parts[1], filepath.Ext(parts[1]))
		}

		inventory = append(inventory, InventoryEntry{
			Filename: name,
			Fragment: fragment,
			Slug:     slug,
			Path:     filepath.Join(dir, name),
		})
	}

	return inventory, nil
}
