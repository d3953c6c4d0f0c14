// Package coverage maintains an index of translation coverage over a tree
// of PO catalogs.
//
// The index is a CSV file with one row per catalog:
//
//	name,total,translated,hash
//
// where name is the slash-separated path relative to the scanned root,
// total and translated are sizes in characters of msgid text, and hash is
// the SHA-256 of the file content. A scan only re-parses catalogs whose
// hash changed since the index was written.
package coverage

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/flowdas/pdk/pofile"
)

// Row is the index record of one catalog.
type Row struct {
	Name       string
	Total      int
	Translated int
	Hash       string
}

// Index is a loaded coverage index.
type Index struct {
	path    string
	rows    map[string]Row
	updated bool
}

// Result describes one scan.
type Result struct {
	// Changed lists the catalogs that were new or modified, sorted.
	Changed []string
	// Removed lists the catalogs dropped from the index, sorted.
	Removed []string
	// Total and Translated are summed over every scanned catalog.
	Total      int
	Translated int
}

// Coverage returns Translated/Total truncated to four decimal places, or 0
// for an empty tree.
func (r Result) Coverage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Translated*10000/r.Total) / 10000
}

// String formats the result as "12.34% (T/S)".
func (r Result) String() string {
	return fmt.Sprintf("%.2f%% (%d/%d)", r.Coverage()*100, r.Translated, r.Total)
}

// Load reads the index at path. A missing file gives an empty index that
// will be written on Save.
func Load(path string) (*Index, error) {
	idx := &Index{path: path, rows: make(map[string]Row)}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			idx.updated = true
			return idx, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 4
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, rec := range records {
		total, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %s: total: %w", path, rec[0], err)
		}
		translated, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %s: translated: %w", path, rec[0], err)
		}
		idx.rows[rec[0]] = Row{Name: rec[0], Total: total, Translated: translated, Hash: rec[3]}
	}
	return idx, nil
}

// Path returns the index file location.
func (idx *Index) Path() string {
	return idx.path
}

// Rows returns the records sorted by name.
func (idx *Index) Rows() []Row {
	rows := make([]Row, 0, len(idx.rows))
	for _, r := range idx.rows {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// Save writes the index if a scan or Load changed it.
func (idx *Index) Save() error {
	if !idx.updated {
		return nil
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	for _, r := range idx.Rows() {
		w.Write([]string{r.Name, strconv.Itoa(r.Total), strconv.Itoa(r.Translated), r.Hash})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := os.WriteFile(idx.path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", idx.path, err)
	}
	idx.updated = false
	return nil
}

// Scan walks root for *.po files, skipping the relative paths in ignores,
// and brings the index up to date.
func (idx *Index) Scan(root string, ignores []string) (Result, error) {
	excluded := make(map[string]bool, len(ignores))
	for _, ig := range ignores {
		excluded[filepath.ToSlash(filepath.Clean(ig))] = true
	}

	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".po" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !excluded[name] {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(names)

	var res Result
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true

		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
		if err != nil {
			return Result{}, err
		}
		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])

		row, ok := idx.rows[name]
		if !ok || row.Hash != hash {
			row, err = measure(name, data)
			if err != nil {
				return Result{}, err
			}
			row.Hash = hash
			idx.rows[name] = row
			idx.updated = true
			res.Changed = append(res.Changed, name)
		}
		res.Total += row.Total
		res.Translated += row.Translated
	}

	for name := range idx.rows {
		if !seen[name] {
			delete(idx.rows, name)
			idx.updated = true
			res.Removed = append(res.Removed, name)
		}
	}
	sort.Strings(res.Removed)

	return res, nil
}

// measure sizes a catalog by the character count of its msgids.
func measure(name string, data []byte) (Row, error) {
	catalog, err := pofile.Parse(bytes.NewReader(data))
	if err != nil {
		return Row{}, fmt.Errorf("%s: %w", name, err)
	}

	row := Row{Name: name}
	for _, e := range catalog.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		size := utf8.RuneCountInString(e.MsgID)
		row.Total += size
		if e.IsTranslated() {
			row.Translated += size
		}
	}
	return row, nil
}
