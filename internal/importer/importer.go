// Package importer loads cells from YAML or JSON documents into a review
// set.
//
// A document is either a list of cells or a mapping with a "cells" list:
//
//	cells:
//	  - id: "12"
//	    primary: The cat sat on the mat
//	    secondary: Le chat est assis sur le tapis
//	    auxiliary: context for prompts
//
// JSON is read through the YAML decoder, which accepts it unchanged.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jpl-au/cellrev/internal/progress"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

var (
	// ErrMissingID is returned for a cell without an id.
	ErrMissingID = errors.New("cell has no id")
	// ErrDuplicateID is returned when one import names a cell twice.
	ErrDuplicateID = errors.New("duplicate cell id")
	// ErrNoCells is returned when a source holds no importable documents.
	ErrNoCells = errors.New("no cells found")
)

// Options configures an import operation.
type Options struct {
	Replace bool   // write a new version for cells that already exist
	Hidden  bool   // include hidden files/directories
	DryRun  bool   // parse and report without importing
	Author  string // author for imported versions
	Msg     string // message for imported versions
}

// Result is the outcome of an import.
type Result struct {
	Files []string              `json:"files"`
	Cells int                   `json:"cells"`
	Store *service.ImportResult `json:"store,omitempty"`
}

// document is the mapping form of an import file.
type document struct {
	Cells []store.CellInput `yaml:"cells"`
}

// Parse decodes one document. Cells keep their order; a missing row number
// is left for the caller to fill.
func Parse(data []byte) ([]store.CellInput, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]

	var cells []store.CellInput
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&cells); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc document
		if err := root.Decode(&doc); err != nil {
			return nil, err
		}
		cells = doc.Cells
	default:
		return nil, fmt.Errorf("expected a list of cells or a mapping with a cells key, line %d", root.Line)
	}

	for i, c := range cells {
		if strings.TrimSpace(c.ID) == "" {
			return nil, fmt.Errorf("cell %d: %w", i+1, ErrMissingID)
		}
	}
	return cells, nil
}

// Load reads the cells of a file or, for a directory, of every .yaml, .yml
// and .json file beneath it in name order. Row numbers run on across files.
func Load(src string, hidden bool) ([]store.CellInput, []string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, nil, err
		}
		cells, err := Parse(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", src, err)
		}
		return number(cells, 0), []string{src}, checkDuplicates(cells)
	}

	// os.Root keeps traversal inside src
	root, err := os.OpenRoot(src)
	if err != nil {
		return nil, nil, fmt.Errorf("opening source root: %w", err)
	}
	defer root.Close()

	files, err := scanRoot(root, "", hidden)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %w", src, err)
	}

	var all []store.CellInput
	paths := make([]string, 0, len(files))
	for _, rel := range files {
		data, err := readFileInRoot(root, rel)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		cells, err := Parse(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", rel, err)
		}
		all = append(all, number(cells, len(all))...)
		paths = append(paths, filepath.Join(src, rel))
	}
	return all, paths, checkDuplicates(all)
}

// Run loads src and stores its cells through svc.
func Run(ctx context.Context, w io.Writer, svc service.Service, src string, opts Options) (Result, error) {
	var result Result

	cells, files, err := Load(src, opts.Hidden)
	if err != nil {
		return result, err
	}
	result.Files = files
	result.Cells = len(cells)
	if len(cells) == 0 {
		return result, fmt.Errorf("%s: %w", src, ErrNoCells)
	}

	if opts.DryRun {
		for _, c := range cells {
			fmt.Fprintf(w, "Would import: %s (row %d)\n", c.ID, c.Row)
		}
		return result, nil
	}

	// Import in chunks so large sets show progress.
	const chunk = 100
	prog := progress.New("Importing", len(cells))
	defer prog.Done()

	result.Store = &service.ImportResult{}
	for start := 0; start < len(cells); start += chunk {
		batch := cells[start:min(start+chunk, len(cells))]
		res, err := svc.Import(ctx, batch, service.ImportOptions{
			Author:  opts.Author,
			Message: opts.Msg,
			Replace: opts.Replace,
		})
		if res != nil {
			merge(result.Store, res)
		}
		if err != nil {
			return result, err
		}
		prog.Add(len(batch))
	}

	fmt.Fprintf(w, "Imported %d cells from %d file(s): %d created, %d replaced, %d skipped, %d failed\n",
		result.Cells, len(files), result.Store.Created, result.Store.Replaced, result.Store.Skipped, len(result.Store.Failed))
	return result, nil
}

func merge(dst, src *service.ImportResult) {
	dst.Created += src.Created
	dst.Replaced += src.Replaced
	dst.Skipped += src.Skipped
	for id, msg := range src.Failed {
		if dst.Failed == nil {
			dst.Failed = make(map[string]string)
		}
		dst.Failed[id] = msg
	}
}

// number fills missing row numbers from the cells' position after offset.
func number(cells []store.CellInput, offset int) []store.CellInput {
	for i := range cells {
		if cells[i].Row == 0 {
			cells[i].Row = offset + i + 1
		}
	}
	return cells
}

func checkDuplicates(cells []store.CellInput) error {
	seen := make(map[string]bool, len(cells))
	for _, c := range cells {
		if seen[c.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

func importable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// scanRoot recursively finds importable files within an os.Root, returning
// paths relative to it in name order.
func scanRoot(root *os.Root, dir string, includeHidden bool) ([]string, error) {
	var files []string

	path := dir
	if path == "" {
		path = "."
	}

	f, err := root.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })

	for _, entry := range entries {
		name := entry.Name()
		if !includeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		rel := name
		if dir != "" {
			rel = filepath.Join(dir, name)
		}

		if entry.IsDir() {
			sub, err := scanRoot(root, rel, includeHidden)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		} else if importable(name) {
			files = append(files, rel)
		}
	}
	return files, nil
}

func readFileInRoot(root *os.Root, name string) ([]byte, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
