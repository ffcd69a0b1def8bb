// Package repo creates and finds cellrev workspaces.
//
// A workspace is a .cellrev directory holding one SQLite database per
// review set: cellrev.db by default, cellrev-<name>.db for named sets (one
// per workbook or sheet, say). Discovery walks up from the working
// directory the way git finds .git.
package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpl-au/cellrev/internal/store"
)

const (
	// Dir is the workspace directory name.
	Dir = ".cellrev"
	// DBFile is the default database filename.
	DBFile = "cellrev.db"

	dbPrefix = "cellrev-"
)

// ErrNotInitialised is returned when no workspace is found.
var ErrNotInitialised = errors.New("cellrev not initialised (run 'cellrev init')")

// DBFileName maps a review set name to its database file: "" is cellrev.db,
// "sheet1" is cellrev-sheet1.db and a name ending in .db is used as given.
func DBFileName(name string) string {
	switch {
	case name == "":
		return DBFile
	case strings.HasSuffix(name, ".db"):
		return name
	}
	return dbPrefix + name + ".db"
}

// setName is the inverse of DBFileName for files found on disk. ok is false
// for files that are not cellrev databases.
func setName(file string) (name string, ok bool) {
	if file == DBFile {
		return "", true
	}
	if strings.HasPrefix(file, dbPrefix) && strings.HasSuffix(file, ".db") {
		return strings.TrimSuffix(strings.TrimPrefix(file, dbPrefix), ".db"), true
	}
	return "", false
}

const gitignoreTemplate = `# cellrev - local config and exports stay out of git
# Databases (*.db) hold review history and are committed
config.yaml
*.csv
`

// Init creates the workspace in dir (empty for the current directory) and
// an empty database for the named set. An existing database is only
// replaced when force is set. local marks the database as gitignored.
// Configuration is left to `cellrev config`.
func Init(force bool, db string, local bool, dir string) error {
	if dir == "" {
		dir = "."
	}
	root := filepath.Join(dir, Dir)
	file := DBFileName(db)
	path := filepath.Join(root, file)

	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("database %s already exists (use --force to reinitialise)", file)
		}
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove database: %w", err)
			}
		}
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()
	if err := s.Init(); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// Written once; later inits for other sets keep local markers intact.
	gitignore := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte(gitignoreTemplate), 0644); err != nil {
			return fmt.Errorf("write gitignore: %w", err)
		}
	}

	if local {
		if err := IgnoreDB(db, root); err != nil {
			return fmt.Errorf("ignore database: %w", err)
		}
	}
	return nil
}

// walkUp calls found on each ancestor of the working directory, nearest
// first, until it returns true.
func walkUp(found func(dir string) bool) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		if found(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotInitialised
		}
		dir = parent
	}
}

// Discover returns the path of the named set's database in the nearest
// workspace that has it.
func Discover(db string) (string, error) {
	file := DBFileName(db)
	dir, err := walkUp(func(d string) bool {
		_, err := os.Stat(filepath.Join(d, Dir, file))
		return err == nil
	})
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Dir, file), nil
}

// Locate returns the path of the named set's database under dir, or
// discovers it when dir is empty.
func Locate(dir, db string) (string, error) {
	if dir == "" {
		return Discover(db)
	}
	path, err := filepath.Abs(filepath.Join(dir, Dir, DBFileName(db)))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotInitialised
		}
		return "", err
	}
	return path, nil
}

// DiscoverDir returns the nearest .cellrev directory.
func DiscoverDir() (string, error) {
	dir, err := walkUp(func(d string) bool {
		info, err := os.Stat(filepath.Join(d, Dir))
		return err == nil && info.IsDir()
	})
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, Dir), nil
}

// DBInfo describes one review set database.
type DBInfo struct {
	Name  string `json:"name"`
	File  string `json:"file"`
	Path  string `json:"path"`
	Local bool   `json:"local"`
}

// ListDBs lists the databases in dir, or in the discovered workspace when
// dir is empty.
func ListDBs(dir string) ([]DBInfo, error) {
	if dir == "" {
		var err error
		if dir, err = DiscoverDir(); err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Dir, err)
	}

	var dbs []DBInfo
	for _, e := range entries {
		name, ok := setName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		// An unreadable .gitignore reads as shared.
		local, _ := IsIgnored(name, dir)
		dbs = append(dbs, DBInfo{
			Name:  name,
			File:  e.Name(),
			Path:  filepath.Join(dir, e.Name()),
			Local: local,
		})
	}
	return dbs, nil
}
