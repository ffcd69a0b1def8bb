// repo_gitignore.go toggles whether a review set database is committed.
//
// Local databases are listed under a marker line in .cellrev/.gitignore.
// Other lines in the file are left exactly as the user wrote them.

package repo

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const localMarker = "# Local review sets (not committed)"

func gitignorePath(dir string) (string, error) {
	if dir == "" {
		var err error
		if dir, err = DiscoverDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, ".gitignore"), nil
}

func readLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(b), "\n"), nil
}

func containsTrimmed(lines []string, want string) bool {
	return slices.ContainsFunc(lines, func(l string) bool { return strings.TrimSpace(l) == want })
}

// IgnoreDB marks a review set as local.
func IgnoreDB(name, dir string) error {
	path, err := gitignorePath(dir)
	if err != nil {
		return err
	}
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	file := DBFileName(name)
	if containsTrimmed(lines, file) {
		return nil
	}

	content := strings.Join(lines, "\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if !containsTrimmed(lines, localMarker) {
		content += "\n" + localMarker + "\n"
	}
	content += file + "\n"
	return os.WriteFile(path, []byte(content), 0644)
}

// UnignoreDB marks a review set as shared. The marker line goes once no
// local databases remain beneath it.
func UnignoreDB(name, dir string) error {
	path, err := gitignorePath(dir)
	if err != nil {
		return err
	}
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	file := DBFileName(name)
	lines = slices.DeleteFunc(lines, func(l string) bool { return strings.TrimSpace(l) == file })

	if i := slices.IndexFunc(lines, func(l string) bool { return strings.TrimSpace(l) == localMarker }); i >= 0 {
		rest := lines[i+1:]
		if !slices.ContainsFunc(rest, func(l string) bool { return strings.HasSuffix(strings.TrimSpace(l), ".db") }) {
			lines = lines[:i]
			for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
				lines = lines[:len(lines)-1]
			}
			lines = append(lines, "")
		}
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

// IsIgnored reports whether a review set is local.
func IsIgnored(name, dir string) (bool, error) {
	path, err := gitignorePath(dir)
	if err != nil {
		return false, err
	}
	lines, err := readLines(path)
	if err != nil {
		return false, err
	}
	return containsTrimmed(lines, DBFileName(name)), nil
}
