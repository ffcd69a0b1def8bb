/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// flags.go holds the persistent flags every cellrev command shares and the
// accessors extensions read them through.
//
// Store location and attribution can also come from the environment, so a
// review script can pin a review set once instead of passing --db to every
// call. An explicit flag always wins.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jpl-au/cellrev/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Environment fallbacks for the persistent flags.
const (
	EnvDB       = "CELLREV_DB"
	EnvDir      = "CELLREV_DIR"
	EnvAuthor   = "CELLREV_AUTHOR"
	EnvNoColour = "NO_COLOR"
)

var validOutputFormats = []string{"json"}

var (
	output  string
	author  string
	message string
	force   bool
	db      string
	dir     string
)

// out is where commands write. Integration tests run the binary, so this
// only changes in package-level tests.
var out io.Writer = os.Stdout

// flagOrEnv returns v, or the value of key when v is unset.
func flagOrEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

// Out returns the command output writer.
func Out() io.Writer { return out }

// SetOut replaces the output writer.
func SetOut(w io.Writer) { out = w }

// Output returns the -o value.
func Output() string { return output }

// JSON reports whether -o json was given.
func JSON() bool { return output == "json" }

// Author is who new versions, approvals and comments are attributed to:
// --author, then CELLREV_AUTHOR, then author.name from config.
func Author() string { return author }

func Message() string { return message }

// Force skips confirmation prompts and allows overwriting export files.
func Force() bool { return force }

// DB is the review set name; "batch2" selects cellrev-batch2.db.
func DB() string { return flagOrEnv(db, EnvDB) }

// Dir is an explicit store directory. Empty means search upwards from the
// working directory.
func Dir() string { return flagOrEnv(dir, EnvDir) }

// Colour reports whether output is a terminal that accepts ANSI colour.
func Colour() bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && os.Getenv(EnvNoColour) == ""
}

// PrintJSON writes v as one line of JSON. It does nothing unless -o json
// was given, so commands call it unconditionally after their text output.
func PrintJSON(v any) error {
	if !JSON() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return nil
}

// PrintJSONError reports err as {"error": ...} under -o json and returns
// nil so cobra does not print it a second time. Otherwise err is returned
// unchanged.
func PrintJSONError(err error) error {
	if !JSON() || err == nil {
		return err
	}
	_ = PrintJSON(map[string]string{"error": err.Error()})
	return nil
}

// detectAuthor fills in the author when --author was not given.
func detectAuthor() string {
	if a := os.Getenv(EnvAuthor); a != "" {
		return a
	}
	if cfg, err := config.Load(); err == nil {
		return cfg.Author.Name
	}
	return ""
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&output, "output", "o", "", "Output format: json")
	pf.StringVarP(&author, "author", "a", "", "Attribution for versions, approvals and comments (env "+EnvAuthor+")")
	pf.StringVarP(&message, "message", "m", "", "Version message")
	pf.BoolVar(&force, "force", false, "Skip confirmations")
	pf.StringVar(&db, "db", "", "Review set name, e.g. batch2 for cellrev-batch2.db (env "+EnvDB+")")
	pf.StringVar(&dir, "dir", "", "Store directory, skipping discovery (env "+EnvDir+")")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return validOutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}
