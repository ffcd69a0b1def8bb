// flags.go defines constants for CLI flag names shared across extensions.
//
// Naming convention: Flag<PascalCaseName> where name matches the kebab-case
// CLI flag (e.g., "dry-run" -> FlagDryRun).

package extension

// Flag name constants for CLI commands.
const (
	// Boolean flags

	FlagAll            = "all"                // Include deleted items
	FlagCount          = "count"              // Print match counts only
	FlagClear          = "clear"              // Remove a value
	FlagDeleted        = "deleted"            // Only deleted items
	FlagDiff           = "diff"               // Show diff output
	FlagDryRun         = "dry-run"            // Preview without making changes
	FlagFile           = "file"               // Treat arguments as files
	FlagFilesWithMatch = "files-with-matches" // Print matching ids only
	FlagIDs            = "ids"                // Print ids only
	FlagIgnoreCase     = "ignore-case"        // Case-insensitive matching
	FlagInPlace        = "in-place"           // Edit in place (sed compatibility)
	FlagIncludeHidden  = "include-hidden"     // Include hidden files and directories
	FlagInvertMatch    = "invert-match"       // Select non-matching lines
	FlagLocal          = "local"              // Use local scope (gitignored)
	FlagLong           = "long"               // Long format output
	FlagRaw            = "raw"                // Secondary text only, no formatting
	FlagReplace        = "replace"            // Overwrite existing cells
	FlagReset          = "reset"              // Clear both approval markers
	FlagShare          = "share"              // Mark as shared (committed)

	// String flags

	FlagAddr       = "addr"        // Listen address
	FlagApproval   = "approval"    // Approval marker filter
	FlagColumn     = "column"      // primary or secondary
	FlagLines      = "lines"       // Line range (e.g., "5:10")
	FlagNew        = "new"         // Replacement text
	FlagOld        = "old"         // Text to find
	FlagOlderThan  = "older-than"  // Duration threshold
	FlagPrefix     = "prefix"      // Cell id prefix filter
	FlagPrompt     = "prompt"      // Custom prompt template
	FlagPromptFile = "prompt-file" // Custom prompt template file
	FlagQuery      = "query"       // Text substring filter
	FlagSort       = "sort"        // Sort order
	FlagStatus     = "status"      // same or different
	FlagVariant    = "variant"     // Prompt variant
	FlagVersions   = "versions"    // Version range (e.g., "3:5")

	// Number flags

	FlagAbove   = "above"   // Ratio strictly above
	FlagBelow   = "below"   // Ratio strictly below
	FlagContext = "context" // Lines of context around matches
	FlagLimit   = "limit"   // Limit number of results
	FlagMax     = "max"     // Ratio at most
	FlagMin     = "min"     // Ratio at least
	FlagOffset  = "offset"  // Results to skip
	FlagVersion = "version" // Specific version number
	FlagWidth   = "width"   // Text column width
)
