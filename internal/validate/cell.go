package validate

import (
	"fmt"
	"strings"
	"unicode"
)

// CellID validates a cell identifier and returns it trimmed of surrounding
// whitespace. Ids are opaque labels ("12", "Sheet1!B12", "intro/para-3");
// only empty ids, control characters and ids longer than maxLen bytes
// (0 means no limit) are rejected.
func CellID(id string, maxLen int) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidCellID)
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: control character in %q", ErrInvalidCellID, id)
	}
	if maxLen > 0 && len(id) > maxLen {
		return "", ErrCellIDTooLong
	}
	return id, nil
}

// Approval columns.
const (
	ColumnPrimary   = "primary"
	ColumnSecondary = "secondary"
)

// Approval states. None is never stored; setting it clears the marker.
const (
	ApprovalNone     = "none"
	ApprovalAffirmed = "affirmed"
	ApprovalCaution  = "caution"
	ApprovalRejected = "rejected"
)

// approvalAliases maps the colour names reviewers use to states.
var approvalAliases = map[string]string{
	"green":  ApprovalAffirmed,
	"yellow": ApprovalCaution,
	"red":    ApprovalRejected,
	"":       ApprovalNone,
}

// Column validates an approval column name.
func Column(c string) (string, error) {
	switch c = strings.ToLower(strings.TrimSpace(c)); c {
	case ColumnPrimary, ColumnSecondary:
		return c, nil
	case "a":
		return ColumnPrimary, nil
	case "b":
		return ColumnSecondary, nil
	}
	return "", fmt.Errorf("%w: %q (expected primary or secondary)", ErrInvalidColumn, c)
}

// Approval validates an approval state, accepting the colour aliases
// green, yellow and red, and returns the canonical name.
func Approval(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := approvalAliases[s]; ok {
		return v, nil
	}
	switch s {
	case ApprovalNone, ApprovalAffirmed, ApprovalCaution, ApprovalRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q (expected none, affirmed, caution or rejected)", ErrInvalidApproval, s)
}
