package generate

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/store"
)

//go:embed prompts/*.md
var prompts embed.FS

// Variant selects the prompt used for regeneration.
type Variant string

const (
	VariantDefault Variant = "default"
	VariantAlt1    Variant = "alt1"
	VariantAlt2    Variant = "alt2"
	VariantCustom  Variant = "custom"
)

// Variants lists the variants in display order.
var Variants = []Variant{VariantDefault, VariantAlt1, VariantAlt2, VariantCustom}

// ParseVariant returns the variant with the given name. An empty name is
// the default variant.
func ParseVariant(s string) (Variant, error) {
	if s == "" {
		return VariantDefault, nil
	}
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected default, alt1, alt2 or custom)", ErrUnknownVariant, s)
}

// Placeholder names available to prompts.
const (
	PlaceholderPrimary   = "primary_text"
	PlaceholderSecondary = "secondary_text"
	PlaceholderAuxiliary = "auxiliary_text"
)

var (
	placeholderRe = regexp.MustCompile(`{{\s*(\w+)\s*}}`)
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// Inject replaces {{ name }} placeholders with values. Names without a
// value are left exactly as written.
func Inject(tmpl string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := values[key]; ok {
			return v
		}
		return m
	})
}

// StripComments removes HTML comments from a markdown prompt and trims it.
func StripComments(s string) string {
	return strings.TrimSpace(commentRe.ReplaceAllString(s, ""))
}

// Template returns the prompt template for a variant: the file configured
// for it, or the embedded default. Custom prompts are supplied by the
// caller and have no template.
func Template(cfg *config.Config, v Variant) (string, error) {
	var path string
	switch v {
	case VariantDefault:
		path = cfg.Generator.PromptDefault
	case VariantAlt1:
		path = cfg.Generator.PromptAlt1
	case VariantAlt2:
		path = cfg.Generator.PromptAlt2
	default:
		return "", fmt.Errorf("%w: %q has no template", ErrUnknownVariant, v)
	}

	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = prompts.ReadFile("prompts/" + string(v) + ".md")
	}
	if err != nil {
		return "", fmt.Errorf("reading %s prompt: %w", v, err)
	}

	text := string(data)
	if path == "" || strings.EqualFold(filepath.Ext(path), ".md") {
		text = StripComments(text)
	}
	return strings.TrimSpace(text), nil
}

// Build returns the prompt for a cell. For VariantCustom, custom is the
// template and must not be blank.
func Build(cfg *config.Config, v Variant, custom string, c *store.Cell) (string, error) {
	var tmpl string
	if v == VariantCustom {
		tmpl = strings.TrimSpace(custom)
		if tmpl == "" {
			return "", ErrEmptyPrompt
		}
	} else {
		var err error
		if tmpl, err = Template(cfg, v); err != nil {
			return "", err
		}
	}
	return Inject(tmpl, map[string]string{
		PlaceholderPrimary:   c.Primary,
		PlaceholderSecondary: c.Secondary,
		PlaceholderAuxiliary: c.Auxiliary,
	}), nil
}
