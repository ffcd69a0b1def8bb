package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInject(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"simple", "A {{primary_text}} B", "A src B"},
		{"spaces", "A {{   primary_text  }} B", "A src B"},
		{"repeated", "{{ secondary_text }}/{{secondary_text}}", "dst/dst"},
		{"unknown left verbatim", "x {{ nope }} y", "x {{ nope }} y"},
		{"empty value", "[{{ auxiliary_text }}]", "[]"},
		{"not a placeholder", "{{ two words }}", "{{ two words }}"},
	}
	values := map[string]string{
		PlaceholderPrimary:   "src",
		PlaceholderSecondary: "dst",
		PlaceholderAuxiliary: "",
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Inject(tt.tmpl, values))
		})
	}
}

func TestStripComments(t *testing.T) {
	in := "<!-- header\nspanning lines -->\nKeep this <!-- inline --> text\n"
	assert.Equal(t, "Keep this  text", StripComments(in))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantDefault, v)

	for _, want := range Variants {
		got, err := ParseVariant(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = ParseVariant("alt3")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestTemplate_Embedded(t *testing.T) {
	cfg := &config.Config{}
	for _, v := range []Variant{VariantDefault, VariantAlt1, VariantAlt2} {
		got, err := Template(cfg, v)
		require.NoError(t, err, v)
		assert.NotContains(t, got, "<!--", v)
		assert.Contains(t, got, "{{ primary_text }}", v)
	}

	_, err := Template(cfg, VariantCustom)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestTemplate_ConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "p.md")
	txt := filepath.Join(dir, "p.txt")
	require.NoError(t, os.WriteFile(md, []byte("<!-- note -->\nFix: {{ secondary_text }}\n"), 0644))
	require.NoError(t, os.WriteFile(txt, []byte("<!-- kept --> {{ primary_text }}"), 0644))

	cfg := &config.Config{}
	cfg.Generator.PromptAlt1 = md
	cfg.Generator.PromptAlt2 = txt

	got, err := Template(cfg, VariantAlt1)
	require.NoError(t, err)
	assert.Equal(t, "Fix: {{ secondary_text }}", got)

	got, err = Template(cfg, VariantAlt2)
	require.NoError(t, err)
	assert.Equal(t, "<!-- kept --> {{ primary_text }}", got)

	cfg.Generator.PromptDefault = filepath.Join(dir, "missing.md")
	_, err = Template(cfg, VariantDefault)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild(t *testing.T) {
	cfg := &config.Config{}
	c := &store.Cell{Primary: "Bonjour", Secondary: "Hello", Auxiliary: "greeting"}

	got, err := Build(cfg, VariantCustom, "Translate {{primary_text}} ({{auxiliary_text}}), was {{secondary_text}}", c)
	require.NoError(t, err)
	assert.Equal(t, "Translate Bonjour (greeting), was Hello", got)

	_, err = Build(cfg, VariantCustom, "  \n", c)
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	got, err = Build(cfg, VariantDefault, "", c)
	require.NoError(t, err)
	assert.Contains(t, got, "Bonjour")
	assert.Contains(t, got, "Hello")
	assert.NotContains(t, got, "{{")
}

func TestAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := APIKey("anthropic")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	k, err := APIKey("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", k)

	t.Setenv(EnvAPIKey, "override")
	k, err = APIKey("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "override", k)
}
