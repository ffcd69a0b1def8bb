// config_keys.go provides key-value access to configuration settings.
//
// Separated from config.go to isolate the key enumeration and string-based
// get/set logic used by the CLI and MCP, where config is addressed by
// dotted keys (e.g., "diff.pair_threshold").
//
// Pointers are used for optional fields so "not set" (nil) differs from
// "explicitly set to zero". Defaults only apply when a value is unset.

package config

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/jpl-au/cellrev/internal/diff"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"author.name", "author.email",
		"diff.pair_metric", "diff.pair_threshold",
		"session.quiet_ms", "session.timeout_ms",
		"processing.batch_size", "processing.max_retries", "processing.retry_delay_ms",
		"generator.provider", "generator.model", "generator.max_tokens", "generator.base_url",
		"generator.prompt_default", "generator.prompt_alt1", "generator.prompt_alt2",
		"web.addr",
		"limits.max_id", "limits.max_content",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "author.name":
		return c.Author.Name, nil
	case "author.email":
		return c.Author.Email, nil
	case "diff.pair_metric":
		return string(c.DiffOptions().PairMetric), nil
	case "diff.pair_threshold":
		return strconv.FormatFloat(c.DiffOptions().PairThreshold, 'g', -1, 64), nil
	case "session.quiet_ms":
		return millis(c.Quiet()), nil
	case "session.timeout_ms":
		return millis(c.Timeout()), nil
	case "processing.batch_size":
		return strconv.Itoa(c.BatchSize()), nil
	case "processing.max_retries":
		return strconv.Itoa(c.MaxRetries()), nil
	case "processing.retry_delay_ms":
		return millis(c.RetryDelay()), nil
	case "generator.provider":
		return c.Provider(), nil
	case "generator.model":
		return c.Model(), nil
	case "generator.max_tokens":
		return strconv.Itoa(c.MaxTokens()), nil
	case "generator.base_url":
		return c.Generator.BaseURL, nil
	case "generator.prompt_default":
		return c.Generator.PromptDefault, nil
	case "generator.prompt_alt1":
		return c.Generator.PromptAlt1, nil
	case "generator.prompt_alt2":
		return c.Generator.PromptAlt2, nil
	case "web.addr":
		return c.WebAddr(), nil
	case "limits.max_id":
		return strconv.Itoa(c.MaxID()), nil
	case "limits.max_content":
		return strconv.FormatInt(c.MaxContent(), 10), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set sets the value of a configuration key. The result is validated so a
// bad value never reaches disk.
func (c *Config) Set(key, value string) error {
	switch key {
	case "author.name":
		c.Author.Name = value
	case "author.email":
		c.Author.Email = value
	case "diff.pair_metric":
		m, err := diff.ParseMetric(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		s := string(m)
		c.Diff.PairMetric = &s
	case "diff.pair_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: diff.pair_threshold must be a number between 0 and 1", ErrInvalidValue)
		}
		c.Diff.PairThreshold = &f
	case "session.quiet_ms":
		return c.setInt(key, value, &c.Session.QuietMs)
	case "session.timeout_ms":
		return c.setInt(key, value, &c.Session.TimeoutMs)
	case "processing.batch_size":
		return c.setInt(key, value, &c.Processing.BatchSize)
	case "processing.max_retries":
		return c.setInt(key, value, &c.Processing.MaxRetries)
	case "processing.retry_delay_ms":
		return c.setInt(key, value, &c.Processing.RetryDelayMs)
	case "generator.provider":
		c.Generator.Provider = value
	case "generator.model":
		c.Generator.Model = value
	case "generator.max_tokens":
		return c.setInt(key, value, &c.Generator.MaxTokens)
	case "generator.base_url":
		c.Generator.BaseURL = value
	case "generator.prompt_default":
		c.Generator.PromptDefault = value
	case "generator.prompt_alt1":
		c.Generator.PromptAlt1 = value
	case "generator.prompt_alt2":
		c.Generator.PromptAlt2 = value
	case "web.addr":
		c.Web.Addr = value
	case "limits.max_id":
		return c.setInt(key, value, &c.Limits.MaxID)
	case "limits.max_content":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: limits.max_content must be a positive integer", ErrInvalidValue)
		}
		c.Limits.MaxContent = &n
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return c.Validate()
}

func (c *Config) setInt(key, value string, dst **int) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s must be an integer", ErrInvalidValue, key)
	}
	*dst = &n
	return c.Validate()
}

// All returns all configuration values as a map.
func (c *Config) All() map[string]string {
	m := make(map[string]string, len(ValidKeys()))
	for _, k := range ValidKeys() {
		v, _ := c.Get(k)
		m[k] = v
	}
	return m
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "author.name":
		return c.Author.Name != ""
	case "author.email":
		return c.Author.Email != ""
	case "diff.pair_metric":
		return c.Diff.PairMetric != nil
	case "diff.pair_threshold":
		return c.Diff.PairThreshold != nil
	case "session.quiet_ms":
		return c.Session.QuietMs != nil
	case "session.timeout_ms":
		return c.Session.TimeoutMs != nil
	case "processing.batch_size":
		return c.Processing.BatchSize != nil
	case "processing.max_retries":
		return c.Processing.MaxRetries != nil
	case "processing.retry_delay_ms":
		return c.Processing.RetryDelayMs != nil
	case "generator.provider":
		return c.Generator.Provider != ""
	case "generator.model":
		return c.Generator.Model != ""
	case "generator.max_tokens":
		return c.Generator.MaxTokens != nil
	case "generator.base_url":
		return c.Generator.BaseURL != ""
	case "generator.prompt_default":
		return c.Generator.PromptDefault != ""
	case "generator.prompt_alt1":
		return c.Generator.PromptAlt1 != ""
	case "generator.prompt_alt2":
		return c.Generator.PromptAlt2 != ""
	case "web.addr":
		return c.Web.Addr != ""
	case "limits.max_id":
		return c.Limits.MaxID != nil
	case "limits.max_content":
		return c.Limits.MaxContent != nil
	default:
		return false
	}
}

func millis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}
