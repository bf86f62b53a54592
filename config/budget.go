package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in budgets used when neither the caller nor the configuration sets one
const (
	DefaultMaxLinks     = 40
	DefaultMaxImages    = 10
	DefaultContentLimit = 2000
)

// AutoValue is the numeric spelling of an automatic budget
const AutoValue = -1

// Budget is a configured limit that is either a fixed non-negative count or automatic.
// The zero value is automatic.
type Budget struct {
	value int
	fixed bool
}

// Auto returns an automatic budget
func Auto() Budget {
	return Budget{}
}

// Fixed returns a budget pinned to n. Negative n yields an automatic budget.
func Fixed(n int) Budget {
	if n < 0 {
		return Budget{}
	}
	return Budget{value: n, fixed: true}
}

// ParseBudget parses "auto", "-1" or a non-negative integer
func ParseBudget(s string) (Budget, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "auto" {
		return Auto(), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return Budget{}, fmt.Errorf("invalid budget %q: must be auto or a non-negative integer", s)
	}
	if n == AutoValue {
		return Auto(), nil
	}
	if n < 0 {
		return Budget{}, fmt.Errorf("invalid budget %d: must be auto or a non-negative integer", n)
	}
	return Fixed(n), nil
}

// IsAuto reports whether the budget defers to the built-in default
func (b Budget) IsAuto() bool {
	return !b.fixed
}

// Value returns the fixed count and whether one is set
func (b Budget) Value() (int, bool) {
	return b.value, b.fixed
}

func (b Budget) String() string {
	if !b.fixed {
		return "auto"
	}
	return strconv.Itoa(b.value)
}

// UnmarshalYAML accepts auto, -1 or a non-negative integer
func (b *Budget) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: budget must be a scalar", node.Line)
	}
	parsed, err := ParseBudget(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = parsed
	return nil
}

// MarshalYAML writes automatic budgets as "auto"
func (b Budget) MarshalYAML() (interface{}, error) {
	if !b.fixed {
		return "auto", nil
	}
	return b.value, nil
}

// Resolve picks the effective budget: an explicit non-negative call argument wins,
// then a fixed configured value, then fallback.
func Resolve(explicit *int, configured Budget, fallback int) int {
	if explicit != nil && *explicit >= 0 {
		return *explicit
	}
	if n, ok := configured.Value(); ok {
		return n
	}
	return fallback
}

// Budgets groups the three output limits of a visit
type Budgets struct {
	MaxLinks     Budget `yaml:"max_links"`
	MaxImages    Budget `yaml:"max_images"`
	ContentLimit Budget `yaml:"content_limit"`
}

// Links resolves the link budget for one call
func (b Budgets) Links(explicit *int) int {
	return Resolve(explicit, b.MaxLinks, DefaultMaxLinks)
}

// Images resolves the image budget for one call
func (b Budgets) Images(explicit *int) int {
	return Resolve(explicit, b.MaxImages, DefaultMaxImages)
}

// Content resolves the content character budget for one call
func (b Budgets) Content(explicit *int) int {
	return Resolve(explicit, b.ContentLimit, DefaultContentLimit)
}
