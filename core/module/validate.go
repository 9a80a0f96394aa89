package module

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/evmcrispr/evml/core/ast"
	"github.com/evmcrispr/evml/core/errors"
	"github.com/evmcrispr/evml/core/types"
)

// Comparison selects how an argument count is checked.
type Comparison int

const (
	Equal   Comparison = iota // exactly Min
	Greater                   // at least Min
	Between                   // Min through Max inclusive
)

// Arity is a declarative argument-count contract.
type Arity struct {
	Cmp      Comparison
	Min, Max int
}

// Exactly, AtLeast and Range build Arity values.
func Exactly(n int) Arity      { return Arity{Cmp: Equal, Min: n} }
func AtLeast(n int) Arity      { return Arity{Cmp: Greater, Min: n} }
func Range(min, max int) Arity { return Arity{Cmp: Between, Min: min, Max: max} }

// Check returns a message describing a mismatch with got, or "".
func (a Arity) Check(got int) string {
	switch a.Cmp {
	case Equal:
		if got != a.Min {
			return fmt.Sprintf("invalid number of arguments, expected %d, got %d", a.Min, got)
		}
	case Greater:
		if got < a.Min {
			return fmt.Sprintf("invalid number of arguments, expected at least %d, got %d", a.Min, got)
		}
	case Between:
		if got < a.Min || got > a.Max {
			return fmt.Sprintf("invalid number of arguments, expected between %d and %d, got %d", a.Min, a.Max, got)
		}
	}
	return ""
}

// CheckArgsLength validates the argument count of a command invocation.
func CheckArgsLength(c *ast.CommandExpression, arity Arity) error {
	if msg := arity.Check(len(c.Args)); msg != "" {
		return errors.NewCommandError(c, errors.ErrInvalidArguments, "%s", msg)
	}
	return nil
}

// CheckHelperArgsLength validates the argument count of a helper invocation.
func CheckHelperArgsLength(h *ast.HelperFunctionExpression, arity Arity) error {
	if msg := arity.Check(len(h.Args)); msg != "" {
		return errors.NewHelperError(h, errors.ErrInvalidArguments, "%s", msg)
	}
	return nil
}

// CheckOpts rejects options the command does not declare.
func CheckOpts(c *ast.CommandExpression, allowed []string) error {
	for _, o := range c.Opts {
		if contains(allowed, o.Name) {
			continue
		}
		if len(allowed) == 0 {
			return errors.NewCommandError(c, errors.ErrInvalidOption, "invalid option --%s, the command takes no options", o.Name)
		}
		msg := fmt.Sprintf("invalid option --%s, expected one of --%s", o.Name, strings.Join(allowed, ", --"))
		if s := Suggest(o.Name, allowed); s != "" {
			msg += fmt.Sprintf(" (did you mean --%s?)", s)
		}
		return errors.NewCommandError(c, errors.ErrInvalidOption, "%s", msg)
	}
	return nil
}

// ValidateOpt checks an evaluated option value against the option's schema.
func ValidateOpt(c *ast.CommandExpression, spec OptSpec, value any) error {
	if spec.Schema == nil {
		return nil
	}
	if err := types.Validate(spec.Schema, value); err != nil {
		return errors.NewCommandError(c, errors.ErrInvalidOption, "invalid value for --%s: %v", spec.Name, err)
	}
	return nil
}

// OptNames lists the names of specs.
func OptNames(specs []OptSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// Suggest returns the closest candidate to name, or "".
func Suggest(name string, candidates []string) string {
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		// Also accept candidates contained in name, e.g. "forcee".
		for _, c := range candidates {
			if fuzzy.MatchFold(c, name) {
				ranks = append(ranks, fuzzy.Rank{Target: c, Distance: len(name) - len(c)})
			}
		}
	}
	if len(ranks) == 0 {
		return closest(name, candidates)
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// closest catches typos fuzzy matching misses, such as transposed letters.
func closest(name string, candidates []string) string {
	best, bestDist := "", len(name)/3+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(c)); d <= bestDist && (best == "" || d < bestDist || c < best) {
			best, bestDist = c, d
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
