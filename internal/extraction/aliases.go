package extraction

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasOverrides adds key renames per pipeline on top of the built-in ones,
// so a changed extractor script can be matched without a rebuild:
//
//	bills:
//	  Grand Total: totalAmount
//	salary:
//	  Take Home Pay: netAmount
type AliasOverrides map[string]map[string]string

func LoadAliasOverrides(path string) (AliasOverrides, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias overrides: %w", err)
	}

	var out AliasOverrides
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse alias overrides %s: %w", path, err)
	}

	for pipeline, aliases := range out {
		for from, to := range aliases {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				return nil, fmt.Errorf("alias overrides %s: pipeline %q has an empty key", path, pipeline)
			}
		}
	}

	return out, nil
}

// Apply merges the overrides into pipelines. Overrides win over built-in
// aliases; naming a pipeline that does not exist is an error.
func (o AliasOverrides) Apply(pipelines ...Pipeline) ([]Pipeline, error) {
	known := make(map[string]bool, len(pipelines))
	for _, pl := range pipelines {
		known[pl.Name] = true
	}

	var unknown []string
	for name := range o {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("alias overrides name unknown pipelines: %s", strings.Join(unknown, ", "))
	}

	out := make([]Pipeline, 0, len(pipelines))
	for _, pl := range pipelines {
		out = append(out, pl.WithAliases(o[pl.Name]))
	}
	return out, nil
}

// WithAliases returns a copy of p with extra merged into its aliases.
func (p Pipeline) WithAliases(extra map[string]string) Pipeline {
	if len(extra) == 0 {
		return p
	}

	merged := make(map[string]string, len(p.Aliases)+len(extra))
	for k, v := range p.Aliases {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}

	p.Aliases = merged
	return p
}
