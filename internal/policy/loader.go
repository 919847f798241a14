package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the tag policy at path. The parsed policy is
// normalised (nil maps and slices replaced with empty ones) but not
// semantically validated; callers run Validate separately so all problems
// can be reported at once.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}

	if p.Version != 1 {
		return nil, errors.New("unsupported policy version")
	}

	if p.Tags == nil {
		p.Tags = make(map[string]string)
	}

	return &p, nil
}
