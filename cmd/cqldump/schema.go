package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codewiresh/cqlwire/values"
)

// Schema names the column types of a result when the capture itself does
// not carry them (skip-metadata queries). Loaded from a YAML file like:
//
//	columns:
//	  - name: k
//	    type: int
//	  - name: tags
//	    type: list<text>
type Schema struct {
	Columns []SchemaColumn `yaml:"columns"`
}

type SchemaColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	parsed values.ColumnType
}

func loadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Schema
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(s.Columns) == 0 {
		return nil, fmt.Errorf("%s: schema has no columns", path)
	}
	for i := range s.Columns {
		t, err := values.ParseType(s.Columns[i].Type)
		if err != nil {
			return nil, fmt.Errorf("%s: column %q: %w", path, s.Columns[i].Name, err)
		}
		s.Columns[i].parsed = t
	}
	return &s, nil
}
