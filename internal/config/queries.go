package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultCategoryQueries maps category slugs to provider search terms.
// Categories missing from the map are searched by their slug.
var DefaultCategoryQueries = map[string]string{
	"nature":       "nature landscape",
	"architecture": "architecture city",
	"animals":      "animals wildlife",
	"abstract":     "abstract art",
	"space":        "space galaxy",
	"technology":   "technology",
	"people":       "people portrait",
	"food":         "food",
}

type categoryQueriesFile struct {
	Categories map[string]string `yaml:"categories"`
}

// LoadCategoryQueries returns the default mapping merged with overrides from a YAML file:
//
//	categories:
//	  nature: "mountains forest"
//
// An empty path falls back to DefaultCategoryQueriesFile; a missing file is not an error.
func LoadCategoryQueries(path string) (map[string]string, error) {
	queries := make(map[string]string, len(DefaultCategoryQueries))
	for slug, q := range DefaultCategoryQueries {
		queries[slug] = q
	}

	explicit := path != ""
	if !explicit {
		path = DefaultCategoryQueriesFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return queries, nil
		}
		return nil, fmt.Errorf("read category queries: %w", err)
	}

	var file categoryQueriesFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse category queries: %w", err)
	}

	for slug, q := range file.Categories {
		if q != "" {
			queries[slug] = q
		}
	}
	return queries, nil
}
