package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// seedFile is the TOML form of the seed list:
//
//	[[repository]]
//	url = "https://repo1.maven.org/maven2"
type seedFile struct {
	Repository []struct {
		URL string `toml:"url"`
	} `toml:"repository"`
}

// LoadSeeds reads the repository roots to crawl. Files ending in .toml are
// decoded as TOML; anything else is a whitespace separated URL list. Order is
// preserved and duplicates are dropped.
func LoadSeeds(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds file: %w", err)
	}

	var raw []string
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var sf seedFile
		if _, err := toml.Decode(string(data), &sf); err != nil {
			return nil, fmt.Errorf("decode seeds file %s: %w", path, err)
		}
		for _, r := range sf.Repository {
			raw = append(raw, r.URL)
		}
	} else {
		raw = strings.Fields(string(data))
	}

	return ParseSeeds(raw)
}

// ParseSeeds validates and normalizes seed URLs. Trailing slashes are
// trimmed so prefix matching behaves the same for "root" and "root/".
func ParseSeeds(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	seeds := make([]string, 0, len(raw))

	for _, s := range raw {
		s = strings.TrimRight(strings.TrimSpace(s), "/")
		if s == "" {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid seed url %q", s)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		seeds = append(seeds, s)
	}

	return seeds, nil
}
