package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadKeys parses a NAME=value credentials file. Blank lines and lines
// starting with '#' are ignored.
func LoadKeys(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keys file: %w", err)
	}
	defer f.Close()

	keys := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("keys file line %d: expected NAME=value", lineNo)
		}
		keys[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keys file: %w", err)
	}
	return keys, nil
}

// Credential resolves the named credential: the configured keys file wins,
// then the environment. An empty name resolves to "".
func (c *Config) Credential(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if c.KeysFile != "" {
		keys, err := LoadKeys(c.KeysFile)
		if err != nil {
			return "", err
		}
		if v, ok := keys[name]; ok && v != "" {
			return v, nil
		}
	}
	return os.Getenv(name), nil
}
