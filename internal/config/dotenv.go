package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envLayer resolves variables with precedence: process env > .env.local > .env.
// Dotenv values never override a variable already present in the process.
type envLayer struct {
	lookup   func(string) (string, bool)
	dotLocal map[string]string
	dot      map[string]string
}

func newEnvLayer(workDir string, lookup func(string) (string, bool)) (*envLayer, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	dotLocal, err := readDotFile(filepath.Join(workDir, ".env.local"))
	if err != nil {
		return nil, err
	}
	dot, err := readDotFile(filepath.Join(workDir, ".env"))
	if err != nil {
		return nil, err
	}
	return &envLayer{lookup: lookup, dotLocal: dotLocal, dot: dot}, nil
}

// readDotFile returns the key-value pairs of a dotenv file, or nil when the
// file does not exist.
func readDotFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return vals, nil
}

// get returns the value for name and the layer it came from. Empty values
// count as unset.
func (e *envLayer) get(name string) (string, FieldSource, bool) {
	if v, ok := e.lookup(name); ok && v != "" {
		return v, SourceEnv, true
	}
	if v := e.dotLocal[name]; v != "" {
		return v, SourceDotEnvLocal, true
	}
	if v := e.dot[name]; v != "" {
		return v, SourceDotEnv, true
	}
	return "", SourceDefault, false
}

// SaveSecret writes key=value into workDir/.env.local, keeping the other
// entries. The process environment is left untouched.
func SaveSecret(workDir, key, value string) error {
	path := filepath.Join(workDir, ".env.local")
	env, err := readDotFile(path)
	if err != nil {
		return err
	}
	if env == nil {
		env = map[string]string{}
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
