package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded when no env file is given explicitly.
var DefaultEnvFiles = []string{".env"}

// LoadEnvFiles loads variables from the given dotenv files into the process
// environment. Missing files are skipped; variables already set in the
// environment win. It returns the files that were actually loaded.
func LoadEnvFiles(files ...string) ([]string, error) {
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, fmt.Errorf("loading env file %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}
