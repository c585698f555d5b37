// Package output renders computed entitlements: JSON export for machine
// consumers and console/CSV reports for people.
package output

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

// WriteJSON writes any result value as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// SaveJSON writes the value to a file, creating or truncating it.
func SaveJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteJSON(f, v); err != nil {
		return err
	}
	return f.Close()
}
