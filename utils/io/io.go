package io

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func ReadFile(filepath string) (string, error) {
	bytes, err := os.ReadFile(filepath)
	if err != nil {
		return "", fmt.Errorf("error reading file: %w", err)
	}
	return string(bytes), nil
}

// WriteBytesToFile writes through a temp file and renames so that a crash
// mid-write never leaves a half-written file behind.
func WriteBytesToFile(path string, bytes []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	if _, err := tmp.Write(bytes); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func WriteStringToFile(path string, str string) error {
	return WriteBytesToFile(path, []byte(str))
}

func WriteJSONToFile(path string, object interface{}) error {
	if bytes, err := json.MarshalIndent(object, "", "  "); err != nil {
		return fmt.Errorf("error marshalling object: %w", err)
	} else {
		return WriteBytesToFile(path, bytes)
	}
}

func ReadJSONFromFile(path string, target interface{}) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}
	if err := json.Unmarshal(bytes, target); err != nil {
		return fmt.Errorf("error unmarshalling file %s: %w", path, err)
	}
	return nil
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
