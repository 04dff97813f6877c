package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"conference/partition"
)

func WriteResults(path string, results []partition.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadResults(path string) ([]partition.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []partition.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return results, nil
}
