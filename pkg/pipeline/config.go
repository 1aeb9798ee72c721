// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedConfig lists pipelines registered at startup.
type SeedConfig struct {
	Pipelines []CreateRequest `json:"pipelines" yaml:"pipelines"`
}

// LoadSeedFile loads pipeline requests from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
//
// The YAML document is re-encoded as JSON before decoding so that tagged
// conditions and actions accept exactly the same shape as the HTTP API.
func LoadSeedFile(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML seed file: %w", err)
	}

	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert seed file: %w", err)
	}

	var config SeedConfig
	if err := json.Unmarshal(asJSON, &config); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}

	for i := range config.Pipelines {
		if config.Pipelines[i].UserID == "" {
			return nil, fmt.Errorf("seed pipeline %d has empty user_id", i)
		}
	}

	return &config, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
