package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// applyYAMLFile overlays pipeline settings from a YAML file. Zero values in
// the file leave the current setting untouched; models are merged by key.
func applyYAMLFile(dst *PipelineConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return applyYAML(dst, data)
}

func applyYAML(dst *PipelineConfig, data []byte) error {
	var overlay struct {
		Models              []ModelConfig  `yaml:"models"`
		ModelTimeoutSeconds int            `yaml:"model_timeout_seconds"`
		FetchTimeoutSeconds int            `yaml:"fetch_timeout_seconds"`
		FetchRatePerMinute  int            `yaml:"fetch_rate_per_minute"`
		MaxRedirects        int            `yaml:"max_redirects"`
		SnapshotEnabled     *bool          `yaml:"snapshot_enabled"`
		RoleLimits          map[string]int `yaml:"role_limits"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if overlay.ModelTimeoutSeconds > 0 {
		dst.ModelTimeoutSeconds = overlay.ModelTimeoutSeconds
	}
	if overlay.FetchTimeoutSeconds > 0 {
		dst.FetchTimeoutSeconds = overlay.FetchTimeoutSeconds
	}
	if overlay.FetchRatePerMinute > 0 {
		dst.FetchRatePerMinute = overlay.FetchRatePerMinute
	}
	if overlay.MaxRedirects > 0 {
		dst.MaxRedirects = overlay.MaxRedirects
	}
	if overlay.SnapshotEnabled != nil {
		dst.SnapshotEnabled = *overlay.SnapshotEnabled
	}
	if len(overlay.RoleLimits) > 0 {
		if dst.RoleLimits == nil {
			dst.RoleLimits = map[string]int{}
		}
		for role, limit := range overlay.RoleLimits {
			if limit > 0 {
				dst.RoleLimits[strings.ToLower(strings.TrimSpace(role))] = limit
			}
		}
	}
	for _, m := range overlay.Models {
		key := strings.ToLower(strings.TrimSpace(m.Key))
		idx := -1
		for i := range dst.Models {
			if dst.Models[i].Key == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Only the three known reader models are configurable.
			continue
		}
		cur := &dst.Models[idx]
		cur.Enabled = m.Enabled
		if m.Model != "" {
			cur.Model = m.Model
		}
		if m.BaseURL != "" {
			cur.BaseURL = m.BaseURL
		}
		if m.APIKeyEnv != "" {
			cur.APIKeyEnv = m.APIKeyEnv
			cur.APIKey = ""
		}
		if m.TimeoutSeconds > 0 {
			cur.TimeoutSeconds = m.TimeoutSeconds
		}
	}
	return nil
}
