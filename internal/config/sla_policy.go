package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var severityKeys = []string{"critical", "high", "medium", "low", "info"}

func isSeverityKey(s string) bool {
	return slices.Contains(severityKeys, s)
}

// slaPolicyFile is the on-disk policy format:
//
//	sla:
//	  critical: 3
//	  high: 7
type slaPolicyFile struct {
	SLA map[string]int `yaml:"sla"`
}

// LoadSLAPolicyFile reads per-severity target days from a YAML file.
func LoadSLAPolicyFile(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla policy file: %w", err)
	}
	return ParseSLAPolicy(data)
}

// ParseSLAPolicy parses the YAML policy format. Keys are lowercased.
func ParseSLAPolicy(data []byte) (map[string]int, error) {
	var f slaPolicyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sla policy: %w", err)
	}

	days := make(map[string]int, len(f.SLA))
	for k, v := range f.SLA {
		key := strings.ToLower(strings.TrimSpace(k))
		if !isSeverityKey(key) {
			return nil, fmt.Errorf("parse sla policy: unknown severity %q", k)
		}
		days[key] = v
	}
	return days, nil
}

// slaDaysFromEnv collects SLA_<SEVERITY>_DAYS overrides.
func slaDaysFromEnv() map[string]int {
	days := make(map[string]int)
	for _, k := range severityKeys {
		if v := envInt("SLA_"+strings.ToUpper(k)+"_DAYS", 0); v != 0 {
			days[k] = v
		}
	}
	return days
}
