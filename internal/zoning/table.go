package zoning

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadTable builds rules from the built-in table overlaid with entries from a
// YAML file. The file holds a top-level "zones" map of zone name to limits;
// entries replace the built-in row for that zone. The built-in table is
// copied, never mutated.
func LoadTable(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: read table %s", path)
	}

	var wrapper struct {
		Zones map[string]Limits `yaml:"zones"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "zoning: parse table")
	}

	merged := make(map[string]Limits, len(buildingLimits)+len(wrapper.Zones))
	for k, v := range buildingLimits {
		merged[k] = v
	}
	for k, v := range wrapper.Zones {
		merged[k] = v
	}
	return &Rules{table: merged}, nil
}
