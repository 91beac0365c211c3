// Package labels maps signer addresses to display names for the report.
package labels

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type Labels map[common.Address]string

// Load reads a YAML file of address: label pairs. Address casing in the
// file doesn't matter.
func Load(fileName string) (Labels, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", fileName, err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", fileName, err)
	}
	labels := make(Labels, len(raw))
	for addr, label := range raw {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid address %q", addr)
		}
		labels[common.HexToAddress(addr)] = label
	}
	return labels, nil
}

// For returns the label for addr, or the empty string.
func (l Labels) For(addr common.Address) string {
	return l[addr]
}
