package lifecycle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/deacon-dev/deacon/internal/config"
)

// Digest computes the sha256 of the normalized JSON of a phase's aggregated
// commands, used to detect whether a phase's declared work has changed
// since its marker was written.
func Digest(commands []config.AggregatedCommand) (string, error) {
	if commands == nil {
		commands = []config.AggregatedCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
