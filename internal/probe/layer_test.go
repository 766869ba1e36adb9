package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deacon-dev/deacon/internal/config"
)

func strPtr(s string) *string { return &s }

func TestLayer_ProbedUnderConfigUnderCLI(t *testing.T) {
	probed := map[string]string{"A": "probed-a", "B": "probed-b"}
	remoteEnv := config.NewOrderedMap[*string]()
	remoteEnv.Set("B", strPtr("config-b"))
	remoteEnv.Set("C", strPtr("config-c"))
	cli := map[string]string{"C": "cli-c"}

	effective := Layer(probed, remoteEnv, cli)
	assert.Equal(t, "probed-a", effective["A"])
	assert.Equal(t, "config-b", effective["B"], "config must win over probed")
	assert.Equal(t, "cli-c", effective["C"], "cli override must win over everything")
}

func TestLayer_NilRemoteEnvValuePreservesProbedValue(t *testing.T) {
	probed := map[string]string{"A": "probed-a"}
	remoteEnv := config.NewOrderedMap[*string]()
	remoteEnv.Set("A", nil)

	effective := Layer(probed, remoteEnv, nil)
	assert.Equal(t, "probed-a", effective["A"], "a nil remoteEnv value must not erase an existing probed value")
}

func TestLayer_NilRemoteEnvValueWithNoProbedValueStaysAbsent(t *testing.T) {
	remoteEnv := config.NewOrderedMap[*string]()
	remoteEnv.Set("A", nil)

	effective := Layer(nil, remoteEnv, nil)
	_, ok := effective["A"]
	assert.False(t, ok)
}
