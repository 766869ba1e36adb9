package probe

import "github.com/deacon-dev/deacon/internal/config"

// Layer computes the effective environment: probed values first, then
// remoteEnv from the effective config (a remoteEnv key whose value is nil
// is skipped if probed already supplied that key — it means "inherit",
// not "erase"), then cliOverrides last-write-wins.
func Layer(probed map[string]string, remoteEnv *config.OrderedMap[*string], cliOverrides map[string]string) map[string]string {
	effective := make(map[string]string, len(probed))
	for k, v := range probed {
		effective[k] = v
	}

	if remoteEnv != nil {
		for _, name := range remoteEnv.Keys() {
			v, _ := remoteEnv.Get(name)
			if v == nil {
				if _, inherited := effective[name]; inherited {
					continue
				}
				continue
			}
			effective[name] = *v
		}
	}

	for k, v := range cliOverrides {
		effective[k] = v
	}

	return effective
}
