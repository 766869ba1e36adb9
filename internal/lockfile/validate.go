package lockfile

import "sort"

// ValidateResult reports how a resolved feature set compares to the
// lockfile that was loaded for a devcontainer config.
type ValidateResult struct {
	Ok             bool
	ExtraInConfig  []string // ids the effective config resolved that the lockfile doesn't have
	ExtraInLock    []string // ids the lockfile has that the effective config no longer resolves
	DigestChanged  []string // ids present in both whose resolved digest no longer matches
}

// Resolved is the minimal shape Validate needs from a feature resolution:
// the canonical id and the digest it resolved to (a "resolved" reference
// string, e.g. "ghcr.io/x/y@sha256:...").
type Resolved struct {
	ID       string
	Resolved string
}

// Validate compares a freshly resolved feature set against the lockfile.
func (l *Lockfile) Validate(resolved []Resolved) ValidateResult {
	result := ValidateResult{Ok: true}

	seen := make(map[string]bool, len(resolved))
	for _, r := range resolved {
		id := NormalizeFeatureID(r.ID)
		seen[id] = true

		locked, ok := l.Get(id)
		if !ok {
			result.ExtraInConfig = append(result.ExtraInConfig, id)
			continue
		}
		if locked.Resolved != r.Resolved {
			result.DigestChanged = append(result.DigestChanged, id)
		}
	}

	if l != nil {
		for id := range l.Features {
			if !seen[id] {
				result.ExtraInLock = append(result.ExtraInLock, id)
			}
		}
	}

	sort.Strings(result.ExtraInConfig)
	sort.Strings(result.ExtraInLock)
	sort.Strings(result.DigestChanged)

	result.Ok = len(result.ExtraInConfig) == 0 && len(result.ExtraInLock) == 0 && len(result.DigestChanged) == 0
	return result
}
