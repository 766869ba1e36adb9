// Package cache provides a two-level cache façade (an in-memory LRU above a
// content-addressed, TTL-bounded disk cache) shared by the feature
// resolver, config loader, and environment prober.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key is any cache key whose debug form is hashed with sha256 to produce a
// stable filename and LRU identity.
type Key interface {
	debugForm() string
}

// FeatureCacheKey identifies a resolved feature artifact by reference and
// digest.
type FeatureCacheKey struct {
	Reference string
	Digest    string
}

func (k FeatureCacheKey) debugForm() string {
	return fmt.Sprintf("feature:%s@%s", k.Reference, k.Digest)
}

// ConfigCacheKey identifies a parsed config by path plus the filesystem
// state that invalidates it on external edits.
type ConfigCacheKey struct {
	Path        string
	MTimeSecond int64
	Size        int64
}

func (k ConfigCacheKey) debugForm() string {
	return fmt.Sprintf("config:%s@%d:%d", k.Path, k.MTimeSecond, k.Size)
}

// ProbeCacheKey identifies a cached environment probe result.
type ProbeCacheKey struct {
	ContainerID string
	Mode        string
	User        string
}

func (k ProbeCacheKey) debugForm() string {
	return fmt.Sprintf("probe:%s:%s:%s", k.ContainerID, k.Mode, k.User)
}

// hashKey renders a Key to the sha256 hex digest used as its filename.
func hashKey(k Key) string {
	sum := sha256.Sum256([]byte(k.debugForm()))
	return hex.EncodeToString(sum[:])
}
