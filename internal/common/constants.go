// Package common provides shared utilities and constants used across deacon packages.
package common

const (
	// HashTruncationLength is the number of characters used when truncating hashes for image tags.
	// This provides a good balance between uniqueness and readability.
	HashTruncationLength = 12

	// ImageTagPrefix is the prefix for deacon-built images.
	// Format: deacon/{workspaceID}:{hash}
	ImageTagPrefix = "deacon/"

	// DerivedImagePrefix is the repository prefix for images derived by
	// installing features on top of a base/built image.
	// Format: deacon-derived/{envKey}:{hash}
	DerivedImagePrefix = "deacon-derived/"

	// SecretsDir is the directory where secrets files are mounted in containers.
	SecretsDir = "/run/secrets"
)
