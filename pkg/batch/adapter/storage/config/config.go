// Package config holds the settings model of storage connections.
package config

// StorageConfig holds configuration for a single storage connection under `surfin.adapter.storage`.
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local" or "gcs".
	BucketName      string `yaml:"bucket_name"`      // Default bucket used when an operation names none.
	CredentialsFile string `yaml:"credentials_file"` // Service account key for GCS. Empty uses application default credentials.
	BaseDir         string `yaml:"base_dir"`         // Root directory for local file system operations.
}
