package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/termstore/termstore/internal/flagx"
	"github.com/termstore/termstore/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "1m" and integer nanoseconds.
//
// This struct is an intermediate DTO (Data Transfer Object) used only for
// reading JSON configuration files. After unmarshalling, its fields are
// copied into the runtime Config struct which uses time.Duration.
//
// Every field is a pointer so that a key absent from the file stays nil
// and the corresponding default survives the overlay.
type JsonConfig struct {
	DatabaseDSN        *string         `json:"database_dsn"`
	ChecksumsToggle    *bool           `json:"checksums_toggle"`
	WorkerCount        *int            `json:"worker_count"`
	QueueSize          *int            `json:"queue_size"`
	ReconcileInterval  *timex.Duration `json:"reconcile_interval"`
	ReconcileBatchSize *int            `json:"reconcile_batch_size"`
	S3RootUser         *string         `json:"s3_root_user"`
	S3RootPassword     *string         `json:"s3_root_password"`
	S3Bucket           *string         `json:"s3_bucket"`
	S3Region           *string         `json:"s3_region"`
	S3BaseEndpoint     *string         `json:"s3_base_endpoint"`
	ReportPrefix       *string         `json:"report_prefix"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. Only the values present in the file are copied into
// the target Config; omitted keys leave the existing values in place.
// If the file cannot be read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {
	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.ChecksumsToggle != nil {
		config.ChecksumsToggle = *c.ChecksumsToggle
	}
	if c.WorkerCount != nil {
		config.WorkerCount = *c.WorkerCount
	}
	if c.QueueSize != nil {
		config.QueueSize = *c.QueueSize
	}
	if c.ReconcileInterval != nil {
		config.ReconcileInterval = time.Duration(c.ReconcileInterval.Duration)
	}
	if c.ReconcileBatchSize != nil {
		config.ReconcileBatchSize = *c.ReconcileBatchSize
	}
	if c.S3RootUser != nil {
		config.S3RootUser = *c.S3RootUser
	}
	if c.S3RootPassword != nil {
		config.S3RootPassword = *c.S3RootPassword
	}
	if c.S3Bucket != nil {
		config.S3Bucket = *c.S3Bucket
	}
	if c.S3Region != nil {
		config.S3Region = *c.S3Region
	}
	if c.S3BaseEndpoint != nil {
		config.S3BaseEndpoint = *c.S3BaseEndpoint
	}
	if c.ReportPrefix != nil {
		config.ReportPrefix = *c.ReportPrefix
	}
}
