package config

import (
	"flag"
	"os"
	"time"

	"github.com/termstore/termstore/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-k bool     checksums feature toggle
//	-w int      checksum worker count
//	-q int      checksum queue size
//	-i int      reconcile interval, seconds
//	-n int      reconcile batch size
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-x string   report key prefix
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-k", "-w", "-q", "-i", "-n", "-u", "-p", "-b", "-g", "-e", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.BoolVar(&config.ChecksumsToggle, "k", config.ChecksumsToggle, "checksums feature toggle")
	fs.IntVar(&config.WorkerCount, "w", config.WorkerCount, "checksum worker count")
	fs.IntVar(&config.QueueSize, "q", config.QueueSize, "checksum queue size")

	reconcileInterval := fs.Int("i", int(config.ReconcileInterval.Seconds()), "reconcile_interval (in seconds)")

	fs.IntVar(&config.ReconcileBatchSize, "n", config.ReconcileBatchSize, "reconcile batch size")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.ReportPrefix, "x", config.ReportPrefix, "report key prefix")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ReconcileInterval = time.Duration(*reconcileInterval) * time.Second
}
