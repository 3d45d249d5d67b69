// Command termdiff compares two versions of a terminology source and prints
// the diff (optionally the full changelog) as JSON. With -upload the report
// is also stored in S3.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/termstore/termstore/internal/flagx"
	"github.com/termstore/termstore/internal/logging"
	"github.com/termstore/termstore/internal/server/config"
	"github.com/termstore/termstore/internal/server/export"
	"github.com/termstore/termstore/internal/server/repositories/repomanager"
	"github.com/termstore/termstore/internal/server/services"
	"github.com/termstore/termstore/internal/server/tasks"
)

type options struct {
	source      string
	version1    string
	version2    string
	identity    string
	verbosity   int
	changelog   bool
	upload      bool
	materialize bool
}

func parseOptions() *options {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-source", "-v1", "-v2", "-identity", "-verbosity", "-changelog", "-upload", "-materialize",
	})

	o := &options{}
	fs := flag.NewFlagSet("termdiff", flag.ExitOnError)
	fs.StringVar(&o.source, "source", "", "source mnemonic")
	fs.StringVar(&o.version1, "v1", "", "newer source version")
	fs.StringVar(&o.version2, "v2", "", "baseline source version")
	fs.StringVar(&o.identity, "identity", "mnemonic", "identity key field")
	fs.IntVar(&o.verbosity, "verbosity", 0, "diff verbosity (0, 1 or 2)")
	fs.BoolVar(&o.changelog, "changelog", false, "compose the full changelog (implies verbosity 2)")
	fs.BoolVar(&o.upload, "upload", false, "upload the report to S3")
	fs.BoolVar(&o.materialize, "materialize", false, "compute missing checksums before diffing")
	if err := fs.Parse(args); err != nil {
		panic(err)
	}
	return o
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "termdiff: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	opts := parseOptions()
	if opts.source == "" || opts.version1 == "" || opts.version2 == "" {
		return fmt.Errorf("-source, -v1 and -v2 are required")
	}
	if opts.changelog {
		opts.verbosity = 2
	}

	logger := logging.NewJSONLogger(os.Stderr)

	rm, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer rm.Close()

	checksums := services.NewChecksumService(rm, logger, cfg.ChecksumsToggle)
	checksums.SetDispatcher(tasks.NewInline(checksums))
	diffs := services.NewDiffService(rm, logger)

	v1, err := diffs.SourceVersion(ctx, opts.source, opts.version1)
	if err != nil {
		return err
	}
	v2, err := diffs.SourceVersion(ctx, opts.source, opts.version2)
	if err != nil {
		return err
	}

	if opts.materialize {
		if err := checksums.EnsureSourceVersion(ctx, v1.ID); err != nil {
			return err
		}
		if err := checksums.EnsureSourceVersion(ctx, v2.ID); err != nil {
			return err
		}
	}

	var report any
	name := "diff"
	if opts.changelog {
		conceptsDiffer, err := diffs.ConceptsDiffer(ctx, v1, v2, opts.identity, opts.verbosity)
		if err != nil {
			return err
		}
		mappingsDiffer, err := diffs.MappingsDiffer(ctx, v1, v2, opts.identity, opts.verbosity)
		if err != nil {
			return err
		}
		changelogs := services.NewChangelogService(rm, logger)
		report, err = changelogs.Compose(ctx, conceptsDiffer, mappingsDiffer, opts.identity)
		if err != nil {
			return err
		}
		name = "changelog"
	} else {
		report, err = diffs.Diff(ctx, opts.source, opts.version1, opts.version2, opts.identity, opts.verbosity)
		if err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if opts.upload {
		reporter, err := export.NewS3Reporter(ctx, cfg)
		if err != nil {
			return err
		}
		key, err := reporter.Upload(ctx, name, report)
		if err != nil {
			return err
		}
		logger.Info(ctx, "report uploaded", "key", key)
	}

	return nil
}
