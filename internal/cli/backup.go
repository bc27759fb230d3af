package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aristath/fiis/internal/reliability"
)

type backupCmd struct {
	app *App
	out string
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "archive the databases" }
func (*backupCmd) Usage() string {
	return `backup [-out dir]

  Snapshots ledger.db and cache.db into a tar.gz archive. With -out the
  archive is written to dir; otherwise it is uploaded to the configured
  BACKUP_BUCKET.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "out", "", "Write the archive to this directory instead of uploading it")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, release, err := c.app.Open()
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer release()

	if c.out != "" {
		path, _, err := container.BackupService.CreateArchive(ctx, c.out)
		if err != nil {
			c.app.errorf("%v", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(c.app.Stdout, "Wrote %s\n", path)
		return subcommands.ExitSuccess
	}

	info, err := container.BackupService.CreateAndUpload(ctx)
	if errors.Is(err, reliability.ErrNoObjectStore) {
		c.app.errorf("%v: set BACKUP_BUCKET or pass -out", err)
		return subcommands.ExitUsageError
	}
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(c.app.Stdout, "Uploaded %s (%d bytes)\n", info.Filename, info.SizeBytes)
	return subcommands.ExitSuccess
}
