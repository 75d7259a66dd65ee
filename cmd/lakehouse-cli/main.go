// Command lakehouse-cli is the maintenance CLI: delete-old-data,
// delete-expired-temp, materialize-partitions, retire-partitions, and
// crond, plus duplicate-row cleanup and listing subcommands. Dispatch is
// a plain os.Args[1] switch, the same shape cmd/tempo-cli/main.go uses -
// no CLI framework is introduced for this.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/grafana/lakehouse/lakehouse/app"
	"github.com/grafana/lakehouse/lakehouse/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configFile := fs.String("config.file", "", "YAML configuration file")
	fs.Parse(os.Args[2:]) //nolint:errcheck
	args := fs.Args()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := dispatch(ctx, a, logger, os.Args[1], args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: lakehouse-cli [-config.file=path] <command> [args]

commands:
  delete-old-data <days>
  delete-expired-temp
  materialize-partitions <view_set> <instance> <begin> <end> <delta_s>
  retire-partitions <view_set> <instance> <begin> <end>
  retire-partition-by-file <path>
  delete-duplicate-processes
  delete-duplicate-streams
  delete-duplicate-blocks
  list-partitions
  list-view-sets
  crond`)
}

func dispatch(ctx context.Context, a *app.App, logger log.Logger, cmd string, args []string) error {
	switch cmd {
	case "delete-old-data":
		return cmdDeleteOldData(ctx, a, args)
	case "delete-expired-temp":
		return cmdDeleteExpiredTemp(ctx, a, args)
	case "materialize-partitions":
		return cmdMaterializePartitions(ctx, a, args)
	case "retire-partitions":
		return cmdRetirePartitions(ctx, a, args)
	case "retire-partition-by-file":
		return cmdRetirePartitionByFile(ctx, a, args)
	case "delete-duplicate-processes":
		return cmdDeleteDuplicate(ctx, a, "processes", a.Engine.DeleteDuplicateProcesses)
	case "delete-duplicate-streams":
		return cmdDeleteDuplicate(ctx, a, "streams", a.Engine.DeleteDuplicateStreams)
	case "delete-duplicate-blocks":
		return cmdDeleteDuplicate(ctx, a, "blocks", a.Engine.DeleteDuplicateBlocks)
	case "list-partitions":
		return cmdListPartitions(ctx, a)
	case "list-view-sets":
		return cmdListViewSets(a)
	case "crond":
		a.Daemon(logger).Run(ctx)
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdDeleteOldData(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete-old-data <days>")
	}
	days, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "parse days")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	n, err := a.Store.DeleteOldData(ctx, cutoff, a.Config.Maintenance.TempFileExpiration)
	if err != nil {
		return err
	}
	fmt.Printf("retired %d partitions older than %s\n", n, cutoff.Format(time.RFC3339))
	return nil
}

func cmdDeleteExpiredTemp(ctx context.Context, a *app.App, args []string) error {
	const batchSize = 1000
	expired, err := a.Store.ExpiredTempFiles(ctx, batchSize)
	if err != nil {
		return err
	}
	deleted := 0
	for _, tf := range expired {
		if err := a.Blobs.Delete(ctx, tf.FilePath); err != nil {
			return errors.Wrapf(err, "delete object %s", tf.FilePath)
		}
		if err := a.Store.DeleteTempFile(ctx, tf.FilePath); err != nil {
			return errors.Wrapf(err, "delete temp_files row %s", tf.FilePath)
		}
		deleted++
	}
	fmt.Printf("deleted %d expired temp files\n", deleted)
	return nil
}

func cmdMaterializePartitions(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: materialize-partitions <view_set> <instance> <begin> <end> <delta_s>")
	}
	begin, err := time.Parse(time.RFC3339, args[2])
	if err != nil {
		return errors.Wrap(err, "parse begin")
	}
	end, err := time.Parse(time.RFC3339, args[3])
	if err != nil {
		return errors.Wrap(err, "parse end")
	}
	deltaSeconds, err := strconv.Atoi(args[4])
	if err != nil {
		return errors.Wrap(err, "parse delta_s")
	}
	if err := a.Engine.MaterializePartitions(ctx, a.Blobs, args[0], begin, end, deltaSeconds, a.Config.Maintenance.TempFileExpiration); err != nil {
		return err
	}
	fmt.Printf("materialized %s/%s [%s, %s)\n", args[0], args[1], begin, end)
	return nil
}

func cmdRetirePartitions(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: retire-partitions <view_set> <instance> <begin> <end>")
	}
	begin, err := time.Parse(time.RFC3339, args[2])
	if err != nil {
		return errors.Wrap(err, "parse begin")
	}
	end, err := time.Parse(time.RFC3339, args[3])
	if err != nil {
		return errors.Wrap(err, "parse end")
	}
	n, err := a.Engine.RetirePartitionsInRange(ctx, args[0], args[1], begin, end, a.Config.Maintenance.TempFileExpiration)
	if err != nil {
		return err
	}
	fmt.Printf("retired %d partitions\n", n)
	return nil
}

func cmdRetirePartitionByFile(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: retire-partition-by-file <path>")
	}
	return a.Engine.RetirePartitionByFile(ctx, args[0], a.Config.Maintenance.TempFileExpiration)
}

func cmdDeleteDuplicate(ctx context.Context, a *app.App, what string, fn func(context.Context) (int64, error)) error {
	n, err := fn(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d duplicate %s\n", n, what)
	return nil
}

func cmdListPartitions(ctx context.Context, a *app.App) error {
	partitions, err := a.Engine.ListPartitions(ctx)
	if err != nil {
		return err
	}
	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"view_set", "instance", "begin", "end", "size", "file_path"})
	for _, p := range partitions {
		w.Append([]string{
			p.ViewSetName, p.ViewInstanceID,
			p.BeginInsertTime.Format(time.RFC3339), p.EndInsertTime.Format(time.RFC3339),
			humanize.Bytes(uint64(p.FileSize)), p.FilePath,
		})
	}
	w.Render()
	return nil
}

func cmdListViewSets(a *app.App) error {
	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"view_set"})
	for _, vs := range a.Engine.ListViewSets() {
		w.Append([]string{vs})
	}
	w.Render()
	return nil
}
