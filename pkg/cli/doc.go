/*
Package cli provides command-line helpers for the iptvrelay command.

Output Formatting:

Journal listings render as aligned text, JSON or CSV:

	format, err := cli.ParseFormat(outputFlag)
	if err != nil {
		return err
	}
	table := &cli.Table{
		Headers: []string{"ID", "IDENTITY", "BYTES"},
		Rows:    rows,
		Data:    records,
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Progress Reporting:

Paged journal exports report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "Exporting")
	progress.Start(total)
	progress.Update(done)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

Commands return ConfigError for unusable configuration and CommandError for
runtime failures; ExitCode maps them to exit status 2 and 1.
*/
package cli
