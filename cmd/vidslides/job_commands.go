package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vidslides/internal/api"
	"vidslides/internal/queueaccess"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSubmitCommand(ctx),
		newListCommand(ctx),
		newShowCommand(ctx),
		newReprocessCommand(ctx),
		newDrainCommand(ctx),
		newLibraryCommand(ctx),
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		req        api.CreateJobRequest
		threshold  float64
		interval   float64
		skip       float64
		fill       bool
		format     string
		quality    int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a video for slide extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.URL = args[0]
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				req.SimilarityThreshold = &threshold
			}
			if flags.Changed("min-interval") {
				req.MinIntervalSeconds = &interval
			}
			if flags.Changed("skip") {
				req.SkipFirstSeconds = &skip
			}
			if flags.Changed("fill") {
				req.FillMode = &fill
			}
			if flags.Changed("format") {
				req.ImageFormat = format
			}
			if flags.Changed("quality") {
				req.ImageQuality = &quality
			}

			return ctx.withAccess(func(access queueaccess.Access) error {
				job, err := access.Submit(cmd.Context(), req)
				if err != nil {
					return describeServiceError(err)
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued job %s (%s)\n", job.JobID, job.Status)
				if !access.Live() {
					fmt.Fprintln(out, "Daemon not running; the job starts when the daemon does")
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.JobID, "job-id", "", "Job identifier (generated when empty)")
	flags.StringVar(&req.Title, "title", "", "Deck title slide text")
	flags.StringVar(&req.Subtitle, "subtitle", "", "Deck subtitle text")
	flags.Float64Var(&threshold, "threshold", 0, "Similarity threshold in [0,1]")
	flags.Float64Var(&interval, "min-interval", 0, "Minimum seconds between slides")
	flags.Float64Var(&skip, "skip", 0, "Seconds to skip at the start of the video")
	flags.BoolVar(&fill, "fill", true, "Scale slides to cover the page (false letterboxes)")
	flags.StringVar(&format, "format", "", "Slide image format (jpg or png)")
	flags.IntVar(&quality, "quality", 0, "JPEG quality (10-100)")
	flags.StringArrayVar(&req.ExtraDownloadArgs, "download-arg", nil, "Extra argument passed to the downloader (repeatable)")
	flags.StringVar(&req.FilePattern, "file-pattern", "", "Downloaded file name pattern")
	flags.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		status     string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access queueaccess.Access) error {
				items, err := access.List(cmd.Context(), limit, status)
				if err != nil {
					return describeServiceError(err)
				}
				if jsonOutput {
					if items == nil {
						items = []api.Job{}
					}
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Job ID", "Status", "Title", "Source", "Slides", "Created"},
					buildJobRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of jobs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access queueaccess.Access) error {
				job, err := access.Show(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return describeServiceError(err)
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderJobDetails(job, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <job-id>",
		Short: "Run a completed or failed job again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access queueaccess.Access) error {
				job, err := access.Reprocess(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return describeServiceError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s reset (%s)\n", job.JobID, job.Status)
				return nil
			})
		},
	}
}

func newDrainCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Start the next pending job if nothing is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access queueaccess.Access) error {
				result, err := access.Drain(cmd.Context())
				if err != nil {
					return describeServiceError(err)
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				switch {
				case result.Dispatched != nil:
					fmt.Fprintf(out, "Started job %s\n", result.Dispatched.JobID)
				case result.Running:
					fmt.Fprintln(out, "A job is already running")
				case !access.Live() && result.Pending > 0:
					fmt.Fprintln(out, "Daemon not running; start it to process pending jobs")
				default:
					fmt.Fprintln(out, "Nothing to start")
				}
				fmt.Fprintf(out, "Pending: %d\n", result.Pending)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	var (
		page       int
		pageSize   int
		search     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "library",
		Short: "Browse completed decks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(func(access queueaccess.Access) error {
				result, err := access.Library(cmd.Context(), page, pageSize, search)
				if err != nil {
					return describeServiceError(err)
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if len(result.Items) == 0 {
					fmt.Fprintln(out, "No completed decks")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"Job ID", "Title", "Slides", "Deck", "Completed"},
					buildLibraryRows(result.Items),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				fmt.Fprintf(out, "Page %d of %d (%d decks)\n", result.Page, max(result.TotalPages, 1), result.Total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Decks per page")
	cmd.Flags().StringVar(&search, "search", "", "Filter by title or URL")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
