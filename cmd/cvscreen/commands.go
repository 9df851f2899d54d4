package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cvscreen/internal/config"
	"cvscreen/internal/resume"
	"cvscreen/internal/screening"
	"cvscreen/internal/session"
	"cvscreen/internal/timeseries"
)

// --- auth ---

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || password == "" {
			return fmt.Errorf("--email and --password are required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tok, err := a.client.Register(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		if err := a.saveSession(tok); err != nil {
			return err
		}

		printSuccess("Registered and logged in as %s", email)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the screening service",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || password == "" {
			return fmt.Errorf("--email and --password are required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tok, err := a.client.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		if err := a.saveSession(tok); err != nil {
			return err
		}

		printSuccess("Logged in as %s", email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// Clearing is unconditional: logging out when already logged out
		// succeeds.
		if err := a.session.Clear(); err != nil {
			return err
		}
		printSuccess("Logged out")
		return nil
	},
}

func init() {
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("password", "", "account password")
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload resumes as a new batch",
	Long: `Upload resumes as a new batch.

Only .pdf and .docx files are accepted; anything else is skipped with a
warning. With --verify, PDFs are parsed locally and corrupt files are
skipped before the upload.

Examples:
  cvscreen upload resumes/*.pdf
  cvscreen upload --name "January intake" --verify cv1.pdf cv2.docx`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		verify, _ := cmd.Flags().GetBool("verify")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSession(); err != nil {
			return err
		}

		sel := resume.Collect(args)
		for _, rej := range sel.Rejected {
			printWarning("Skipping %s: %s", rej.Path, rej.Reason)
		}
		if verify {
			files, rejected := resume.Verify(sel.Files)
			for _, rej := range rejected {
				printWarning("Skipping %s: %s", rej.Path, rej.Reason)
			}
			sel.Files = files
		}
		if len(sel.Files) == 0 {
			return fmt.Errorf("no uploadable files")
		}

		printStep("Uploading %d file(s)...", len(sel.Files))
		return a.withAuthRetry(cmd.Context(), func() error {
			created, err := a.orch.UploadBatch(cmd.Context(), name, sel.Files)
			if err != nil {
				return err
			}
			printSuccess("Created batch %s (%d files, %s)", created.BatchID, created.FileCount, created.Status)
			return nil
		})
	},
}

func init() {
	uploadCmd.Flags().String("name", "", "batch name (server assigns one when empty)")
	uploadCmd.Flags().Bool("verify", false, "parse PDFs locally and skip corrupt files")
}

// --- batches ---

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List uploaded batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSession(); err != nil {
			return err
		}
		if pageSize == 0 {
			pageSize = a.cfg.List.PageSize
		}

		return a.withAuthRetry(cmd.Context(), func() error {
			result, err := a.cache.FetchBatches(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}

			if len(result.Items) == 0 {
				fmt.Println("No batches found.")
				return nil
			}
			for _, b := range result.Items {
				fmt.Printf("%s  %-12s  %4d resumes  %s  %s\n",
					colorize(colorCyan, b.ID[:min(8, len(b.ID))]),
					statusBadge(b.Status),
					b.ResumeCount,
					b.CreatedAt.Format("2006-01-02 15:04"),
					b.BatchName,
				)
			}
			fmt.Printf("\nPage %d of %d (%d total)\n", result.Page, result.Pages, result.Total)
			return nil
		})
	},
}

// --- job descriptions ---

var jdCmd = &cobra.Command{
	Use:   "jd",
	Short: "Manage job descriptions",
}

var jdAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a job description",
	Long: `Create a job description to rank resumes against.

The text comes from --text, or from --file when the description lives in
a file. Job descriptions are immutable once created.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")

		if text == "" && file == "" {
			return fmt.Errorf("one of --text or --file is required")
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			text = string(data)
			if title == "" {
				title = file
			}
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSession(); err != nil {
			return err
		}

		return a.withAuthRetry(cmd.Context(), func() error {
			jd, err := a.orch.CreateJD(cmd.Context(), title, text)
			if err != nil {
				return err
			}
			printSuccess("Created job description %s (%s)", jd.ID, jd.Title)
			return nil
		})
	},
}

var jdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job descriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSession(); err != nil {
			return err
		}
		if pageSize == 0 {
			pageSize = a.cfg.List.PageSize
		}

		return a.withAuthRetry(cmd.Context(), func() error {
			result, err := a.cache.FetchJDs(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}

			if len(result.Items) == 0 {
				fmt.Println("No job descriptions found.")
				return nil
			}
			for _, jd := range result.Items {
				fmt.Printf("%s  %s  %s\n",
					colorize(colorCyan, jd.ID[:min(8, len(jd.ID))]),
					jd.CreatedAt.Format("2006-01-02"),
					jd.Title,
				)
			}
			fmt.Printf("\nPage %d of %d (%d total)\n", result.Page, result.Pages, result.Total)
			return nil
		})
	},
}

func init() {
	jdAddCmd.Flags().String("title", "", "job description title")
	jdAddCmd.Flags().String("text", "", "job description text")
	jdAddCmd.Flags().String("file", "", "read job description text from a file")
	jdCmd.AddCommand(jdAddCmd)
	jdCmd.AddCommand(jdListCmd)

	batchesCmd.Flags().Int("page", 1, "page number")
	batchesCmd.Flags().Int("page-size", 0, "items per page (default from config)")
	jdListCmd.Flags().Int("page", 1, "page number")
	jdListCmd.Flags().Int("page-size", 0, "items per page (default from config)")
}

// --- rank ---

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank resumes against a job description",
	Long: `Rank resumes against a job description by similarity.

Examples:
  cvscreen rank --jd 4f1c2a9b
  cvscreen rank --jd 4f1c2a9b --batch 7e0d --limit 10 --min-score 0.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jdID, _ := cmd.Flags().GetString("jd")
		batchID, _ := cmd.Flags().GetString("batch")
		limit, _ := cmd.Flags().GetInt("limit")
		minScore, _ := cmd.Flags().GetFloat64("min-score")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSession(); err != nil {
			return err
		}

		params := screening.RankParams{JDID: jdID, BatchID: batchID, Limit: limit}
		if cmd.Flags().Changed("min-score") {
			params.MinScore = &minScore
		}

		return a.withAuthRetry(cmd.Context(), func() error {
			run, err := a.orch.Rank(cmd.Context(), params)
			if err != nil {
				return err
			}
			renderRun(run)
			return nil
		})
	},
}

func init() {
	rankCmd.Flags().String("jd", "", "job description ID to rank against (required)")
	rankCmd.Flags().String("batch", "", "restrict ranking to one batch")
	rankCmd.Flags().Int("limit", 0, "maximum number of results (default 50)")
	rankCmd.Flags().Float64("min-score", 0, "minimum similarity score between 0 and 1")
}

// --- dashboard ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show account totals and recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSession(); err != nil {
			return err
		}

		return a.withAuthRetry(cmd.Context(), func() error {
			// Prefetch list pages alongside the aggregate so a follow-up
			// batches/jd command hits the cache.
			if err := a.cache.Warm(cmd.Context(), 1, a.cfg.List.PageSize); err != nil {
				return err
			}
			agg, err := a.cache.FetchDashboard(cmd.Context())
			if err != nil {
				return err
			}

			printStatus("Resumes", "%d", agg.TotalResumes)
			printStatus("Batches", "%d", agg.TotalBatches)
			printStatus("Job descriptions", "%d", agg.TotalJDs)
			printStatus("Ranking runs", "%d", agg.TotalRuns)

			rows := timeseries.Bin(agg, a.cfg.Dashboard.WindowDays, time.Now())
			maxTotal := 0
			for _, r := range rows {
				if t := r.Uploads + r.Runs + r.JDs; t > maxTotal {
					maxTotal = t
				}
			}
			if maxTotal == 0 {
				fmt.Printf("\nNo activity in the last %d days.\n", a.cfg.Dashboard.WindowDays)
				return nil
			}

			fmt.Printf("\nActivity (last %d days):\n", a.cfg.Dashboard.WindowDays)
			for _, r := range rows {
				total := r.Uploads + r.Runs + r.JDs
				detail := ""
				if total > 0 {
					detail = fmt.Sprintf("  %d (uploads %d, runs %d, jds %d)", total, r.Uploads, r.Runs, r.JDs)
				}
				fmt.Printf("%7s  %s%s\n", r.Label, colorize(colorCyan, activityBar(total, maxTotal, 30)), detail)
			}
			return nil
		})
	},
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show client and service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		printStatus("Service", "%s", a.cfg.API.BaseURL)
		if err := a.client.Health(cmd.Context()); err != nil {
			printStatus("Health", "unreachable (%v)", err)
		} else {
			printStatus("Health", "ok")
		}

		if _, err := a.session.Load(); errors.Is(err, session.ErrNoSession) {
			printStatus("Session", "not logged in")
		} else if err != nil {
			printStatus("Session", "error: %v", err)
		} else {
			printStatus("Session", "logged in")
		}

		printStatus("Data dir", "%s", a.cfg.Storage.DataDir)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
