package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-job-digest/internal/config"
	"go-job-digest/internal/dedup"
	"go-job-digest/internal/logger"
	"go-job-digest/internal/metrics"
	"go-job-digest/internal/notify"
	"go-job-digest/internal/output"
	"go-job-digest/internal/pipeline"
	"go-job-digest/internal/rules"
	"go-job-digest/internal/secrets"
	"go-job-digest/internal/sheets"
	"go-job-digest/internal/source"
)

const runTimeout = 10 * time.Minute

var runOpts struct {
	source     string
	rules      string
	outputDir  string
	seenFile   string
	inputFile  string
	date       string
	ignoreSeen bool
	noNotify   bool
	noSheet    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, filter and deliver today's digest",
	Args:  cobra.NoArgs,
	RunE:  runDigest,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.source, "source", "web104", fmt.Sprintf("Fetch source, one of %v", source.Names()))
	f.StringVar(&runOpts.rules, "rules", "rules.json", "Rule file (JSON or YAML)")
	f.StringVar(&runOpts.outputDir, "output-dir", "outputs", "Directory for the md/json/xlsx artifacts")
	f.StringVar(&runOpts.seenFile, "seen-file", "outputs/seen_job_keys.txt", "History of postings already surfaced")
	f.StringVar(&runOpts.inputFile, "input-file", "sample_104_jobs.json", "Listings file for --source file")
	f.StringVar(&runOpts.date, "date", "", "Artifact date (YYYY-MM-DD), defaults to today")
	f.BoolVar(&runOpts.ignoreSeen, "ignore-seen-dedup", false, "Surface postings even if an earlier run already did (this run only)")
	f.BoolVar(&runOpts.noNotify, "no-notify", false, "Write files only, skip LINE and Telegram")
	f.BoolVar(&runOpts.noNotify, "no-line-push", false, "Alias of --no-notify")
	f.BoolVar(&runOpts.noSheet, "no-sheet", false, "Skip the Google Sheets append")

	rootCmd.AddCommand(runCmd)
}

func runDigest(cmd *cobra.Command, _ []string) error {
	//load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := resolveSecrets(cfg); err != nil {
		log.Printf("⚠️ Keychain lookup failed: %v. Continuing with environment values.", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	ruleCfg, err := rules.Load(runOpts.rules)
	if err != nil {
		return err
	}
	log.Printf("🔧 Rules loaded from %s. Keywords: %v", runOpts.rules, ruleCfg.IncludeKeywords)

	src, err := source.New(runOpts.source, source.Options{
		Config:    cfg,
		InputFile: runOpts.inputFile,
		Logger:    zl,
	})
	if err != nil {
		return err
	}

	//setup context with timeout, cancelled on Ctrl-C
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	store, closeStore, err := openHistory(ctx, cfg, runOpts.seenFile)
	if err != nil {
		return err
	}
	defer closeStore()

	runner := &pipeline.Runner{
		Store:   dedup.NewStore(store, zl),
		Locker:  store,
		Writer:  output.NewWriter(runOpts.outputDir, zl),
		Metrics: metrics.New(),
		PushURL: cfg.PushgatewayURL,
		Log:     zl,
	}
	if runOpts.noNotify {
		log.Println("🔕 Notifications disabled for this run")
	} else {
		runner.Notifiers = notify.Configured(cfg, nil, zl)
	}
	if !runOpts.noSheet && cfg.Sheets.Enabled() {
		api, err := sheets.NewGoogleAPI(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID)
		if err != nil {
			return err
		}
		runner.Sheet = sheets.NewAppender(api, cfg.Sheets, zl)
	} else if !runOpts.noSheet {
		zl.Info("Google Sheets not configured, skipping")
	}

	log.Printf("🚀 Starting digest run (source: %s)...", src.Name())
	res, err := runner.Run(ctx, pipeline.Options{
		Rules:           ruleCfg,
		Source:          src,
		Date:            runOpts.date,
		IgnoreSeenDedup: runOpts.ignoreSeen,
	})
	if res != nil {
		printSummary(cmd.OutOrStdout(), res)
	}
	if err != nil {
		zl.Error("run failed", zap.Error(err))
		return err
	}
	log.Println("🏁 Execution finished.")
	return nil
}

// resolveSecrets fills credentials missing from the environment from the OS
// keychain.
func resolveSecrets(cfg *config.Config) error {
	fills := []struct {
		dst     *string
		account string
	}{
		{&cfg.LINE.ChannelAccessToken, secrets.AccountLINEToken},
		{&cfg.Telegram.Token, secrets.AccountTelegramToken},
		{&cfg.API.Token, secrets.AccountJobAPIToken},
	}
	if cfg.IMAP.User != "" && cfg.IMAP.Host != "" {
		fills = append(fills, struct {
			dst     *string
			account string
		}{&cfg.IMAP.Password, secrets.IMAPAccount(cfg.IMAP.User, cfg.IMAP.Host)})
	}
	for _, f := range fills {
		if err := secrets.Fill(f.dst, f.account); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, res *pipeline.Result) {
	log.Printf("📦 Fetched %d, malformed %d, rejected %d, ranked %d, already seen %d",
		res.Fetched, res.Malformed, res.Rejected, res.Ranked, len(res.AlreadySeen))
	if len(res.Selected) > 0 {
		output.RenderTable(w, res.Selected)
	} else {
		log.Println("ℹ️ No new jobs matched today.")
	}
	for _, p := range res.Artifacts.All() {
		if p != "" {
			log.Printf("📁 Saved %s", p)
		}
	}
	for _, err := range res.SinkErrors {
		log.Printf("⚠️ %v", err)
	}
	switch res.State {
	case pipeline.StateCommitted:
		log.Printf("💾 Marked %d jobs as seen", res.Committed)
	default:
		log.Println("⏸️ Seen history left unchanged")
	}
}
