package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"xqcrawl/pkg/browser"
	"xqcrawl/pkg/config"
	"xqcrawl/pkg/crawler"
	"xqcrawl/pkg/errors"
	"xqcrawl/pkg/logger"
	"xqcrawl/pkg/models"
	"xqcrawl/pkg/ratelimit"
	"xqcrawl/pkg/session"
	"xqcrawl/pkg/xueqiu"
)

var (
	outputDir     string
	crawlMode     string
	maxPages      int
	cookiesFile   string
	forceFallback bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <user>",
	Short: "Incrementally fetch a user's posts",
	Long: `Fetch a Xueqiu user's posts into the output directory, newest first,
stopping at the last post of the previous run. The user may be a numeric
id or an exact nickname.`,
	Example: `  # Crawl by numeric id
  xqcrawl crawl 8106514687

  # Crawl by nickname into a custom directory, full timeline
  xqcrawl crawl 某大V -o ./archive -m timeline

  # Force the browser channel
  xqcrawl crawl 8106514687 --fallback`,
	Args: cobra.ExactArgs(1),
	Run:  runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&outputDir, "output", "o", "./data", "output directory")
	crawlCmd.Flags().StringVarP(&crawlMode, "mode", "m", "", "crawl mode: column or timeline (default from config)")
	crawlCmd.Flags().IntVar(&maxPages, "max-pages", 0, "page budget, 0 for unlimited")
	crawlCmd.Flags().StringVar(&cookiesFile, "cookies", "", "cookies JSON file (default config/cookies.json)")
	crawlCmd.Flags().BoolVar(&forceFallback, "fallback", false, "use the browser channel directly")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) {
	userRef := strings.TrimSpace(args[0])

	cfg, err := config.Load(configFile)
	if err != nil {
		fatalExit(err)
	}
	if crawlMode != "" {
		cfg.Crawl.Mode = crawlMode
	}
	if maxPages > 0 {
		cfg.Crawl.MaxPages = maxPages
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fatalExit(err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fatalExit(err)
	}
	log := logger.GetLogger()
	log.InfoWithFields("starting crawl", map[string]interface{}{
		"user":   userRef,
		"config": cfg.String(),
	})

	sess, err := session.Load(session.Options{
		CookiesFile: cookiesFile,
		UserAgent:   cfg.HTTP.UserAgent,
		Logger:      log,
	})
	if err != nil {
		fatalExit(err)
	}

	// One limiter paces both channels.
	limiter := ratelimit.NewIntervalLimiter(cfg.RateLimit.Min(), cfg.RateLimit.Max())
	client := xueqiu.NewClient(cfg, sess, limiter, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := crawler.New(crawler.Options{
		Resolver:      xueqiu.NewUserAPI(client),
		Primary:       xueqiu.NewPaginator(client, cfg.Crawl, log),
		Fallback:      browser.NewChannel(cfg, sess, limiter, log),
		OutputDir:     outputDir,
		ForceFallback: forceFallback,
		Progress:      printProgress,
		Logger:        log,
	})

	stats, err := c.Run(ctx, userRef)
	if err != nil {
		if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted. Progress has been saved; re-run to resume.")
			os.Exit(130)
		}
		fatalExit(err)
	}

	fmt.Printf("Done: %d new, %d skipped, %d errors\n", stats.NewCount, stats.SkipCount, stats.ErrorCount)
}

func printProgress(seq int, post *models.Post) {
	label := post.Title
	if label == "" {
		label = firstLine(post.BodyText, 40)
	}
	date := "unknown"
	if !post.CreatedAt.IsZero() {
		date = post.CreatedAt.Format("2006-01-02")
	}
	fmt.Printf("  [%d] %s %d %s\n", seq, date, post.ID, label)
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) > max {
		s = string(runes[:max]) + "…"
	}
	return s
}

// fatalExit prints one clear message with its remediation and exits 1.
func fatalExit(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if rem := remediation(err); rem != "" {
		fmt.Fprintln(os.Stderr, rem)
	}
	os.Exit(1)
}

func remediation(err error) string {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeConfig:
		return "Check config/settings.yaml and your cookies configuration (see config/cookies.json.example)."
	case errors.ErrorTypeCredentialsExpired:
		return "Your cookies have expired. Log in again in the browser, export fresh cookies, then re-run."
	case errors.ErrorTypeUserNotFound:
		return "Check the user id or nickname; nicknames must match exactly."
	}
	return ""
}
