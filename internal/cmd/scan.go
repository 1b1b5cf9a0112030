package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/masahif/linkscout/internal/config"
	"github.com/masahif/linkscout/internal/crawler"
	"github.com/masahif/linkscout/internal/extract"
	"github.com/masahif/linkscout/internal/fetch"
	"github.com/masahif/linkscout/internal/report"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Crawl a site and report its external links",
		Long: `Crawl the site of <url> depth-first. Links on the same scheme and host are
followed while budget remains; every other link is reported, grouped by the
page it was found on.`,
		Args: urlArg,
		RunE: a.runScan,
	}

	d := config.DefaultConfig()
	cmd.Flags().IntP("budget", "b", d.Budget, "Budget of the start page; 0 or less fetches nothing")
	cmd.Flags().String("policy", d.BudgetPolicy, "Budget policy: sibling (each followed link costs one) or depth (each level costs one)")
	cmd.Flags().StringSlice("ignore-ext", d.IgnoredExtensions, "Path extensions never followed")
	cmd.Flags().String("extractor", d.Extractor, "Link extractor: pattern or html")
	cmd.Flags().StringP("output", "o", d.Output, "Output format: text, json or markdown")
	cmd.Flags().DurationP("timeout", "t", d.RequestTimeout, "HTTP request timeout")
	cmd.Flags().DurationP("delay", "r", d.RequestDelay, "Minimum delay between requests to the same host")
	cmd.Flags().StringSlice("host-delay", d.HostDelays, "Per-host delay override as host=duration, e.g. example.com=2s")
	cmd.Flags().StringP("user-agent", "u", d.UserAgent, "HTTP User-Agent header")

	a.bindFlags(cmd.Flags(), []flagBinding{
		{"budget", "budget"},
		{"budget_policy", "policy"},
		{"ignored_extensions", "ignore-ext"},
		{"extractor", "extractor"},
		{"output", "output"},
		{"request_timeout", "timeout"},
		{"request_delay", "delay"},
		{"host_delays", "host-delay"},
		{"user_agent", "user-agent"},
	})

	return cmd
}

// urlArg requires exactly one argument unless --show-config is given.
func urlArg(cmd *cobra.Command, args []string) error {
	if show, _ := cmd.Flags().GetBool("show-config"); show {
		return cobra.MaximumNArgs(1)(cmd, args)
	}
	return cobra.ExactArgs(1)(cmd, args)
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	defer a.closeLog()

	if shown, err := a.showConfigIfRequested(cmd); shown {
		return err
	}

	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	policy, err := crawler.ParseBudgetPolicy(cfg.BudgetPolicy)
	if err != nil {
		return err
	}
	extractor, err := extract.New(cfg.Extractor)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rep, err := report.New(cfg.Output, out, args[0])
	if err != nil {
		return err
	}

	hostDelays, err := cfg.ParseHostDelays()
	if err != nil {
		return err
	}

	fetcher := fetch.NewHTTPFetcher(cfg.UserAgent, cfg.RequestTimeout)
	defer fetcher.Close()
	fetcher.SetMaxBodySize(cfg.MaxBodySize)
	fetcher.SetThrottle(fetch.NewThrottle(cfg.RequestDelay, hostDelays))

	c := crawler.New(fetcher,
		crawler.WithBudgetPolicy(policy),
		crawler.WithExtractor(extractor),
		crawler.WithIgnoredExtensions(cfg.IgnoredExtensions),
		crawler.WithObserver(rep),
	)

	scanErr := c.Scan(cmd.Context(), args[0], cfg.Budget)

	if err := rep.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if scanErr != nil {
		return fmt.Errorf("scan failed: %w", scanErr)
	}

	stats := c.Stats()
	slog.Debug("Scan statistics",
		"pages", stats.PagesFetched,
		"fetch_errors", stats.FetchErrors,
		"links_dropped", stats.LinksDropped,
		"links_skipped", stats.LinksSkipped,
		"events", stats.Events,
		"duration", stats.Duration)

	if cfg.Output == report.FormatText {
		fmt.Fprintln(out, "Done.")
	}
	return nil
}
