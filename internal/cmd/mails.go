package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/masahif/linkscout/internal/fetch"
	"github.com/masahif/linkscout/internal/mail"
)

func newMailsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mails <url|->",
		Short: "Print obfuscated mail addresses found on a page",
		Long: `Fetch one page, or read standard input when the argument is "-", and print
every address written as name[at]domain[dot]tld in its usual form.`,
		Args: urlArg,
		RunE: a.runMails,
	}

	cmd.Flags().Bool("unique", false, "Print each address once, ignoring case")
	cmd.Flags().String("save-page", "", "Write the page text to this file")

	return cmd
}

func (a *app) runMails(cmd *cobra.Command, args []string) error {
	defer a.closeLog()

	if shown, err := a.showConfigIfRequested(cmd); shown {
		return err
	}

	text, err := a.readPage(cmd, args[0])
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save-page"); path != "" {
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to save page: %w", err)
		}
		slog.Info("Saved page", "path", path, "bytes", len(text))
	}

	addrs := mail.ExtractObfuscated(text)
	if unique, _ := cmd.Flags().GetBool("unique"); unique {
		addrs = mail.Unique(addrs)
	}

	out := cmd.OutOrStdout()
	for _, addr := range addrs {
		fmt.Fprintln(out, addr)
	}
	slog.Info("Harvested addresses", "source", args[0], "count", len(addrs))
	return nil
}

func (a *app) readPage(cmd *cobra.Command, source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	if err := a.cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}

	fetcher := fetch.NewHTTPFetcher(a.cfg.UserAgent, a.cfg.RequestTimeout)
	defer fetcher.Close()
	fetcher.SetMaxBodySize(a.cfg.MaxBodySize)

	return fetcher.Fetch(cmd.Context(), source)
}
