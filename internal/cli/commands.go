package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/feed"
	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/sqlite"
	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/yahoo"
	"github.com/couchcryptid/crisis-ticker-service/internal/config"
	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// addFeedFlags registers the feed source flags shared by feed-reading commands.
func addFeedFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("feed", []string{"data/events.json"}, "feed sources (files or URLs), tried in order")
	cmd.Flags().Duration("timeout", 6*time.Second, "per-source fetch timeout")
}

func addThresholdFlags(cmd *cobra.Command) {
	def := domain.DefaultThresholds()
	cmd.Flags().Float64("stock-threshold", def.StockPercent, "minimum absolute percent move for a stock swing")
	cmd.Flags().Float64("casualty-threshold", def.MassCasualty, "minimum casualty count for a mass casualty")
}

func (e *env) thresholds() domain.Thresholds {
	return domain.Thresholds{
		StockPercent: e.v.GetFloat64("stock-threshold"),
		MassCasualty: e.v.GetFloat64("casualty-threshold"),
	}
}

// loadFeed runs the service's feed loader against the configured sources.
func (e *env) loadFeed(cmd *cobra.Command) (domain.Feed, error) {
	// Unregistered metrics: tickerctl exposes no metrics endpoint.
	loader := feed.NewLoader(e.v.GetStringSlice("feed"), e.v.GetDuration("timeout"),
		observability.NewMetricsForTesting(), e.logger(cmd.ErrOrStderr()))
	f, _, err := loader.Load(cmd.Context())
	return f, err
}

func (e *env) openPrefs() (*sqlite.PrefsStore, error) {
	return sqlite.Open(e.v.GetString("db"))
}

// --- classify ---

type classifyRow struct {
	Title    string          `json:"title" yaml:"title"`
	Category domain.Category `json:"category,omitempty" yaml:"category,omitempty"`
	Label    string          `json:"label,omitempty" yaml:"label,omitempty"`
}

func newClassifyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify every event in a feed",
		Long: `Classify loads the feed and prints the ticker category and label of each
event. Events that match no category are listed with an empty category.

Example:
  tickerctl classify --feed data/events.json --stock-threshold 10 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := e.loadFeed(cmd)
			if err != nil {
				return err
			}
			th := e.thresholds()
			rows := make([]classifyRow, 0, len(f.Events))
			for _, ev := range f.Events {
				row := classifyRow{Title: ev.Title}
				if c, ok := domain.Classify(ev, th); ok {
					row.Category, row.Label = c.Category, c.Label
				}
				rows = append(rows, row)
			}
			return render(cmd.OutOrStdout(), e.v.GetString("output"), rows, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "CATEGORY\tTITLE")
				for _, r := range rows {
					cat := string(r.Category)
					if cat == "" {
						cat = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\n", cat, r.Title)
				}
			})
		},
	}
	addFeedFlags(cmd)
	addThresholdFlags(cmd)
	return cmd
}

// --- ticker ---

type tickerRow struct {
	Label    string          `json:"label" yaml:"label"`
	URL      string          `json:"url" yaml:"url"`
	Category domain.Category `json:"category" yaml:"category"`
}

func newTickerCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticker",
		Short: "Preview the ticker items selected from a feed",
		Long: `Ticker runs the selection pass the service uses: freshness window, category
filter, watchlist exclusion for stock swings, dedup and the item cap.

Example:
  tickerctl ticker --feed https://example.com/events.json --watchlist KO,TSLA
  tickerctl ticker --now 2025-12-24T12:00:00Z -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := e.loadFeed(cmd)
			if err != nil {
				return err
			}
			now := domain.Now()
			if s := e.v.GetString("now"); s != "" {
				t, ok := domain.ParseTimestamp(s)
				if !ok {
					return fmt.Errorf("invalid --now %q", s)
				}
				now = t
			}
			items := domain.SelectTickerItemsAt(now, f.Events, f.TickerConfig, e.thresholds(), e.v.GetStringSlice("watchlist"))
			rows := make([]tickerRow, len(items))
			for i, it := range items {
				rows[i] = tickerRow(it)
			}
			return render(cmd.OutOrStdout(), e.v.GetString("output"), rows, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "CATEGORY\tLABEL")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\n", r.Category, r.Label)
				}
			})
		},
	}
	addFeedFlags(cmd)
	addThresholdFlags(cmd)
	cmd.Flags().StringSlice("watchlist", nil, "watchlist tickers excluded from stock swings")
	cmd.Flags().String("now", "", "evaluate freshness at this RFC 3339 time instead of now")
	return cmd
}

// --- watchlist ---

func newWatchlistCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Match and manage the stored watchlist",
	}

	match := &cobra.Command{
		Use:   "match <ticker-or-company>",
		Short: "Find the latest feed event mentioning a ticker or company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := e.loadFeed(cmd)
			if err != nil {
				return err
			}
			entry := domain.WatchlistEntry{Value: args[0], Type: domain.EntryTicker}
			if company, _ := cmd.Flags().GetBool("company"); company {
				entry.Type = domain.EntryCompany
			}
			ev, ok := domain.FindLatestMatch(entry, f.Events)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no events mention %s\n", strings.Join(entry.Tokens(), ", "))
				return nil
			}
			return render(cmd.OutOrStdout(), e.v.GetString("output"), ev, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "TITLE\t%s\n", ev.Title)
				fmt.Fprintf(tw, "PUBLISHED\t%s\n", ev.Published)
				fmt.Fprintf(tw, "URL\t%s\n", ev.URL)
			})
		},
	}
	addFeedFlags(match)
	match.Flags().Bool("company", false, "match as a company name without ticker synonyms")

	set := &cobra.Command{
		Use:   "set <entry>...",
		Short: "Replace the stored watchlist (company:<name> for company entries)",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]domain.WatchlistEntry, 0, len(args))
			for _, a := range args {
				if name, ok := strings.CutPrefix(a, "company:"); ok {
					entries = append(entries, domain.WatchlistEntry{Value: name, Type: domain.EntryCompany})
					continue
				}
				entries = append(entries, domain.WatchlistEntry{Value: a, Type: domain.EntryTicker})
			}
			entries = domain.NormalizeWatchlistEntries(entries)

			store, err := e.openPrefs()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveWatchlist(cmd.Context(), entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watchlist saved (%d entries)\n", len(entries))
			return nil
		},
	}

	cmd.AddCommand(match, set)
	return cmd
}

// --- prefs ---

func newPrefsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or edit stored preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print every stored preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := e.openPrefs()
			if err != nil {
				return err
			}
			defer store.Close()
			p, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), e.v.GetString("output"), p, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "ticker duration\t%ds\n", p.TickerDuration)
				fmt.Fprintf(tw, "stock threshold\t%g%%\n", p.Thresholds.StockPercent)
				fmt.Fprintf(tw, "casualty threshold\t%g\n", p.Thresholds.MassCasualty)
				for _, w := range p.Watchlist {
					fmt.Fprintf(tw, "watchlist\t%s (%s)\n", w.Value, w.Type)
				}
				fmt.Fprintf(tw, "rss filters\tgn=%t mwTop=%t mwRealtime=%t mwPulse=%t\n",
					p.RSSFilters.GoogleNews, p.RSSFilters.MWTop, p.RSSFilters.MWRealtime, p.RSSFilters.MWPulse)
			})
		},
	}

	speed := &cobra.Command{
		Use:       "speed slower|faster|reset",
		Short:     "Move the ticker duration one step or reset it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"slower", "faster", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.openPrefs()
			if err != nil {
				return err
			}
			defer store.Close()
			p, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			var next int
			switch args[0] {
			case "slower":
				next = domain.AdjustTickerDuration(p.TickerDuration, 1)
			case "faster":
				next = domain.AdjustTickerDuration(p.TickerDuration, -1)
			case "reset":
				next = domain.DefaultTickerDuration
			default:
				return fmt.Errorf("unknown speed action %q", args[0])
			}
			if err := store.SaveTickerDuration(cmd.Context(), next); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ticker duration %ds\n", next)
			return nil
		},
	}

	thresholds := &cobra.Command{
		Use:   "thresholds",
		Short: "Store classifier thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			th := e.thresholds()
			if err := th.Validate(); err != nil {
				return err
			}
			store, err := e.openPrefs()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveThresholds(cmd.Context(), th); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "thresholds saved: stock %g%%, casualties %g\n", th.StockPercent, th.MassCasualty)
			return nil
		},
	}
	addThresholdFlags(thresholds)

	cmd.AddCommand(show, speed, thresholds)
	return cmd
}

// --- quote ---

type quoteRow struct {
	Symbol    string   `json:"symbol" yaml:"symbol"`
	Available bool     `json:"available" yaml:"available"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Price     *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	Pct       *float64 `json:"pct,omitempty" yaml:"pct,omitempty"`
	Currency  string   `json:"currency,omitempty" yaml:"currency,omitempty"`
}

func newQuoteCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <symbol>...",
		Short: "Fetch live quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := yahoo.NewProvider(e.v.GetString("provider"), e.v.GetDuration("quote-timeout"),
				time.Minute, observability.NewMetricsForTesting())
			rows := make([]quoteRow, len(args))
			for i, sym := range args {
				rows[i] = fetchQuote(cmd.Context(), provider, sym)
			}
			return render(cmd.OutOrStdout(), e.v.GetString("output"), rows, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "SYMBOL\tPRICE\tCHANGE\tNAME")
				for _, r := range rows {
					if !r.Available {
						fmt.Fprintf(tw, "%s\tunavailable\t\t\n", r.Symbol)
						continue
					}
					fmt.Fprintf(tw, "%s\t%s%s\t%s%%\t%s\n", r.Symbol, domain.CurrencySymbol(r.Currency), fmtFloat(r.Price, 2), fmtFloat(r.Pct, 2), r.Name)
				}
			})
		},
	}
	cmd.Flags().String("provider", config.QuoteProviderYahoo, "quote provider: yahoo or public")
	cmd.Flags().Duration("quote-timeout", 4*time.Second, "per-quote timeout")
	return cmd
}

func fetchQuote(ctx context.Context, p domain.QuoteProvider, symbol string) quoteRow {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	q, err := p.Quote(ctx, symbol)
	if err != nil || q.Empty() {
		return quoteRow{Symbol: symbol}
	}
	return quoteRow{Symbol: symbol, Available: true, Name: q.Name, Price: q.Price, Pct: q.Pct, Currency: q.Currency}
}

// --- config ---

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect tickerctl configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if used := e.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n", used)
			}
			data, err := yaml.Marshal(e.v.AllSettings())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}
