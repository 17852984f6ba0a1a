package cmd

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/browscap/internal/logfile"
	"github.com/solatis/browscap/internal/properties"
)

var logfileCmd = &cobra.Command{
	Use:   "logfile [path]",
	Short: "Count browsers seen in an access log",
	Long: `logfile reads a combined-format access log (or stdin) and resolves the
user agent of every line, printing request counts per browser.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogfile,
}

func init() {
	rootCmd.AddCommand(logfileCmd)
	logfileCmd.Flags().Int("top", 20, "number of browsers to print (0 prints all)")
	logfileCmd.Flags().Bool("crawlers", false, "count only crawler traffic")
}

type browserCount struct {
	name  string
	count int
}

func runLogfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	top, _ := cmd.Flags().GetInt("top")
	crawlers, _ := cmd.Flags().GetBool("crawlers")

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolver, release, err := openResolver(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	counts := make(map[string]int)
	sc := logfile.NewScanner(in)
	for sc.Next() {
		b, err := resolver.Resolve(ctx, sc.UserAgent())
		if err != nil {
			return fmt.Errorf("line %d: %w", sc.Lines(), err)
		}
		if crawlers {
			if v, ok := b.Record.Get(properties.Crawler); !ok || !v.Bool() {
				continue
			}
		}
		name := b.Record.String(properties.Browser)
		if v := b.Record.String(properties.Version); v != "" && v != "0.0" {
			name += " " + v
		}
		counts[name]++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if sc.Malformed() > 0 {
		slog.Warn("skipped malformed lines", "count", sc.Malformed(), "lines", sc.Lines())
	}

	sorted := make([]browserCount, 0, len(counts))
	for name, n := range counts {
		sorted = append(sorted, browserCount{name, n})
	}
	slices.SortFunc(sorted, func(a, b browserCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BROWSER\tREQUESTS")
	for _, bc := range sorted {
		fmt.Fprintf(w, "%s\t%d\n", bc.name, bc.count)
	}
	return w.Flush()
}
