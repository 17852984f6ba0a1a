package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/solatis/browscap/internal/compiler"
	"github.com/solatis/browscap/internal/core/config"
	"github.com/solatis/browscap/internal/source"
	"github.com/solatis/browscap/internal/store"
	"github.com/solatis/browscap/internal/types"
	"github.com/solatis/browscap/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update [location]",
	Short: "Compile definitions and publish them to the store",
	Long: `update fetches browscap.ini from a local path, http(s) URL or s3://bucket/key
(defaulting to source.url), compiles it and publishes the result. Nothing is
published unless every shard was written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
	addUpdateFlags(updateCmd.Flags())
}

func addUpdateFlags(fs *pflag.FlagSet) {
	fs.Bool("force", false, "publish even if the definitions are unchanged")
	fs.Bool("prune", true, "delete the previously published dataset")
	fs.Bool("strict", false, "abort on rules whose properties cannot be encoded")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	location := cfg.Source.URL
	if len(args) == 1 {
		location = args[0]
	}

	s, release, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	meta, err := update(cmd, cfg, s, location)
	if errors.Is(err, types.ErrUpToDate) {
		fmt.Fprintf(cmd.OutOrStdout(), "up to date: version %d (%s)\n", meta.Version, meta.BuildID)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published version %d (%s), %d rules dropped\n", meta.Version, meta.BuildID, meta.DroppedRules)
	return nil
}

// update fetches location and publishes it into s using cmd's update flags.
func update(cmd *cobra.Command, cfg *config.Config, s store.Store, location string) (*types.Metadata, error) {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")
	prune, _ := cmd.Flags().GetBool("prune")
	strict, _ := cmd.Flags().GetBool("strict")

	fetcher := source.New(
		source.WithLogger(slog.Default()),
		source.WithS3Config(source.S3Config{
			Region:         cfg.Source.S3Region,
			Endpoint:       cfg.Source.S3Endpoint,
			ForcePathStyle: cfg.Source.S3PathStyle,
		}),
	)
	text, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	copts := []compiler.Option{
		compiler.WithLogger(slog.Default()),
		compiler.WithPrefixLength(cfg.Matcher.PrefixLength),
	}
	if strict {
		copts = append(copts, compiler.WithStrict())
	}
	u := updater.New(s,
		updater.WithCompiler(compiler.New(copts...)),
		updater.WithLogger(slog.Default()),
	)

	meta, err := u.Update(ctx, text, updater.Options{Force: force, Prune: prune})
	if err != nil && !errors.Is(err, types.ErrUpToDate) {
		return nil, fmt.Errorf("update from %s failed: %w", location, err)
	}
	return meta, err
}
