package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/solatis/browscap/internal/browser"
	"github.com/solatis/browscap/internal/core/api"
	"github.com/solatis/browscap/internal/core/auth"
	"github.com/solatis/browscap/internal/core/config"
	"github.com/solatis/browscap/internal/matcher"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <user-agent>...",
	Short: "Resolve user agents to their browser properties",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().String("remote", "", "query a running gRPC server at host:port instead of the local store")
	lookupCmd.Flags().String("api-key", "", "API key sent to the remote server")
	lookupCmd.Flags().Bool("lower", true, "lower-case property names (remote results are always lower-cased)")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	remote, _ := cmd.Flags().GetString("remote")
	lower, _ := cmd.Flags().GetBool("lower")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if remote != "" {
		apiKey, _ := cmd.Flags().GetString("api-key")
		return lookupRemote(ctx, enc, remote, apiKey, args)
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

	for _, ua := range args {
		b, err := resolver.Resolve(ctx, ua)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", ua, err)
		}
		if err := enc.Encode(b.Map(lower)); err != nil {
			return err
		}
	}
	return nil
}

// openResolver binds a resolver to the dataset currently published in the
// configured store.
func openResolver(ctx context.Context, cfg *config.Config) (*browser.Resolver, func(), error) {
	s, release, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	m, err := matcher.Open(ctx, s,
		matcher.WithLogger(slog.Default()),
		matcher.WithRegexpCache(cfg.Matcher.RegexpCacheSize),
	)
	if err != nil {
		release()
		return nil, nil, err
	}
	meta := m.Metadata()
	slog.Debug("dataset loaded", "version", meta.Version, "build", meta.BuildID)
	return browser.NewResolver(m), release, nil
}

func lookupRemote(ctx context.Context, enc *json.Encoder, addr, apiKey string, agents []string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.HeaderName, apiKey)
	}
	client := api.NewLookupClient(conn)
	for _, ua := range agents {
		out, err := client.GetBrowser(ctx, ua)
		if err != nil {
			return fmt.Errorf("lookup %q: %w", ua, err)
		}
		if err := enc.Encode(out.AsMap()); err != nil {
			return err
		}
	}
	return nil
}

