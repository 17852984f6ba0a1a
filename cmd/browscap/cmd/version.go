package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/browscap/internal/matcher"
	"github.com/solatis/browscap/internal/types"
)

const Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the program and published dataset versions",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "browscap %s\n", Version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, release, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer release()

	meta, err := matcher.Current(cmd.Context(), s)
	if errors.Is(err, types.ErrNotPublished) {
		fmt.Fprintln(out, "dataset: none published")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "dataset: version %d released %s (%s)\n", meta.Version, meta.ReleaseDate, meta.Type)
	fmt.Fprintf(out, "build:   %s compiled %s\n", meta.BuildID, meta.CompiledAt.Format("2006-01-02 15:04:05"))
	return nil
}
