package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MEKXH/funbot/internal/version"
)

func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the funbot build (release, revision, platform)",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Println(info.String())
			if info.CommitTime != "" {
				fmt.Printf("committed %s, built with %s\n", info.CommitTime, info.Go)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print build info as JSON")
	return cmd
}
