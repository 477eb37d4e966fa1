package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jejulab/landmass/internal/pnu"
)

var landCmd = &cobra.Command{
	Use:   "land <pnu>",
	Short: "Resolve a 19-digit parcel identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		land, err := env.Resolver.ResolveByPNU(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(land)
	},
}

var regulationCmd = &cobra.Command{
	Use:   "regulation <pnu>",
	Short: "Report the zoning limits and absolute maxima for a parcel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Resolver.Regulation(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

var pnuCode10 string

var pnuCmd = &cobra.Command{
	Use:   "pnu <pnu | jibun>",
	Short: "Decode a parcel identifier, or encode one with --code10",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if pnuCode10 != "" {
			id, err := pnu.Encode(pnuCode10, args[0])
			if err != nil {
				return err
			}
			return enc.Encode(map[string]string{"pnu": id})
		}

		parts := pnu.Decode(args[0])
		return enc.Encode(map[string]any{
			"parts": parts,
			"jibun": parts.JibunString(),
		})
	},
}

func init() {
	pnuCmd.Flags().StringVar(&pnuCode10, "code10", "", "10-digit region code, switches to encode mode")
	rootCmd.AddCommand(landCmd)
	rootCmd.AddCommand(regulationCmd)
	rootCmd.AddCommand(pnuCmd)
}
