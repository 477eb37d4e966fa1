package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jejulab/landmass/internal/model"
)

var analyzeWithRoads bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <address>",
	Short: "Resolve a jibun address to merged parcel attributes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		address := strings.Join(args, " ")
		land, err := env.Resolver.Resolve(ctx, address)
		if err != nil {
			return err
		}

		var roads []model.RoadInfo
		if analyzeWithRoads {
			roads, err = env.Resolver.NearbyRoads(ctx, land)
			if err != nil {
				zap.L().Warn("nearby roads lookup failed", zap.String("pnu", land.PNU), zap.Error(err))
			}
		}

		zap.L().Info("parcel resolved",
			zap.String("pnu", land.PNU),
			zap.Float64("area", land.Area),
			zap.String("use_zone", land.UseZone),
		)

		out := map[string]any{"land": land}
		if analyzeWithRoads {
			out["roads"] = roads
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeWithRoads, "roads", false, "include adjacent road context")
	rootCmd.AddCommand(analyzeCmd)
}
