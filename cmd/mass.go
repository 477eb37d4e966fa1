package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jejulab/landmass/internal/model"
	"github.com/jejulab/landmass/internal/zoning"
)

var (
	massFloors   int
	massType     string
	massFront    float64
	massBack     float64
	massLeft     float64
	massRight    float64
	massNoSave   bool
	massGeometry bool
)

var massCmd = &cobra.Command{
	Use:   "mass <pnu>",
	Short: "Compute a compliant building envelope for a parcel",
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

		input := model.MassDesignInput{
			PNU:          args[0],
			BuildingType: massType,
			TargetFloors: massFloors,
			Setbacks: model.Setbacks{
				Front: massFront,
				Back:  massBack,
				Left:  massLeft,
				Right: massRight,
			},
		}

		study, err := env.Solver.Solve(land, input)
		if err != nil {
			return err
		}

		if !massNoSave {
			if err := env.Store.SaveMassStudy(ctx, study); err != nil {
				return eris.Wrap(err, "save mass study")
			}
		}

		zap.L().Info("mass study complete",
			zap.String("id", study.ID.String()),
			zap.Int("floors", study.Floors),
			zap.Float64("coverage", study.CoverageRatio),
			zap.Float64("far", study.FARRatio),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if massGeometry {
			return enc.Encode(study.Geometry)
		}
		return enc.Encode(study)
	},
}

var (
	parkingType  string
	parkingArea  float64
	parkingUnits int
)

var parkingCmd = &cobra.Command{
	Use:   "parking",
	Short: "Compute the required parking count for a building program",
	RunE: func(cmd *cobra.Command, args []string) error {
		count := zoning.ParkingRequired(parkingType, parkingArea, parkingUnits)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"building_type": parkingType,
			"total_area":    parkingArea,
			"unit_count":    parkingUnits,
			"required":      count,
		})
	},
}

func init() {
	defaults := model.DefaultSetbacks()
	massCmd.Flags().IntVar(&massFloors, "floors", 3, "target floor count")
	massCmd.Flags().StringVar(&massType, "type", "단독주택", "building type")
	massCmd.Flags().Float64Var(&massFront, "front", defaults.Front, "front setback in meters")
	massCmd.Flags().Float64Var(&massBack, "back", defaults.Back, "back setback in meters")
	massCmd.Flags().Float64Var(&massLeft, "left", defaults.Left, "left setback in meters")
	massCmd.Flags().Float64Var(&massRight, "right", defaults.Right, "right setback in meters")
	massCmd.Flags().BoolVar(&massNoSave, "no-save", false, "skip persisting the study")
	massCmd.Flags().BoolVar(&massGeometry, "geometry", false, "print only the box geometry")
	rootCmd.AddCommand(massCmd)

	parkingCmd.Flags().StringVar(&parkingType, "type", "단독주택", "building type")
	parkingCmd.Flags().Float64Var(&parkingArea, "area", 0, "total floor area in m²")
	parkingCmd.Flags().IntVar(&parkingUnits, "units", 0, "dwelling unit count")
	_ = parkingCmd.MarkFlagRequired("area")
	rootCmd.AddCommand(parkingCmd)
}
