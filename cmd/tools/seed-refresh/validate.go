// cmd/tools/seed-refresh/validate.go
package main

import (
	"fmt"

	"astroscope/pkg/seedfile"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every lesson in the seed file has a unique positive id",
	RunE: func(cmd *cobra.Command, args []string) error {
		sf, err := seedfile.Load(seedPath)
		if err != nil {
			return fmt.Errorf("seed file %s is invalid: %w", seedPath, err)
		}
		if sf.TotalLessons != len(sf.Lessons) {
			fmt.Printf("Warning: total_lessons is %d but the file holds %d lessons\n", sf.TotalLessons, len(sf.Lessons))
		}
		fmt.Printf("Seed file %s is valid (%d lessons, generated %s)\n", seedPath, len(sf.Lessons), sf.GeneratedAt)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
