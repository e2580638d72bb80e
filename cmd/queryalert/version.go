package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show queryalert version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("queryalert %s (%s)\n", Version, build)
	},
}
