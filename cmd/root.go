package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photoflow",
	Short: "Face-aware photo ingestion and matching pipeline",
	Long: `Photoflow ingests photo folders from object storage, generates
thumbnails, extracts face embeddings through the detection service and
lets event guests find their own photos with a selfie.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
