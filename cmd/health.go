package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"musicstream/config"
	"musicstream/db"
	"musicstream/logger"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the document store candidates",
	Long:  `Try the configured MongoDB candidates in order and print the resulting health snapshot.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.InitLogger(logger.Config{Level: logger.LogLevel(cfg.LogLevel)})

		mgr := db.NewManager(cfg.DBName)
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		label, err := mgr.Acquire(ctx, db.CandidatesFromConfig(cfg))
		if err != nil {
			log.Printf("acquisition failed: %v", err)
		} else {
			fmt.Printf("connected via %q\n", label)
			mgr.EnsureIndexes(ctx)
		}

		snapshot := mgr.HealthSnapshot(ctx)
		out, _ := json.MarshalIndent(snapshot, "", "  ")
		fmt.Println(string(out))

		if err := mgr.Release(ctx); err != nil {
			log.Printf("release failed: %v", err)
		}

		if snapshot.Status != db.StatusConnected {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
