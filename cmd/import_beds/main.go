package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hospital-beds/config"
	"hospital-beds/hospital"
	"hospital-beds/logger"

	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:          "import_beds <inventory.xlsx>",
		Short:        "Seed the bed inventory from the first sheet of an .xlsx workbook (columns: Ward, Equipment)",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			return run(args[0], reset)
		},
	}
	cmd.Flags().Bool("reset", false, "Delete the existing database files before importing")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(path string, reset bool) error {
	cfg := config.Load()

	if reset {
		fmt.Println("Cleaning up existing database files...")
		for _, file := range []string{cfg.Database.Path, cfg.Database.Path + "-shm", cfg.Database.Path + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
			}
		}
		fmt.Println("Database cleanup complete.")
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return err
	}
	defer log.Sync()

	manager, err := hospital.NewHospitalManager(hospital.Options{DBPath: cfg.Database.Path, Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return err
	}
	defer manager.Close()

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("Importing beds from %s...\n", path)
	res, err := manager.ImportBeds(f)
	if res != nil {
		for _, issue := range res.Skipped {
			fmt.Printf("Warning: row %d skipped: %s\n", issue.Row, issue.Reason)
		}
		fmt.Printf("\nImport complete!\n")
		fmt.Printf("Successfully imported: %d beds\n", len(res.Added))
		fmt.Printf("Skipped: %d\n", len(res.Skipped))
	}
	if err != nil {
		return err
	}

	beds, err := manager.ListBeds()
	if err != nil {
		fmt.Printf("Error retrieving beds: %v\n", err)
		return nil
	}
	fmt.Println("\nBed inventory:")
	fmt.Printf("%-5s %-10s %-10s %s\n", "ID", "Ward", "Status", "Equipment")
	fmt.Println(strings.Repeat("-", 60))
	for _, b := range beds {
		fmt.Printf("%-5d %-10s %-10s %s\n", b.ID, b.Ward, b.Status, strings.Join(b.Equipment, ", "))
	}
	return nil
}
