package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"hospital-beds/config"
	"hospital-beds/hospital"
	"hospital-beds/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hospital",
		Short:        "Hospital bed, admission and discharge console",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole()
		},
	}

	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(alertCmd())
	rootCmd.AddCommand(userAddCmd())
	return rootCmd
}

// openManager loads configuration and wires the manager with its logger and SMS gateway.
func openManager() (*config.Config, *hospital.HospitalManager, *zap.Logger, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	var notifier hospital.Notifier
	if cfg.SMS.Enabled() {
		notifier = hospital.NewTwilioNotifier(cfg.SMS.BaseURL, cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.From, log)
	}

	mgr, err := hospital.NewHospitalManager(hospital.Options{
		DBPath:     cfg.Database.Path,
		BackupDir:  cfg.Backup.Dir,
		BackupKeep: cfg.Backup.Keep,
		Notifier:   notifier,
		AdminPhone: cfg.SMS.AdminPhone,
		Logger:     log,
	})
	if err != nil {
		log.Sync()
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, mgr, log, nil
}

func runConsole() error {
	cfg, mgr, log, err := openManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	defer log.Sync()
	defer mgr.Close()

	created, err := mgr.EnsureAdminExists(cfg.Auth.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		fmt.Printf("Created default user '%s'. Change its password before production use.\n", hospital.DefaultAdminUsername)
	}

	scanner := bufio.NewScanner(os.Stdin)
	return newShell(scanner, os.Stdout, mgr, terminalPassword(scanner)).session()
}

// terminalPassword reads a password with masking when stdin is a terminal and
// falls back to a plain line read otherwise.
func terminalPassword(sc *bufio.Scanner) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		fmt.Print(prompt)
		if term.IsTerminal(int(syscall.Stdin)) {
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return "", err
			}
			fmt.Println() // Add newline after password input
			return strings.TrimSpace(string(bytePassword)), nil
		}
		if !sc.Scan() {
			return "", errInputClosed
		}
		return strings.TrimSpace(sc.Text()), nil
	}
}
