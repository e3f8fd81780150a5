package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"hospital-beds/hospital"

	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON snapshot of every table and prune old snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _ := cmd.Flags().GetBool("list")

			_, mgr, log, err := openManager()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer mgr.Close()

			if list {
				paths, err := mgr.ListBackups()
				if err != nil {
					return err
				}
				if len(paths) == 0 {
					fmt.Println("No backups.")
					return nil
				}
				for _, p := range paths {
					snap, err := hospital.ReadSnapshot(p)
					if err != nil {
						fmt.Printf("%s  (unreadable: %v)\n", filepath.Base(p), err)
						continue
					}
					fmt.Printf("%s  beds=%d patients=%d admissions=%d users=%d\n", filepath.Base(p),
						len(snap["beds"]), len(snap["patients"]), len(snap["admissions"]), len(snap["users"]))
				}
				return nil
			}

			path, err := mgr.CreateBackup()
			if err != nil {
				return err
			}
			fmt.Println("Backup created at", path)
			return nil
		},
	}
	cmd.Flags().Bool("list", false, "List existing snapshots, newest first")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print ward occupancy, optionally exporting it to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			xlsxPath, _ := cmd.Flags().GetString("xlsx")

			_, mgr, log, err := openManager()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer mgr.Close()

			occ, err := mgr.Occupancy()
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %-6s %-9s %s\n", "Ward", "Total", "Occupied", "Free")
			for _, o := range occ {
				fmt.Printf("%-10s %-6d %-9d %d\n", o.Ward, o.Total, o.Occupied, o.Free())
			}

			if xlsxPath == "" {
				return nil
			}
			f, err := os.Create(filepath.Clean(xlsxPath))
			if err != nil {
				return err
			}
			defer f.Close()
			if err := mgr.WriteReport(f); err != nil {
				return err
			}
			fmt.Println("Report written to", xlsxPath)
			return nil
		},
	}
	cmd.Flags().String("xlsx", "", "Write occupancy and free beds to this .xlsx file")
	return cmd
}

func alertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alert",
		Short: "Check ICU/HDU capacity and notify the admin phone when a ward is full",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, log, err := openManager()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer mgr.Close()

			alerts, err := mgr.CheckCapacity()
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Println("ICU and HDU have free beds")
			}
			for _, a := range alerts {
				fmt.Printf("%s sent=%t\n", a.Message, a.Sent)
			}
			return nil
		},
	}
}

func userAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a console user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			roleRaw, _ := cmd.Flags().GetString("role")
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			role, err := hospital.ParseRole(roleRaw)
			if err != nil {
				return err
			}

			_, mgr, log, err := openManager()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer mgr.Close()

			readPassword := terminalPassword(bufio.NewScanner(os.Stdin))
			pw, err := readPassword(fmt.Sprintf("Password for %s: ", username))
			if err != nil {
				return err
			}
			if _, err := mgr.CreateUser(username, pw, role); err != nil {
				return err
			}
			fmt.Printf("User '%s' created with role %s\n", username, role)
			return nil
		},
	}
	cmd.Flags().String("username", "", "Login name")
	cmd.Flags().String("role", string(hospital.RoleClerk), "admin or clerk")
	return cmd
}
