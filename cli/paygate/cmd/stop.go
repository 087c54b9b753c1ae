package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stop a daemonised paygate",
	// the pid file is all stop needs
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(pidFile)
		if err != nil {
			return fmt.Errorf("read pid file: %w", err)
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return fmt.Errorf("invalid pid file %s: %w", pidFile, err)
		}
		proc, err := os.FindProcess(pid)
		if err != nil {
			return err
		}
		// SIGTERM drains queued ledger writes before exit
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("signal %d: %w", pid, err)
		}
		if err := os.Remove(pidFile); err != nil {
			return err
		}
		fmt.Println("paygate stopped, pid", pid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
