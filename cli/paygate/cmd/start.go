package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tachi-labs/paygate"
	"github.com/tachi-labs/paygate/common"
)

const pidFile string = ".paygate_pid.lock"

var daemon bool

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start paygate",
	Long:  `start paygate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if daemon {
			if _, err := os.Stat(pidFile); err == nil {
				fmt.Println("Failed start, PID file exist.running...")
				return nil
			}

			path, err := os.Executable()
			if err != nil {
				return err
			}

			args := []string{"start"}
			if cfgFile != "" {
				args = append(args, "--cfg", cfgFile)
			}
			command := exec.Command(path, args...)

			logFileName := fmt.Sprintf("paygate_%d.log", time.Now().Unix())
			logFile, err := os.OpenFile(logFileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
			if err != nil {
				return err
			}

			command.Stdout = logFile
			command.Stderr = logFile

			if err := command.Start(); err != nil {
				return err
			}
			err = os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", command.Process.Pid)), 0666)
			if err != nil {
				return err
			}

			daemon = false
			os.Exit(0)
		}
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().BoolVarP(&daemon, "daemon", "d", false, "run in background")
}

func runServer() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	common.SetLogLevel(cfg.Env != "production")
	p, err := paygate.New(cfg)
	if err != nil {
		return err
	}
	p.Run()

	<-signals
	p.Close()
	return nil
}
