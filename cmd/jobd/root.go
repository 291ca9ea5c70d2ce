package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tsukikage7/jobkit/config"
	"github.com/Tsukikage7/jobkit/logger"
)

const defaultConfigPath = "jobd.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "jobd",
		Short:        "Run shell commands on recurring schedules",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "config file path")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the scheduler daemon",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return runDaemon(configPath)
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the config file and print upcoming runs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.LoadDaemon(configPath)
				if err != nil {
					return err
				}
				return printSchedule(cmd, cfg, time.Now())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Printf("jobd version %s\n", version)
			},
		},
	)
	return root
}

func runDaemon(path string) error {
	cfg, err := config.LoadDaemon(path)
	if err != nil {
		return err
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = version
	}

	log, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	d, err := newDaemon(cfg, log)
	if err != nil {
		log.Errorf("[jobd] 初始化失败: %v", err)
		return err
	}

	log.With(logger.Int("jobs", len(cfg.Jobs))).Infof("[jobd] 启动 [config:%s]", path)
	return d.Run()
}

// printSchedule 输出每个任务的触发规则和下一次执行时间.
func printSchedule(cmd *cobra.Command, cfg *config.Config, now time.Time) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	now = now.In(loc)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTRIGGER\tNEXT RUN\tPAUSED")
	for _, jc := range cfg.Jobs {
		trigger, err := jc.Trigger()
		if err != nil {
			return err
		}
		next := "-"
		if t := trigger.Next(now); !t.IsZero() {
			next = t.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", jc.Name, trigger, next, jc.Paused)
	}
	return w.Flush()
}
