// Command workshop runs the two exercises of the introductory machine
// learning workshop and keeps a registry of past runs.
//
// Example:
//
//	workshop weather --path data/temps.csv --trees 1000
//	workshop mnist --epochs 5 --limit 10000
//	workshop prep --input Employee.csv --encode onehot --output processed.csv
//	workshop runs
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/config"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/logging"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/pipeline"
	"github.com/X-Sensing/Intro-ML-Xsensing/pkg/runstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by the subcommands once the configuration is read.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logging.Logger
	out     io.Writer
	errOut  io.Writer
}

func (a *app) env() pipeline.Env {
	env := pipeline.Env{
		Out:       a.out,
		Log:       a.log,
		OutputDir: a.cfg.OutputDir,
	}
	if a.cfg.Verbose {
		env.Progress = a.errOut
	}
	return env
}

// record stores a finished run. A missing registry path disables it.
func (a *app) record(run *runstore.Run) error {
	run.Finish()
	if a.cfg.RunStore == "" {
		return nil
	}
	store, err := runstore.Open(a.cfg.RunStore)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Put(run); err != nil {
		return err
	}
	a.log.Info.Printf("run %s recorded in %s", run.ID, a.cfg.RunStore)
	return nil
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: config.New(), out: out, errOut: errOut}
	root := &cobra.Command{
		Use:           "workshop",
		Short:         "Introductory machine learning exercises",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(a.errOut, cfg.Verbose)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("out", "out", "directory for plots and saved models")
	pf.String("runstore", "workshop.db", "run registry database, empty to disable")
	pf.Bool("verbose", true, "print progress information")
	bind(a.v, root, map[string]string{
		"out":      "out",
		"runstore": "runstore",
		"verbose":  "verbose",
	})

	root.AddCommand(newWeatherCmd(a), newMNISTCmd(a), newPrepCmd(a), newRunsCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
