package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"remfallback/config"
	"remfallback/state"
)

// Run is the action of "convert" command: sources from command line are
// merged and processed as a single unnamed task.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	if cmd.Args().Len() == 0 {
		return errors.New("no input source has been specified")
	}

	logResults := env.Cfg.Conversion.Log
	if cmd.IsSet("log") {
		logResults = cmd.Bool("log")
	}

	task := Task{
		Name:        "convert",
		Sources:     cmd.Args().Slice(),
		Destination: cmd.String("out"),
		Log:         logResults,
		Overwrite:   env.Cfg.Conversion.Overwrite || cmd.Bool("overwrite"),
	}

	log.Info("Processing starting", zap.Strings("sources", task.Sources), zap.String("destination", destinationName(task.Destination)))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	_, err := Process(ctx, task, log)
	return err
}

// RunTasks is the action of "run" command: executes configured tasks, all of
// them when no names were given on command line. Failure of a single task
// does not stop others, all errors are reported together.
func RunTasks(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("run")

	tasks, unknown := env.Cfg.FindTasks(cmd.Args().Slice()...)
	for _, name := range unknown {
		err = multierr.Append(err, fmt.Errorf("task %q is not configured", name))
	}
	if len(tasks) == 0 {
		if err != nil {
			return err
		}
		log.Warn("No tasks configured, nothing to do")
		return nil
	}

	log.Info("Processing starting", zap.Int("tasks", len(tasks)))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	for _, tc := range tasks {
		if cerr := ctx.Err(); cerr != nil {
			return multierr.Append(err, cerr)
		}
		task := taskFromConfig(tc, env.Cfg.Conversion)
		task.Overwrite = task.Overwrite || cmd.Bool("overwrite")
		if _, terr := Process(ctx, task, log); terr != nil {
			log.Error("Task failed", zap.String("task", task.Name), zap.Error(terr))
			err = multierr.Append(err, fmt.Errorf("task %q: %w", task.Name, terr))
		}
	}
	return err
}

func taskFromConfig(tc config.TaskConfig, defaults config.ConversionConfig) Task {
	return Task{
		Name:        tc.Name,
		Sources:     tc.Sources,
		Destination: tc.Destination,
		Log:         tc.LogResults(defaults),
		Overwrite:   defaults.Overwrite,
	}
}
