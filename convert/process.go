// Package convert implements program commands: loading sources, inserting
// px fallbacks and writing results.
package convert

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"remfallback/config"
	"remfallback/css"
	"remfallback/fallback"
	"remfallback/files"
	"remfallback/state"
)

// Task is a group of sources merged into a single destination.
type Task struct {
	Name        string
	Sources     []string
	Destination string
	// Log requests reporting of root size and number of conversions.
	Log       bool
	Overwrite bool
}

func destinationName(dest string) string {
	if files.IsStdout(dest) {
		return "STDOUT"
	}
	return dest
}

// Process loads task sources, inserts fallbacks and writes result. Malformed
// stylesheet stops the task before anything is written.
func Process(ctx context.Context, task Task, log *zap.Logger) (stats fallback.Stats, rerr error) {
	env := state.EnvFromContext(ctx)
	log = log.With(zap.String("task", task.Name))

	log.Debug("Task starting", zap.Strings("sources", task.Sources), zap.String("destination", destinationName(task.Destination)))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Task ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("task panic: %v", r)
			return
		}
		log.Debug("Task completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	sources, err := files.NewReader(log).Load(ctx, task.Sources)
	if err != nil {
		return stats, fmt.Errorf("unable to load sources: %w", err)
	}

	log.Debug("Sources loaded", zap.Strings("files", sources.Names()), zap.Strings("missing", sources.Missing))

	merged := sources.Merged()
	prefix := "task-" + config.EntryName(task.Name)
	env.Rpt.StoreData(prefix+"/source.css", merged)

	sheet, err := css.NewParser(log).Parse(merged, task.Name)
	if err != nil {
		return stats, fmt.Errorf("unable to parse stylesheet: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	stats = fallback.NewConverter(log).Process(sheet)
	if task.Log {
		log.Info("Root size found", zap.Float64("px", stats.RootSize))
		log.Info("Rem units found", zap.Int("count", stats.Conversions))
	}
	if env.Rpt != nil {
		env.Rpt.StoreData(prefix+"/tree.txt", []byte(sheet.Dump()))
		env.Rpt.StoreData(prefix+"/result.css", []byte(sheet.String()))
		if !files.IsStdout(task.Destination) && task.Overwrite {
			if fi, err := os.Stat(task.Destination); err == nil && fi.Mode().IsRegular() {
				if err := env.Rpt.StoreCopy(prefix+"/previous.css", task.Destination); err != nil {
					log.Warn("Unable to keep copy of destination for report", zap.Error(err))
				}
			}
		}
	}

	if err := files.NewWriter(log, env.Stdout, task.Overwrite).Write(task.Destination, sheet); err != nil {
		return stats, err
	}
	return stats, nil
}
