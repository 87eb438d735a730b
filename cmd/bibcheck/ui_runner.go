package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"bibcheck/internal/driver"
	"bibcheck/internal/source"
	"bibcheck/internal/ui"
)

type checkOutcome struct {
	fileSet *source.FileSet
	results []driver.FileResult
	err     error
}

type checkRunner func(ctx context.Context, opts driver.FileOptions) (*source.FileSet, []driver.FileResult, error)

func runChecksWithUI(ctx context.Context, title string, files []string, opts driver.FileOptions, run checkRunner) (*source.FileSet, []driver.FileResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = driver.ChannelSink{Ch: events}
		fileSet, results, err := run(ctx, optsCopy)
		close(events)
		outcomeCh <- checkOutcome{fileSet: fileSet, results: results, err: err}
	}()

	model := ui.NewProgressModel(title, files, events, cancel)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the UI may stop before the checks do
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.fileSet, outcome.results, uiErr
	}
	return outcome.fileSet, outcome.results, outcome.err
}
