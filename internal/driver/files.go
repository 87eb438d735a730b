package driver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bibcheck/internal/bibtex"
	"bibcheck/internal/diag"
	"bibcheck/internal/entry"
	"bibcheck/internal/logging"
	"bibcheck/internal/observ"
	"bibcheck/internal/source"
)

// FileOptions configure CheckFile, CheckFiles and CheckDir.
type FileOptions struct {
	Options
	// Mode is the database mode of files without a jabref-meta declaration.
	Mode     entry.Mode
	Progress ProgressSink
	// Cache is optional. Fingerprint must change whenever anything besides
	// the file content would change the result.
	Cache       *DiskCache
	Fingerprint string
	Timings     bool
}

// FileResult is the outcome for one file. DB is nil when the file could not be loaded.
type FileResult struct {
	Path   string
	FileID source.FileID
	DB     *entry.Database
	Bag    *diag.Bag
	Timing *observ.Report
	Cached bool
}

// CheckFile loads, parses and checks one file.
func CheckFile(ctx context.Context, fileSet *source.FileSet, path string, opts FileOptions) (*FileResult, error) {
	start := time.Now()
	emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	id, err := fileSet.Load(path)
	if err != nil {
		emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err})
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	res, err := checkLoaded(ctx, fileSet.Get(id), opts)
	if err != nil {
		return nil, err
	}
	emit(opts.Progress, Event{File: path, Stage: StageCheck, Status: StatusDone, Entries: res.DB.Len(), Elapsed: time.Since(start)})
	return res, nil
}

// CheckDir checks every *.bib file under dir, in sorted path order.
func CheckDir(ctx context.Context, dir string, opts FileOptions) (*source.FileSet, []FileResult, error) {
	files, err := ListBibFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	results, err := checkPaths(ctx, fileSet, files, opts)
	return fileSet, results, err
}

// CheckFiles checks paths in parallel; results keep the order of paths.
// A file that cannot be read yields a result with an IO diagnostic instead of an error.
func CheckFiles(ctx context.Context, paths []string, opts FileOptions) (*source.FileSet, []FileResult, error) {
	fileSet := source.NewFileSet()
	results, err := checkPaths(ctx, fileSet, paths, opts)
	return fileSet, results, err
}

// ListBibFiles returns every *.bib file below dir, sorted.
func ListBibFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".bib") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func checkPaths(ctx context.Context, fileSet *source.FileSet, paths []string, opts FileOptions) ([]FileResult, error) {
	log := logging.OrNop(opts.Logger)
	results := make([]FileResult, len(paths))
	files := make([]*source.File, len(paths))

	// FileSet is not safe for concurrent Add, so everything is loaded up front.
	for i, path := range paths {
		emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusQueued})
		id, err := fileSet.Load(path)
		if err != nil {
			log.Warn("failed to load file", zap.String("file", path), zap.Error(err))
			bag := diag.NewBag(0)
			bag.Add(diag.NewGlobal(diag.IOLoadFileError, fmt.Sprintf("%s: %v", path, err)))
			results[i] = FileResult{Path: path, Bag: bag}
			emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err})
			continue
		}
		files[i] = fileSet.Get(id)
	}
	if len(paths) == 0 {
		return results, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	perFile := opts
	if len(paths) > 1 {
		// parallel across files, sequential inside each
		perFile.Jobs = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, file := range files {
		if file == nil {
			continue
		}
		g.Go(func() error {
			start := time.Now()
			res, err := checkLoaded(gctx, file, perFile)
			if err != nil {
				emit(opts.Progress, Event{File: paths[i], Stage: StageCheck, Status: StatusError, Err: err})
				return err
			}
			res.Path = paths[i]
			results[i] = *res
			status := StatusDone
			if res.Cached {
				status = StatusCached
			}
			emit(opts.Progress, Event{File: paths[i], Stage: StageCheck, Status: status, Entries: res.DB.Len(), Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkLoaded parses file and runs a pass over it, consulting the cache first.
func checkLoaded(ctx context.Context, file *source.File, opts FileOptions) (*FileResult, error) {
	log := logging.OrNop(opts.Logger).With(zap.String("file", file.Path))
	timer := observ.NewTimer()

	emit(opts.Progress, Event{File: file.Path, Stage: StageParse, Status: StatusWorking})
	syntax := diag.NewBag(0)
	var db *entry.Database
	timer.Track("parse", func() string {
		db = bibtex.Parse(file, bibtex.Options{Mode: opts.Mode}, diag.BagReporter{Bag: syntax})
		return fmt.Sprintf("%d entries", db.Len())
	})
	opts.Metrics.FileChecked()

	res := &FileResult{Path: file.Path, FileID: file.ID, DB: db}
	opts.Suite = opts.suite()

	var (
		checked []diag.Message
		key     Digest
	)
	if opts.Cache != nil {
		// linked files come and go without touching the .bib file
		key = CacheKey(file.Hash, opts.Fingerprint+"\x00"+db.Mode().String()+"\x00"+opts.Suite.LinkState(db))
		var payload DiskPayload
		hit, err := opts.Cache.Get(key, &payload)
		if err != nil {
			log.Debug("cache read failed", zap.Error(err))
		}
		if hit {
			if msgs, ok := fromPayload(&payload, file.ID, db); ok {
				checked, res.Cached = msgs, true
				log.Debug("cache hit", zap.Int("diagnostics", len(msgs)))
			}
		}
	}

	if !res.Cached {
		emit(opts.Progress, Event{File: file.Path, Stage: StageCheck, Status: StatusWorking})
		passOpts := opts.Options
		passOpts.Timer = timer
		passOpts.MaxDiagnostics = 0
		passOpts.Logger = log
		pass, err := CheckDatabase(ctx, db, passOpts)
		if err != nil {
			return nil, err
		}
		checked = pass.Messages()
		if err := opts.Cache.Put(key, toPayload(file.Path, db, checked)); err != nil {
			log.Debug("cache write failed", zap.Error(err))
		}
	}

	res.Bag = diag.NewBag(opts.MaxDiagnostics)
	res.Bag.AddAll(syntax.Items())
	res.Bag.AddAll(checked)
	report := timer.Report()
	res.Timing = &report
	if opts.Timings {
		appendTimingDiagnostic(res.Bag, file.Path, report)
	}
	return res, nil
}
