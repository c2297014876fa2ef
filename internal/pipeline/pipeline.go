package pipeline

import (
	"context"
	"log"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codemap/repomap-mcp/internal/analysis"
	"github.com/codemap/repomap-mcp/internal/cache"
	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/extractor"
	"github.com/codemap/repomap-mcp/internal/storage"
	"github.com/codemap/repomap-mcp/pkg/types"
)

// Stats summarizes a completed index run.
type Stats struct {
	FilesTotal       int
	FilesCached      int
	FilesParsed      int
	SymbolsFound     int
	SimilarClasses   int
	SimilarFunctions int
	Languages        map[types.Language]int
	Duration         time.Duration
}

// Pipeline runs a full index pass: discover, extract (with cache reuse),
// analyze, persist, report.
type Pipeline struct {
	root     string
	cfg      *config.Config
	registry *extractor.Registry
	logger   *log.Logger
}

// New builds a pipeline for the repository at root.
func New(root string, cfg *config.Config) *Pipeline {
	return &Pipeline{
		root:     root,
		cfg:      cfg,
		registry: extractor.NewRegistry(),
		logger:   log.New(os.Stderr, "[index] ", log.LstdFlags),
	}
}

type parseResult struct {
	file    SourceFile
	symbols []types.Symbol
}

// Run executes one complete index pass. On failure the previous index is
// left intact and the failure reason is recorded in the store.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()

	if err := os.MkdirAll(config.DataDir(p.root), 0o755); err != nil {
		return nil, err
	}
	store, err := storage.Open(config.DBPath(p.root))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	stats, err := p.run(ctx, store)
	if err != nil {
		_ = store.MarkFailed(context.Background(), err.Error())
		p.writeProgress(types.Progress{Status: string(types.StatusFailed)})
		return nil, err
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

func (p *Pipeline) run(ctx context.Context, store *storage.Store) (*Stats, error) {
	if err := store.MarkIndexing(ctx); err != nil {
		return nil, err
	}
	if err := store.SetMeta(ctx, types.MetaCacheVersion, strconv.Itoa(cache.Version)); err != nil {
		return nil, err
	}

	files, err := Discover(p.root, p.registry)
	if err != nil {
		return nil, err
	}
	p.logger.Printf("discovered %d source files", len(files))

	languages := make(map[types.Language]int)
	for _, f := range files {
		if lang := types.LanguageForPath(f.RelPath); lang != types.LangUnknown {
			languages[lang]++
		}
	}

	parseCache := cache.Load(config.CachePath(p.root))

	// Partition into cache hits and files needing a fresh parse.
	var allSymbols []types.Symbol
	var toParse []SourceFile
	valid := make(map[string]struct{}, len(files))
	for _, f := range files {
		valid[f.RelPath] = struct{}{}
		if symbols, ok := parseCache.Get(f.AbsPath, f.RelPath); ok {
			allSymbols = append(allSymbols, symbols...)
			continue
		}
		toParse = append(toParse, f)
	}
	cached := len(files) - len(toParse)
	p.logger.Printf("%d cached, %d to parse", cached, len(toParse))

	progress := types.Progress{
		Status:       string(types.StatusIndexing),
		FilesTotal:   len(files),
		FilesCached:  cached,
		FilesToParse: len(toParse),
	}
	p.writeProgress(progress)

	if len(toParse) > 0 {
		results := make(chan parseResult)
		work := make(chan SourceFile)

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < p.workerCount(len(toParse)); i++ {
			g.Go(func() error {
				for f := range work {
					src, readErr := os.ReadFile(f.AbsPath)
					if readErr != nil {
						// Vanished or unreadable mid-run; drop it.
						results <- parseResult{file: f}
						continue
					}
					ext := p.registry.ForPath(f.RelPath)
					if ext == nil {
						results <- parseResult{file: f}
						continue
					}
					results <- parseResult{file: f, symbols: ext.Extract(gctx, f.RelPath, src)}
				}
				return nil
			})
		}
		g.Go(func() error {
			defer close(work)
			for _, f := range toParse {
				select {
				case work <- f:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
		go func() {
			_ = g.Wait()
			close(results)
		}()

		// All cache mutation happens here, on one goroutine.
		for res := range results {
			if updateErr := parseCache.Update(res.file.AbsPath, res.file.RelPath, res.symbols); updateErr != nil {
				p.logger.Printf("cache update %s: %v", res.file.RelPath, updateErr)
			}
			allSymbols = append(allSymbols, res.symbols...)
			progress.FilesParsed++
			progress.SymbolsFound = len(allSymbols)
			p.writeProgress(progress)
			if saveErr := parseCache.SaveIfNeeded(); saveErr != nil {
				p.logger.Printf("cache save: %v", saveErr)
			}
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	parseCache.RemoveStale(valid)
	if err := parseCache.Save(); err != nil {
		return nil, err
	}

	sort.Slice(allSymbols, func(i, j int) bool {
		if allSymbols[i].FilePath != allSymbols[j].FilePath {
			return allSymbols[i].FilePath < allSymbols[j].FilePath
		}
		return allSymbols[i].LineStart < allSymbols[j].LineStart
	})

	thresholds := analysis.Thresholds{Name: p.cfg.NameThreshold, Doc: p.cfg.DocThreshold}
	similarClasses := analysis.FindSimilarClasses(allSymbols, thresholds)
	similarFunctions := analysis.FindSimilarFunctions(allSymbols, thresholds)
	coverage := analysis.ComputeCoverage(allSymbols)

	if err := store.ReplaceAll(ctx, allSymbols, textElements(allSymbols)); err != nil {
		return nil, err
	}

	if err := writeReport(config.ReportPath(p.root), reportData{
		Root:             p.root,
		Symbols:          allSymbols,
		Languages:        languages,
		Coverage:         coverage,
		SimilarClasses:   similarClasses,
		SimilarFunctions: similarFunctions,
	}); err != nil {
		p.logger.Printf("report: %v", err)
	}

	progress.Status = string(types.StatusCompleted)
	progress.SymbolsFound = len(allSymbols)
	p.writeProgress(progress)
	p.logger.Printf("indexed %d symbols from %d files (%d parsed)",
		len(allSymbols), len(files), progress.FilesParsed)

	return &Stats{
		FilesTotal:       len(files),
		FilesCached:      cached,
		FilesParsed:      progress.FilesParsed,
		SymbolsFound:     len(allSymbols),
		SimilarClasses:   len(similarClasses),
		SimilarFunctions: len(similarFunctions),
		Languages:        languages,
	}, nil
}

// workerCount sizes the parse pool: a configured fraction of the cores,
// clamped to the configured maximum, never more workers than files.
func (p *Pipeline) workerCount(pending int) int {
	n := runtime.NumCPU() * p.cfg.WorkersPercent / 100
	if n > p.cfg.MaxWorkers {
		n = p.cfg.MaxWorkers
	}
	if n > pending {
		n = pending
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (p *Pipeline) writeProgress(progress types.Progress) {
	w := progressWriter{path: config.ProgressPath(p.root)}
	w.write(progress)
}

// textElements derives the full-text corpus from symbol documentation.
func textElements(symbols []types.Symbol) []types.TextElement {
	var elements []types.TextElement
	for _, s := range symbols {
		if s.Docstring == "" {
			continue
		}
		elements = append(elements, types.TextElement{
			FilePath:    s.FilePath,
			LineNumber:  s.LineStart,
			ElementType: types.ElementDocstring,
			Content:     s.Docstring,
			SymbolName:  s.FullName(),
		})
	}
	return elements
}
