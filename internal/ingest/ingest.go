// Package ingest implements the Ingest Pipeline: file enumeration,
// text splitting, batch embedding, batch QNTM tagging via the adaptive
// concurrency controller, and batch upsert into the chunk store.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inherent-design/atlas-sub010/internal/chunkstore"
	"github.com/inherent-design/atlas-sub010/internal/concurrency"
	"github.com/inherent-design/atlas-sub010/internal/embeddings"
	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/logging"
	"github.com/inherent-design/atlas-sub010/internal/qntm"
	"github.com/inherent-design/atlas-sub010/internal/textsplit"
	"github.com/inherent-design/atlas-sub010/internal/tokenizer"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// PauseGate reports and records the consolidation pause controller's
// state. The pipeline depends only on this narrow interface;
// the watchdog package provides the concrete implementation.
type PauseGate interface {
	IsPaused() bool
	RegisterInFlight()
	CompleteInFlight()
	RecordIngestion(n int)
}

// noOpGate is used when the caller does not wire a pause controller
// (e.g. a one-shot CLI invocation with no background watchdog).
type noOpGate struct{}

func (noOpGate) IsPaused() bool { return false }
func (noOpGate) RegisterInFlight() {}
func (noOpGate) CompleteInFlight() {}
func (noOpGate) RecordIngestion(int) {}

// Options parameterizes one ingest run.
type Options struct {
	Paths     []string
	Recursive bool
	RootDir   string
}

// Result is the outcome of one ingest run.
type Result struct {
	FilesProcessed int
	ChunksStored   int
	Errors         []error
}

// Pipeline wires the collaborators the Ingest Pipeline orchestrates.
type Pipeline struct {
	store      chunkstore.Store
	embeddings *embeddings.Registry
	generator  *qntm.Generator
	tokens     *tokenizer.Service
	controller *concurrency.Controller
	gate       PauseGate
	logger     logging.Logger

	collection   string
	vectorName   string
	maxChars     int
	contextLimit int
}

// Config assembles a Pipeline.
type Config struct {
	Store        chunkstore.Store
	Embeddings   *embeddings.Registry
	Generator    *qntm.Generator
	Tokens       *tokenizer.Service
	Controller   *concurrency.Controller
	Gate         PauseGate
	Logger       logging.Logger
	Collection   string
	VectorName   string
	MaxChars     int
	ContextLimit int
}

func New(cfg Config) *Pipeline {
	gate := cfg.Gate
	if gate == nil {
		gate = noOpGate{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = textsplit.DefaultMaxChars
	}
	return &Pipeline{
		store:        cfg.Store,
		embeddings:   cfg.Embeddings,
		generator:    cfg.Generator,
		tokens:       cfg.Tokens,
		controller:   cfg.Controller,
		gate:         gate,
		logger:       logger.WithComponent("ingest"),
		collection:   cfg.Collection,
		vectorName:   cfg.VectorName,
		maxChars:     maxChars,
		contextLimit: cfg.ContextLimit,
	}
}

// Run executes one ingest pass over opts.Paths.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	if err := p.ensureCollection(ctx); err != nil {
		return Result{}, err
	}

	existingKeys, err := p.sampleExistingKeys(ctx, 50)
	if err != nil {
		p.logger.Warn("failed to sample existing qntm keys, priming prompts with none", "error", err)
	}

	files, err := enumerateFiles(opts.Paths, opts.Recursive)
	if err != nil {
		return Result{}, atlaserrors.Validation("enumerating ingest paths: %v", err)
	}

	result := Result{}
	for _, path := range files {
		if p.gate.IsPaused() {
			p.logger.Warn("skipping file: consolidation pause gate engaged", "path", path)
			result.Errors = append(result.Errors, atlaserrors.PressureSkip(path))
			continue
		}
		p.gate.RegisterInFlight()
		n, err := p.ingestFile(ctx, opts.RootDir, path, existingKeys)
		p.gate.CompleteInFlight()

		result.FilesProcessed++
		if err != nil {
			result.Errors = append(result.Errors, atlaserrors.PartialIngest(path, err))
			continue
		}
		result.ChunksStored += n
		p.gate.RecordIngestion(n)
	}

	return result, nil
}

func (p *Pipeline) ensureCollection(ctx context.Context) error {
	exists, err := p.store.CollectionExists(ctx, p.collection)
	if err != nil {
		return atlaserrors.Transient(err)
	}
	if exists {
		return nil
	}
	dim := 0
	if backend, ok := p.embeddings.Resolve(embeddings.CapabilityTextEmbedding); ok {
		if r, err := backend.EmbedText(ctx, []string{"dimension probe"}); err == nil && len(r.Embeddings) == 1 {
			dim = len(r.Embeddings[0])
		}
	}
	return p.store.CreateCollection(ctx, p.collection, chunkstore.VectorSpec{Name: p.vectorName, Dimension: dim})
}

func (p *Pipeline) sampleExistingKeys(ctx context.Context, limit int) ([]string, error) {
	page, err := p.store.Scroll(ctx, p.collection, chunkstore.ScrollParams{
		Filter:      &chunkstore.Filter{Must: []chunkstore.Condition{chunkstore.HeadFilter()}},
		Limit:       limit,
		WithPayload: true,
	})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var keys []string
	for _, c := range page.Chunks {
		for _, k := range c.QNTMKeys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// ingestFile performs steps 4's inner body for a single file, returning
// the number of chunks stored.
func (p *Pipeline) ingestFile(ctx context.Context, rootDir, path string, existingKeys []string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, atlaserrors.Validation("reading %q: %v", path, err)
	}

	relPath, err := filepath.Rel(rootDir, path)
	if err != nil {
		relPath = path
	}

	bodies := textsplit.Split(string(raw), p.maxChars)
	if len(bodies) == 0 {
		return 0, nil
	}

	if p.contextLimit > 0 {
		if exceeds, err := p.tokens.ExceedsContextWindow(bodies, p.contextLimit); err == nil && exceeds {
			docs, err := p.tokens.SplitIntoDocuments(bodies, p.tokens.SafeLimit())
			if err == nil {
				bodies = flattenDocs(docs)
			}
		}
	}

	embedBackend, ok := p.embeddings.Resolve(embeddings.CapabilityTextEmbedding)
	if !ok {
		return 0, atlaserrors.NoBackend(string(embeddings.CapabilityTextEmbedding))
	}
	embedResult, err := embedBackend.EmbedText(ctx, bodies)
	if err != nil {
		return 0, err
	}

	keySets := p.batchGenerateQNTMKeys(ctx, bodies, relPath, existingKeys)

	now    := time.Now().UTC()
	chunks := make([]*chunk.Chunk, len(bodies))
	for i, body := range bodies {
		chunks[i] = &chunk.Chunk{
			ID:           chunk.DeriveID(relPath, i),
			Vector:       embedResult.Embeddings[i],
			OriginalText: body,
			FilePath:     relPath,
			FileName:     filepath.Base(path),
			FileType:     filepath.Ext(path),
			ChunkIndex:   i,
			TotalChunks:  len(bodies),
			CharCount:    len(body),
			QNTMKeys:     keySets[i],
			CreatedAt:    now,
			Importance:   chunk.ImportanceNormal,
			Consolidated: false,
		}
	}

	if err := p.store.Upsert(ctx, p.collection, chunks, true); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

// batchGenerateQNTMKeys generates QNTM keys for every body through the
// adaptive concurrency controller, preserving order. A per-chunk
// failure degrades to an empty key list rather than failing the whole
// file.
func (p *Pipeline) batchGenerateQNTMKeys(ctx context.Context, bodies []string, fileName string, existingKeys []string) [][]string {
	keySets := make([][]string, len(bodies))

	var g errgroup.Group
	for i, body := range bodies {
		i, body := i, body
		g.Go(func() error {
			_, err := p.controller.Run(ctx, func(ctx context.Context) (any, error) {
				res, err := p.generator.Generate(ctx, qntm.Context{
					Chunk:        body,
					ExistingKeys: existingKeys,
					FileName:     fileName,
					ChunkIndex:   i,
					TotalChunks:  len(bodies),
					Level:        chunk.LevelEpisodic,
				})
				if err != nil {
					return nil, err
				}
				keySets[i] = res.Keys
				return nil, nil
			})
			if err != nil {
				p.logger.Warn("qntm generation failed after retries, ingesting with empty keys", "file", fileName, "chunk_index", i, "error", err)
				keySets[i] = []string{}
			}
			return nil
		})
	}
	_ = g.Wait()
	return keySets
}

func flattenDocs(docs [][]string) []string {
	var out []string
	for _, d := range docs {
		out = append(out, d...)
	}
	return out
}

func enumerateFiles(paths []string, recursive bool) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		if !recursive {
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() {
					out = append(out, filepath.Join(p, e.Name()))
				}
			}
			continue
		}
		err = filepath.Walk(p, func(walkPath string, walkInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !walkInfo.IsDir() {
				out = append(out, walkPath)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
