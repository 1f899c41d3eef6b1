// Package engine is the incremental recomputation core: it owns the two
// program models, decides between the fast and slow update paths using
// per-file structural fingerprints, accumulates diagnostics for
// publication, and binds point queries to the typechecker.
package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tyrb/internal/diag"
	"tyrb/internal/equeue"
	"tyrb/internal/fingerprint"
	"tyrb/internal/model"
	"tyrb/internal/pipeline"
	"tyrb/internal/source"
)

// Options configures an engine.
type Options struct {
	// Jobs caps worker-pool parallelism; 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps the published set per file; 0 means unlimited.
	MaxDiagnostics int
	// SourceRoots are scanned for *.rb files at initialization.
	SourceRoots []string
	// Silenced extends the default silenced error classes.
	Silenced []diag.Code
	// Logf receives progress lines; nil discards them.
	Logf func(format string, args ...any)
}

// defaultSilenced is the fixed set of error classes the publisher drops.
var defaultSilenced = []diag.Code{
	diag.NameRedefinitionOfMethod,
	diag.ResDuplicateVariableDeclaration,
	diag.ResRedefinitionOfParents,
}

// Engine keeps the program model consistent with a set of in-memory
// files. It is owned by the single server loop; nothing here is
// goroutine-safe except through the loop's sequencing.
type Engine struct {
	opts  Options
	queue *equeue.Queue

	// initial holds indexed trees only; final is the resolved and
	// typechecked deep copy that answers queries.
	initial *model.State
	final   *model.State

	// hashes is the global-state hash vector, indexed by file id.
	hashes []uint32

	errorsAccumulated map[source.FileID][]diag.Diagnostic
	updatedErrors     []source.FileID
	silenced          map[diag.Code]struct{}

	logf func(format string, args ...any)
}

// New creates an engine with a bootstrapped (payload-only) initial model.
func New(opts Options) *Engine {
	queue := equeue.New()
	initial := model.NewState(queue)
	pipeline.Bootstrap(initial)
	initial.Freeze()
	silenced := make(map[diag.Code]struct{}, len(defaultSilenced)+len(opts.Silenced))
	for _, c := range defaultSilenced {
		silenced[c] = struct{}{}
	}
	for _, c := range opts.Silenced {
		silenced[c] = struct{}{}
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Engine{
		opts:              opts,
		queue:             queue,
		initial:           initial,
		errorsAccumulated: make(map[source.FileID][]diag.Diagnostic),
		silenced:          silenced,
		logf:              logf,
	}
}

// Initial returns the model that owns file identity.
func (e *Engine) Initial() *model.State { return e.initial }

// Final returns the typechecked model queries read, or nil before the
// first slow path.
func (e *Engine) Final() *model.State { return e.final }

// Hashes exposes the global-state hash vector; tests assert against it.
func (e *Engine) Hashes() []uint32 { return e.hashes }

// FindFileByPath resolves a workspace-relative path to a file id.
func (e *Engine) FindFileByPath(path string) source.FileID {
	return e.initial.FindFileByPath(path)
}

// Initialize populates the model from the filesystem, performs the first
// slow-path build, and seeds the hash vector from the final model's
// files.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.reIndexFromFileSystem(ctx); err != nil {
		return err
	}
	e.RunSlowPath(ctx, nil)
	e.hashes = fingerprint.ComputeStateHashes(ctx, e.final.Files(), e.opts.Jobs)
	return nil
}

// reIndexFromFileSystem loads every *.rb under the source roots, deduped
// with files the model already admitted, and runs the parallel indexing
// stage over the whole set.
func (e *Engine) reIndexFromFileSystem(ctx context.Context) error {
	seen := make(map[string]struct{})
	var paths []string
	for _, root := range e.opts.SourceRoots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".rb") {
				if _, ok := seen[path]; !ok {
					seen[path] = struct{}{}
					paths = append(paths, path)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", root, err)
		}
	}
	sort.Strings(paths)

	defer e.initial.UnfreezeAll()()
	admitted := make(map[source.FileID]struct{})
	var frefs []source.FileID
	for _, path := range paths {
		content, err := os.ReadFile(path) // #nosec G304 -- paths come from the configured roots
		if err != nil {
			e.logf("failed to load %s: %v", path, err)
			continue
		}
		f := source.NewFile(path, content, source.KindNormal)
		fref := e.initial.FindFileByPath(f.Path)
		if fref.IsValid() {
			e.initial.ReplaceFile(fref, f)
		} else {
			fref = e.initial.EnterFile(f)
		}
		admitted[fref] = struct{}{}
		frefs = append(frefs, fref)
	}
	// Files admitted earlier (editor overlays) re-index in place.
	for id := source.FileID(1); int(id) < e.initial.FilesUsed(); id++ {
		f := e.initial.GetFile(id)
		if f == nil || f.Kind != source.KindNormal {
			continue
		}
		if _, ok := admitted[id]; !ok {
			frefs = append(frefs, id)
		}
	}
	if len(frefs) == 0 {
		return nil
	}
	_, err := pipeline.Index(ctx, e.initial, frefs, e.opts.Jobs)
	return err
}

// ensureHashLen grows the hash vector to cover the file id.
func (e *Engine) ensureHashLen(fref source.FileID) {
	for int(fref) >= len(e.hashes) {
		e.hashes = append(e.hashes, 0)
	}
}
