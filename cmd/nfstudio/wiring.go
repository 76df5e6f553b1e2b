package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/internal/expressions"
	"github.com/rendis/nfstudio/internal/store"
	"github.com/rendis/nfstudio/internal/streaming"
	"github.com/rendis/nfstudio/internal/studio"
	"github.com/rendis/nfstudio/internal/suggest"
	"github.com/rendis/nfstudio/internal/validation"
	"github.com/rendis/nfstudio/pkg/schema"
)

// readPipeline loads a YAML or JSON pipeline file.
func readPipeline(path string) (*schema.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}
	p, err := schema.DecodePipeline(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// studioOptions selects the optional collaborators of a Studio.
type studioOptions struct {
	withStore bool
	withHub   bool
}

// studioRuntime is a wired Studio plus the resources to release.
type studioRuntime struct {
	studio *studio.Studio
	store  *store.LibSQLStore
	hub    *streaming.MemoryHub
}

func (r *studioRuntime) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// studioDeps builds the stateless collaborators: validation, layout geometry
// and, when GEMINI_API_KEY is set, the suggestion service.
func (a *app) studioDeps(ctx context.Context) (studio.Deps, error) {
	rules, err := expressions.NewRuleEngines()
	if err != nil {
		return studio.Deps{}, fmt.Errorf("init rule engines: %w", err)
	}
	v, err := validation.NewPipelineValidator(rules)
	if err != nil {
		return studio.Deps{}, fmt.Errorf("init validator: %w", err)
	}

	deps := studio.Deps{
		Validator: v,
		Layout:    engine.Options{CanvasWidth: a.cfg.CanvasWidth},
		Logger:    a.logger,
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		gen, genErr := suggest.NewGeminiGenerator(ctx, key, a.cfg.Model)
		if genErr != nil {
			return studio.Deps{}, genErr
		}
		deps.Suggester = suggest.NewService(gen, v, a.logger)
	}
	return deps, nil
}

// buildStudio wires a Studio and, on request, the draft store and event hub.
func (a *app) buildStudio(ctx context.Context, opts studioOptions) (*studioRuntime, error) {
	deps, err := a.studioDeps(ctx)
	if err != nil {
		return nil, err
	}

	rt := &studioRuntime{}
	if opts.withStore {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		st, stErr := store.NewLibSQLStore("file:" + a.cfg.DBPath)
		if stErr != nil {
			return nil, stErr
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		rt.store = st
	}
	if opts.withHub {
		rt.hub = streaming.NewMemoryHub()
	}

	rt.studio = rt.attach(deps)
	return rt, nil
}

// rebuild swaps in a Studio built from the current config, keeping rt's store
// and hub.
func (a *app) rebuild(ctx context.Context, rt *studioRuntime) error {
	deps, err := a.studioDeps(ctx)
	if err != nil {
		return err
	}
	rt.studio = rt.attach(deps)
	return nil
}

func (rt *studioRuntime) attach(deps studio.Deps) *studio.Studio {
	if rt.store != nil {
		deps.Store = rt.store
	}
	if rt.hub != nil {
		deps.Hub = rt.hub
	}
	return studio.New(deps)
}
