// Package studio is the application core shared by the HTTP panel, the MCP
// server and the CLI. It combines validation, layout, code generation, AI
// suggestions and draft persistence, and publishes draft events.
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rendis/nfstudio/internal/codegen"
	"github.com/rendis/nfstudio/internal/diagram"
	"github.com/rendis/nfstudio/internal/engine"
	"github.com/rendis/nfstudio/internal/logging"
	"github.com/rendis/nfstudio/internal/store"
	"github.com/rendis/nfstudio/internal/streaming"
	"github.com/rendis/nfstudio/internal/suggest"
	"github.com/rendis/nfstudio/internal/validation"
	"github.com/rendis/nfstudio/pkg/schema"
)

// Suggester produces an AI-merged pipeline for a goal.
type Suggester interface {
	Suggest(ctx context.Context, goal string, current *schema.Pipeline) (*suggest.Result, error)
}

// Deps holds the collaborators of a Studio. Store, Hub, Validator and
// Suggester are optional; operations needing a missing one fail or skip.
type Deps struct {
	Store     store.Store
	Hub       streaming.EventHub
	Validator validation.Validator
	Suggester Suggester
	Layout    engine.Options
	Logger    *slog.Logger
}

// Studio implements every user-facing operation once.
type Studio struct {
	store     store.Store
	hub       streaming.EventHub
	validator validation.Validator
	suggester Suggester
	layout    engine.Options
	logger    *slog.Logger
}

// New creates a Studio.
func New(deps Deps) *Studio {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Studio{
		store:     deps.Store,
		hub:       deps.Hub,
		validator: deps.Validator,
		suggester: deps.Suggester,
		layout:    deps.Layout,
		logger:    logger,
	}
}

// Options overlays the non-zero fields of override on the configured geometry.
func (s *Studio) Options(override engine.Options) engine.Options {
	o := s.layout
	set := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	set(&o.CanvasWidth, override.CanvasWidth)
	set(&o.NodeWidth, override.NodeWidth)
	set(&o.NodeHeight, override.NodeHeight)
	set(&o.HGap, override.HGap)
	set(&o.VGap, override.VGap)
	set(&o.MinMargin, override.MinMargin)
	set(&o.Bow, override.Bow)
	set(&o.StraightBow, override.StraightBow)
	return o
}

// --- Stateless operations ---

// Layout lays out a pipeline's workflow graph.
func (s *Studio) Layout(p *schema.Pipeline, override engine.Options) (*engine.Result, error) {
	return engine.VisualizePipeline(p, s.Options(override))
}

// Validate runs every validation stage. Without a validator the result is empty.
func (s *Studio) Validate(ctx context.Context, p *schema.Pipeline) *schema.ValidationResult {
	if s.validator == nil {
		return &schema.ValidationResult{}
	}
	return s.validator.Validate(ctx, p)
}

// Render validates p and renders main.nf and nextflow.config. Warnings are
// returned alongside the artifacts.
func (s *Studio) Render(ctx context.Context, p *schema.Pipeline) (*codegen.Artifacts, *schema.ValidationResult, error) {
	result := s.Validate(ctx, p)
	if err := result.ToError(); err != nil {
		return nil, result, err
	}
	art, err := codegen.Render(p)
	if err != nil {
		return nil, result, err
	}
	return art, result, nil
}

// Diagram lays out p and builds the renderer-neutral diagram model.
func (s *Studio) Diagram(p *schema.Pipeline, override engine.Options) (*diagram.DiagramModel, error) {
	res, err := s.Layout(p, override)
	if err != nil {
		return nil, err
	}
	return diagram.Build(p, res)
}

// Suggest asks the model for changes to p toward goal and returns the merged pipeline.
func (s *Studio) Suggest(ctx context.Context, goal string, p *schema.Pipeline) (*suggest.Result, error) {
	if s.suggester == nil {
		return nil, schema.NewError(schema.ErrCodeSuggest, "suggestions are not configured (set GEMINI_API_KEY)")
	}
	return s.suggester.Suggest(ctx, goal, p)
}

// --- Drafts ---

func (s *Studio) requireStore() error {
	if s.store == nil {
		return schema.NewError(schema.ErrCodeStore, "draft store is not configured")
	}
	return nil
}

// CreateDraft validates p and stores it as a new draft.
func (s *Studio) CreateDraft(ctx context.Context, p schema.Pipeline) (*store.Draft, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := s.Validate(ctx, &p).ToError(); err != nil {
		return nil, err
	}
	d := &store.Draft{Pipeline: p}
	if err := s.store.CreateDraft(ctx, d); err != nil {
		return nil, err
	}
	ctx = logging.WithDraftID(ctx, d.ID)
	logging.LogWith(ctx, s.logger).Info("draft created", slog.String("name", p.Name))
	s.publish(ctx, streaming.EventDraftCreated, d)
	return d, nil
}

// GetDraft loads a draft.
func (s *Studio) GetDraft(ctx context.Context, id string) (*store.Draft, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.store.GetDraft(ctx, id)
}

// ListDrafts lists drafts, most recently updated first.
func (s *Studio) ListDrafts(ctx context.Context, filter store.DraftFilter) ([]*store.Draft, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.store.ListDrafts(ctx, filter)
}

// UpdateDraft validates the new pipeline, stores it as the next revision and
// publishes draft.updated with the recomputed layout.
func (s *Studio) UpdateDraft(ctx context.Context, id string, update store.DraftUpdate) (*store.Draft, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if err := s.Validate(ctx, &update.Pipeline).ToError(); err != nil {
		return nil, err
	}
	d, err := s.store.UpdateDraft(ctx, id, update)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithDraftID(ctx, id)
	logging.LogWith(ctx, s.logger).Info("draft updated",
		slog.Int64("revision", d.Revision),
		slog.String("source", update.Source))
	s.publish(ctx, streaming.EventDraftUpdated, d)
	return d, nil
}

// DeleteDraft removes a draft and its history and publishes draft.deleted.
func (s *Studio) DeleteDraft(ctx context.Context, id string) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	if err := s.store.DeleteDraft(ctx, id); err != nil {
		return err
	}
	ctx = logging.WithDraftID(ctx, id)
	logging.LogWith(ctx, s.logger).Info("draft deleted")
	s.publish(ctx, streaming.EventDraftDeleted, &store.Draft{ID: id})
	return nil
}

// ListRevisions returns a draft's history.
func (s *Studio) ListRevisions(ctx context.Context, id string) ([]*store.Revision, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.store.ListRevisions(ctx, id)
}

// RestoreRevision copies revision seq forward and publishes draft.updated.
func (s *Studio) RestoreRevision(ctx context.Context, id string, seq int64) (*store.Draft, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	d, err := s.store.RestoreRevision(ctx, id, seq)
	if err != nil {
		return nil, err
	}
	s.publish(logging.WithDraftID(ctx, id), streaming.EventDraftUpdated, d)
	return d, nil
}

// DraftLayout loads a draft and lays it out.
func (s *Studio) DraftLayout(ctx context.Context, id string, override engine.Options) (*store.Draft, *engine.Result, error) {
	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.Layout(&d.Pipeline, override)
	if err != nil {
		return nil, nil, err
	}
	return d, res, nil
}

// SuggestDraft runs a suggestion against a stored draft and saves the merged
// pipeline as a new revision with source "suggest".
func (s *Studio) SuggestDraft(ctx context.Context, id, goal string) (*store.Draft, *suggest.Result, error) {
	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ctx = logging.WithDraftID(ctx, id)
	res, err := s.Suggest(ctx, goal, &d.Pipeline)
	if err != nil {
		return nil, nil, err
	}
	updated, err := s.UpdateDraft(ctx, id, store.DraftUpdate{
		Pipeline:         *res.Pipeline,
		Source:           store.SourceSuggest,
		Note:             goal,
		ExpectedRevision: d.Revision,
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, res, nil
}

// Subscribe streams events for one draft until cancel is called. An empty
// draftID streams every draft.
func (s *Studio) Subscribe(ctx context.Context, draftID string) (<-chan streaming.DraftEvent, func(), error) {
	if s.hub == nil {
		return nil, nil, fmt.Errorf("event hub is not configured")
	}
	return s.hub.Subscribe(ctx, streaming.EventFilter{DraftID: draftID})
}

// publish is best-effort: a layout failure is logged and the event is sent
// without a payload.
func (s *Studio) publish(ctx context.Context, eventType string, d *store.Draft) {
	if s.hub == nil {
		return
	}
	evt := streaming.DraftEvent{DraftID: d.ID, EventType: eventType, Revision: d.Revision}
	if eventType != streaming.EventDraftDeleted {
		res, err := s.Layout(&d.Pipeline, engine.Options{})
		if err != nil {
			logging.LogWith(ctx, s.logger).Warn("draft layout failed", slog.String("error", err.Error()))
		} else {
			evt.Payload = res
			evt.Warning = res.Warning()
		}
	}
	if err := s.hub.Publish(ctx, evt); err != nil {
		logging.LogWith(ctx, s.logger).Warn("publish draft event failed", slog.String("error", err.Error()))
	}
}
