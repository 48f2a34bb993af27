// Package askmesh provides a high-level façade over the planner and service
// abstractions (knowledge, staging, todo & logging) enabling rapid
// construction of data-grounded question answering. Most applications
// interact with this package by:
//  1. Creating an AskMesh via New() with a model (optionally overriding the
//     default in-memory stores and configuration)
//  2. Asking questions per session via Ask()
//
// The façade delegates orchestration to planner.Planner while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a durable knowledge
// store, a tuned config file and a structured logger.
package askmesh

import (
	"context"

	"github.com/hupe1980/askmesh/budget"
	"github.com/hupe1980/askmesh/config"
	"github.com/hupe1980/askmesh/core"
	"github.com/hupe1980/askmesh/knowledge"
	"github.com/hupe1980/askmesh/logging"
	"github.com/hupe1980/askmesh/model"
	"github.com/hupe1980/askmesh/planner"
	"github.com/hupe1980/askmesh/recovery"
	"github.com/hupe1980/askmesh/staging"
	"github.com/hupe1980/askmesh/synth"
	"github.com/hupe1980/askmesh/todo"
)

// Options configures the AskMesh instance.
type Options struct {
	// Config holds the tuning knobs; see the config package for the file
	// format. Defaults to config.Default().
	Config config.Config

	// Stores (default to in-memory implementations if not provided).
	KnowledgeStore core.KnowledgeStore
	StagingStore   core.StagingStore
	TodoStore      core.TodoStore

	// Classifier overrides the heuristic simple/complex routing.
	Classifier planner.Classifier

	// PolishAnswers routes the final answer text through the model for
	// prose quality. Off by default: the deterministic composition is
	// cheaper and test-friendly.
	PolishAnswers bool

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AskMesh is the high-level façade aggregating the planner and its services.
type AskMesh struct {
	opts    Options
	planner *planner.Planner
}

// New creates an AskMesh over the given model with optional overrides. Any
// unset store is initialized with an in-memory implementation.
func New(m model.Model, optFns ...func(o *Options)) (*AskMesh, error) {
	opts := Options{
		Config:         config.Default(),
		KnowledgeStore: knowledge.NewStaticStore(nil),
		StagingStore:   staging.NewInMemoryStore(),
		TodoStore:      todo.NewInMemoryStore(),
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	cfg := opts.Config

	b, err := budget.New(func(o *budget.Options) {
		o.TruncateAt = cfg.Budget.TruncateAt
		o.PreviewLen = cfg.Budget.PreviewLen
		o.HistoryCeiling = cfg.Budget.HistoryCeiling
		o.RetainRecent = cfg.Budget.RetainRecent
	})
	if err != nil {
		return nil, err
	}

	synthesizer := synth.New(func(o *synth.Options) {
		o.StalenessDays = cfg.Synth.StalenessDays
		o.Concise = cfg.Planner.Concise
		o.Logger = opts.Logger
		if opts.PolishAnswers {
			o.Model = m
		}
	})
	policy := recovery.New(func(o *recovery.Options) {
		o.MaxAlternatives = cfg.Planner.MaxAlternatives
		o.Logger = opts.Logger
	})

	p, err := planner.New(m, opts.KnowledgeStore, opts.StagingStore, opts.TodoStore, func(o *planner.Options) {
		o.Budget = b
		o.Recovery = policy
		o.Synthesizer = synthesizer
		o.QueryTimeout = cfg.QueryTimeout()
		o.WorkerToolRounds = cfg.Worker.MaxToolRounds
		o.WorkerSummaryLimit = cfg.Worker.SummaryLimit
		o.Logger = opts.Logger
		if opts.Classifier != nil {
			o.Classifier = opts.Classifier
		}
	})
	if err != nil {
		return nil, err
	}
	return &AskMesh{opts: opts, planner: p}, nil
}

// Ask answers one query within a session. Sessions isolate plans and staged
// artifacts; reusing a sessionID replaces its previous plan.
func (a *AskMesh) Ask(ctx context.Context, sessionID, query string) (core.Answer, error) {
	return a.planner.Handle(ctx, sessionID, query)
}

// Reset discards a session's staged artifacts.
func (a *AskMesh) Reset(sessionID string) error {
	return a.opts.StagingStore.Clear(sessionID)
}
