// Package batch evaluates many raw documents against one schema on a worker
// pool. Documents that fail to decode or map are quarantined with their error;
// the rest of the batch continues.
package batch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reoring/attrmap"
	"github.com/reoring/attrmap/internal/worker"
)

// Options configures a Run.
type Options struct {
	// Workers defaults to GOMAXPROCS.
	Workers int
	// RateLimit caps documents per second across all workers; <=0 disables it.
	RateLimit float64
	// FailFast aborts the run at the first failed document.
	FailFast bool
	// Decode bounds every raw document.
	Decode attrmap.DecodeOpt
	// Resolver, when set, canonicalizes reference attribute values.
	Resolver attrmap.ReferenceResolver
	// Sink, when set, receives every successful record on the calling goroutine.
	Sink attrmap.RecordSink
	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// Quarantined is a document that produced no record.
type Quarantined struct {
	Index int
	Err   error
}

func (q Quarantined) Error() string { return fmt.Sprintf("document %d: %v", q.Index, q.Err) }

func (q Quarantined) Unwrap() error { return q.Err }

// Report summarizes a Run.
type Report struct {
	RunID string
	// Records is index-aligned with the input; quarantined entries are nil.
	Records     []*attrmap.Record
	Quarantined []Quarantined
	Duration    time.Duration
}

// Succeeded returns the number of documents that produced a record.
func (r *Report) Succeeded() int {
	n := 0
	for _, rec := range r.Records {
		if rec != nil {
			n++
		}
	}
	return n
}

// Run decodes and evaluates every document. The returned error is non-nil only
// when the run itself was aborted (context cancellation or FailFast).
func Run(ctx context.Context, s *attrmap.Schema, docs [][]byte, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	runID := uuid.NewString()
	log := opts.Logger.With("run", runID, "schema", s.Name())
	start := time.Now()

	log.Infow("batch started", "documents", len(docs), "workers", opts.Workers)

	process := func(ctx context.Context, i int, doc []byte) (*attrmap.Record, error) {
		dopt := opts.Decode
		dopt.Warn = func(w attrmap.DecodeError) {
			log.Warnw("duplicate key", "index", i, "path", w.Path)
		}
		rec, err := attrmap.EvaluateFrom(ctx, s, attrmap.JSONBytes(doc), dopt)
		if err != nil {
			return nil, err
		}
		if opts.Resolver != nil {
			if err := resolve(ctx, opts.Resolver, rec); err != nil {
				return nil, err
			}
		}
		return rec, nil
	}

	rep := &Report{RunID: runID, Records: make([]*attrmap.Record, len(docs))}
	quarantine := func(i int, err error) {
		rep.Quarantined = append(rep.Quarantined, Quarantined{Index: i, Err: err})
		log.Errorw("document quarantined", append([]any{"index", i, "error", err}, errorFields(err)...)...)
	}

	onResult := func(res worker.Result[*attrmap.Record]) error {
		if res.Err != nil {
			quarantine(res.Index, res.Err)
			return nil
		}
		if opts.Sink != nil {
			if err := opts.Sink.Put(ctx, res.Output); err != nil {
				quarantine(res.Index, fmt.Errorf("sink: %w", err))
				if opts.FailFast {
					return err
				}
				return nil
			}
		}
		rep.Records[res.Index] = res.Output
		return nil
	}

	policy := worker.FailurePolicyPartialOutput
	if opts.FailFast {
		policy = worker.FailurePolicyFailFast
	}
	_, err := worker.ProcessAllWithCallback(ctx, docs, process, onResult, worker.Options{
		Workers:       opts.Workers,
		RateLimit:     opts.RateLimit,
		FailurePolicy: policy,
	})
	rep.Duration = time.Since(start)
	sort.Slice(rep.Quarantined, func(i, j int) bool { return rep.Quarantined[i].Index < rep.Quarantined[j].Index })
	if err != nil {
		log.Errorw("batch aborted", "error", err)
		return rep, err
	}
	log.Infow("batch finished",
		"succeeded", rep.Succeeded(),
		"quarantined", len(rep.Quarantined),
		"duration", rep.Duration,
	)
	return rep, nil
}

// errorFields adds the structured location of engine errors to a log line.
func errorFields(err error) []any {
	if me, ok := attrmap.AsMappingError(err); ok {
		return []any{"code", me.Code, "schemaPath", me.SchemaPath, "documentPath", me.DocumentPath, "role", string(me.Role)}
	}
	if de, ok := attrmap.AsDecodeError(err); ok {
		return []any{"code", de.Code, "documentPath", de.Path}
	}
	return nil
}

func resolve(ctx context.Context, r attrmap.ReferenceResolver, rec *attrmap.Record) error {
	refs := rec.Attributes.ReferenceStringAttributes
	for i := range refs {
		v, err := r.Resolve(ctx, refs[i].List, refs[i].Value)
		if err != nil {
			return fmt.Errorf("resolve %s in list %s: %w", refs[i].Value, refs[i].List, err)
		}
		refs[i].Value = v
	}
	return nil
}
