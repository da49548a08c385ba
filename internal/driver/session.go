package driver

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"keel/internal/depgraph"
	"keel/internal/dictlayout"
	"keel/internal/pipeline"
	"keel/internal/project"
	"keel/internal/types"
)

// Session owns everything one compilation needs to lay out generic
// dictionaries: the interner, the owner registry, the dependency graph, and
// the target. Sessions are single-use; all state dies with them.
type Session struct {
	manifest project.Manifest
	target   dictlayout.Target
	types    *types.Interner
	registry *dictlayout.Registry
	log      *zap.Logger
	sink     pipeline.ProgressSink

	methods map[string]*methodNode
	roots   []*methodNode
	timings pipeline.Timings
}

// Result is the published outcome of a session run.
type Result struct {
	Set     *dictlayout.LayoutSet
	Target  dictlayout.Target
	Marked  int
	Owners  int
	Timings pipeline.Timings
}

// Option configures a session.
type Option func(*Session)

// WithLogger installs a structured logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSink installs a progress sink; the default discards events.
func WithSink(sink pipeline.ProgressSink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// NewSession validates the manifest's target and builds a fresh session.
func NewSession(m project.Manifest, opts ...Option) (*Session, error) {
	target, ok := dictlayout.TargetForTriple(m.Triple)
	if !ok {
		return nil, fmt.Errorf("driver: unsupported target triple %q", m.Triple)
	}
	s := &Session{
		manifest: m,
		target:   target,
		types:    types.NewInterner(),
		registry: dictlayout.NewRegistry(),
		log:      zap.NewNop(),
		sink:     pipeline.NopSink{},
		methods:  make(map[string]*methodNode, 128),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run replays the manifest's discovery log through the graph engine, brings
// marking to fixpoint, finalizes every layout, and (when configured) emits
// the layout blob. Any contract violation aborts the run.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	graph, err := s.discover(ctx)
	if err != nil {
		return nil, err
	}

	set, err := s.finalize(graph)
	if err != nil {
		return nil, err
	}

	if err := s.emit(set); err != nil {
		return nil, err
	}

	return &Result{
		Set:     set,
		Target:  s.target,
		Marked:  graph.MarkedCount(),
		Owners:  s.registry.Len(),
		Timings: s.timings,
	}, nil
}

// load reads the fixed-layout blobs and the discovery log, interning every
// spec on the session interner. All interning happens here, on one
// goroutine, so later parallel expansion never touches the interner.
func (s *Session) load() error {
	start := time.Now()
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageLoad, Status: pipeline.StatusWorking})

	for _, path := range s.manifest.Fixed {
		blob, err := dictlayout.ReadBlobFile(path)
		if err != nil {
			return fmt.Errorf("driver: read fixed layouts %s: %w", path, err)
		}
		if err := dictlayout.ApplyFixedLayouts(blob, s.types, s.registry); err != nil {
			return fmt.Errorf("driver: apply fixed layouts %s: %w", path, err)
		}
		s.log.Info("seeded fixed layouts",
			zap.String("path", path),
			zap.Int("owners", len(blob.Owners)))
	}

	log, err := ReadLogFile(s.manifest.Log)
	if err != nil {
		return fmt.Errorf("driver: read discovery log: %w", err)
	}
	if err := s.index(log); err != nil {
		return err
	}
	s.log.Info("discovery log loaded",
		zap.String("unit", log.Unit),
		zap.Int("records", len(log.Records)),
		zap.Int("roots", len(log.Roots)))

	s.timings.Set(pipeline.StageLoad, time.Since(start))
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageLoad, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return nil
}

// index builds method nodes from log records, in log order.
func (s *Session) index(log *Log) error {
	for i := range log.Records {
		rec := &log.Records[i]
		node, err := s.methodNodeFor(&rec.Method)
		if err != nil {
			return err
		}
		for _, need := range rec.Needs {
			owner, err := dictlayout.InternOwnerSpec(s.types, need.Owner)
			if err != nil {
				return fmt.Errorf("driver: record %s: %w", node.key, err)
			}
			lookup, err := dictlayout.InternLookupSpec(s.types, need.Lookup)
			if err != nil {
				return fmt.Errorf("driver: record %s: %w", node.key, err)
			}
			node.needs = append(node.needs, ownerNeed{owner: owner, lookup: lookup})
		}
		for j := range rec.Calls {
			callee, err := s.methodNodeFor(&rec.Calls[j])
			if err != nil {
				return err
			}
			node.calls = append(node.calls, callee)
		}
	}
	for i := range log.Roots {
		root, err := s.methodNodeFor(&log.Roots[i])
		if err != nil {
			return err
		}
		s.roots = append(s.roots, root)
		s.sink.OnEvent(pipeline.Event{Item: root.key, Stage: pipeline.StageDiscover, Status: pipeline.StatusQueued})
	}
	return nil
}

// methodNodeFor returns the unique node for a method spec, keyed by its
// structural method key.
func (s *Session) methodNodeFor(spec *dictlayout.MethodSpec) (*methodNode, error) {
	id, err := dictlayout.InternMethodSpec(s.types, spec)
	if err != nil {
		return nil, err
	}
	key := s.types.MethodKey(id)
	if node, ok := s.methods[key]; ok {
		return node, nil
	}
	node := &methodNode{key: key}
	s.methods[key] = node
	return node, nil
}

// discover marks the roots and drives the graph to fixpoint. Dictionary
// needs are applied in the engine's deterministic commit order, so slot
// numbering is reproducible for any worker count.
func (s *Session) discover(ctx context.Context) (*depgraph.Graph, error) {
	start := time.Now()
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageDiscover, Status: pipeline.StatusWorking})

	jobs := s.manifest.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	graph := depgraph.New(depgraph.WithJobs(jobs), depgraph.WithCommit(s.commitMethod))
	for _, root := range s.roots {
		graph.Mark(root)
	}
	if err := graph.Run(ctx); err != nil {
		s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageDiscover, Status: pipeline.StatusError, Err: err})
		return nil, err
	}
	s.log.Info("discovery complete",
		zap.Int("marked", graph.MarkedCount()),
		zap.Int("owners", s.registry.Len()),
		zap.Int("jobs", jobs))

	s.timings.Set(pipeline.StageDiscover, time.Since(start))
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageDiscover, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return graph, nil
}

// commitMethod applies one expanded method's dictionary needs.
func (s *Session) commitMethod(n depgraph.Node) error {
	node, ok := n.(*methodNode)
	if !ok {
		return fmt.Errorf("driver: unexpected node type %T", n)
	}
	for _, need := range node.needs {
		if err := s.registry.GetOrCreate(need.owner).AddEntry(need.lookup); err != nil {
			return err
		}
	}
	s.sink.OnEvent(pipeline.Event{Item: node.key, Stage: pipeline.StageDiscover, Status: pipeline.StatusDone})
	return nil
}

// finalize demands the fixpoint proof and closes every layout.
func (s *Session) finalize(graph *depgraph.Graph) (*dictlayout.LayoutSet, error) {
	start := time.Now()
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageFinalize, Status: pipeline.StatusWorking})

	tok, err := graph.Fixpoint()
	if err != nil {
		return nil, err
	}
	fin, err := dictlayout.NewFinalizer(tok, s.registry, s.types)
	if err != nil {
		return nil, err
	}
	set := fin.FinalizeAll()
	s.log.Info("layouts finalized", zap.Int("owners", len(set.Owners())))

	s.timings.Set(pipeline.StageFinalize, time.Since(start))
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageFinalize, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return set, nil
}

// emit writes the layout blob when the manifest asks for one.
func (s *Session) emit(set *dictlayout.LayoutSet) error {
	if s.manifest.Out == "" {
		return nil
	}
	start := time.Now()
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageEmit, Status: pipeline.StatusWorking})

	blob := dictlayout.ExportLayouts(set, s.target)
	if err := dictlayout.WriteBlobFile(s.manifest.Out, blob); err != nil {
		s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageEmit, Status: pipeline.StatusError, Err: err})
		return fmt.Errorf("driver: write layout blob: %w", err)
	}
	s.log.Info("layout blob written", zap.String("path", s.manifest.Out))

	s.timings.Set(pipeline.StageEmit, time.Since(start))
	s.sink.OnEvent(pipeline.Event{Stage: pipeline.StageEmit, Status: pipeline.StatusDone, Elapsed: time.Since(start)})
	return nil
}

// Interner exposes the session interner, mainly for rendering output.
func (s *Session) Interner() *types.Interner { return s.types }
