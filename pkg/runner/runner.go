// Package runner is the execution coordinator: it turns a run request into a
// topological order, dispatches each node by role, maintains sidecars and
// persists the document after every node.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/config"
	"github.com/dukex/canvasflow/pkg/eventbus"
	"github.com/dukex/canvasflow/pkg/events"
	"github.com/dukex/canvasflow/pkg/inference"
	"github.com/dukex/canvasflow/pkg/kernel"
	"github.com/dukex/canvasflow/pkg/log"
	"github.com/dukex/canvasflow/pkg/otelhelper"
	"github.com/dukex/canvasflow/pkg/persistence"
	"github.com/dukex/canvasflow/pkg/scheduler"
	"github.com/dukex/canvasflow/pkg/state"
)

// CodeRunner is the per-workspace interpreter contract the coordinator runs
// code nodes against.
type CodeRunner interface {
	Run(ctx context.Context, code, input string) (string, error)
	Terminate() error
}

// KernelFactory builds the interpreter for a workspace on first use.
type KernelFactory func(workspace string) CodeRunner

// Service coordinates runs across workspaces. One logical run proceeds at a
// time process-wide; additional requests are deferred into the owning
// workspace's job queue and replayed when the slot frees.
type Service struct {
	store     persistence.Store
	settings  *config.Settings
	states    *state.Manager
	gate      *state.Gate
	submitMu  sync.Mutex // spans gate transitions and queue membership
	generator inference.Generator

	newKernel KernelFactory
	kernelMu  sync.Mutex
	kernels   map[string]CodeRunner

	bus    eventbus.EventBus // optional
	tracer trace.Tracer      // optional

	logger *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithEventBus attaches a bus the service publishes run lifecycle events to.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithTracer attaches a tracer that records run and node spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithKernelFactory overrides how per-workspace interpreters are built.
func WithKernelFactory(factory KernelFactory) Option {
	return func(s *Service) { s.newKernel = factory }
}

// NewService wires a coordinator over a document store, settings and an
// inference generator.
func NewService(store persistence.Store, settings *config.Settings, generator inference.Generator, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		settings:  settings,
		states:    state.NewManager(),
		gate:      state.NewGate(),
		generator: generator,
		kernels:   make(map[string]CodeRunner),
		logger:    logger.With("module", "runner"),
	}

	s.newKernel = s.defaultKernel

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) defaultKernel(workspace string) CodeRunner {
	wsLogger := log.WithWorkspace("kernel", workspace)

	return kernel.NewManager(workspace, kernel.Options{
		Command: s.settings.Kernel.Command,
		Args:    s.settings.Kernel.Args,
		Timeout: s.settings.Kernel.RunTimeout(),
		OnLog:   func(line string) { wsLogger.Info("kernel log", "line", line) },
		OnError: func(line string) { wsLogger.Warn("kernel stderr", "line", line) },
	}, s.logger)
}

// State returns the run state of a workspace, creating it on first access.
func (s *Service) State(workspace string) *state.State {
	return s.states.Workspace(workspace)
}

// Workspaces lists the workspace keys with live state.
func (s *Service) Workspaces() []string {
	return s.states.Keys()
}

// Busy reports whether a run currently holds the global slot.
func (s *Service) Busy() bool {
	return s.gate.Busy()
}

// RunNode executes a single node in isolation. Parents are not run; their
// cached results, when present, still resolve into the node's input.
func (s *Service) RunNode(ctx context.Context, workspace, nodeID string) error {
	return s.submit(ctx, workspace, state.Job{Mode: state.JobRunNode, Target: nodeID})
}

// RunChain executes the target node and every ancestor it depends on, in
// topological order.
func (s *Service) RunChain(ctx context.Context, workspace, nodeID string) error {
	return s.submit(ctx, workspace, state.Job{Mode: state.JobRunChain, Target: nodeID})
}

// RunGraph executes every runnable node reachable from the graph's roots.
func (s *Service) RunGraph(ctx context.Context, workspace string) error {
	return s.submit(ctx, workspace, state.Job{Mode: state.JobRunEntire})
}

// CloseWorkspace terminates the workspace's interpreter and drops its state.
func (s *Service) CloseWorkspace(workspace string) error {
	err := s.terminateKernel(workspace)

	s.states.Close(workspace)

	return err
}

// RestartKernel terminates the workspace's interpreter. The next code node
// spawns a fresh one with empty interpreter state.
func (s *Service) RestartKernel(workspace string) error {
	return s.terminateKernel(workspace)
}

// Close shuts down every workspace.
func (s *Service) Close() error {
	var firstErr error

	for _, key := range s.states.Keys() {
		if err := s.CloseWorkspace(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (s *Service) kernelFor(workspace string) CodeRunner {
	s.kernelMu.Lock()
	defer s.kernelMu.Unlock()

	if k, ok := s.kernels[workspace]; ok {
		return k
	}

	k := s.newKernel(workspace)
	s.kernels[workspace] = k

	return k
}

func (s *Service) terminateKernel(workspace string) error {
	s.kernelMu.Lock()
	k, ok := s.kernels[workspace]
	delete(s.kernels, workspace)
	s.kernelMu.Unlock()

	if !ok {
		return nil
	}

	return k.Terminate()
}

// submit tries to take the global run slot. When another run is in flight the
// job is queued on its workspace and ErrQueued returned; the in-flight run
// drains queues before releasing the slot. Acquire-or-enqueue happens under
// submitMu so an enqueue can never slip between the holder's final queue
// check and its release.
func (s *Service) submit(ctx context.Context, workspace string, job state.Job) error {
	s.submitMu.Lock()

	if !s.gate.TryAcquire() {
		s.states.Workspace(workspace).Enqueue(job)
		s.submitMu.Unlock()

		s.publish(ctx, workspace, events.RunQueuedEvent, &events.RunQueued{
			BaseEvent: s.base(events.RunQueuedEvent, workspace),
			Mode:      string(job.Mode),
			Target:    job.Target,
		})
		s.logger.Info("run queued", "workspace", workspace, "mode", job.Mode, "target", job.Target)

		return ErrQueued
	}

	s.submitMu.Unlock()

	err := s.execute(ctx, workspace, job)

	s.drainAndRelease(ctx)

	return err
}

// drainAndRelease replays queued jobs and gives up the run slot only once no
// job remains, checked under submitMu. Any request deferred while the slot
// was held is therefore replayed before the slot frees.
func (s *Service) drainAndRelease(ctx context.Context) {
	for {
		s.drain(ctx)

		s.submitMu.Lock()

		if !s.hasQueuedJobs() {
			s.gate.Release()
			s.submitMu.Unlock()

			return
		}

		s.submitMu.Unlock()
	}
}

// drain replays queued jobs across all workspaces while still holding the
// slot. A job that fails is logged and does not stop the drain.
func (s *Service) drain(ctx context.Context) {
	for {
		replayed := false

		for _, key := range s.states.Keys() {
			job, ok := s.states.Workspace(key).Dequeue()
			if !ok {
				continue
			}

			replayed = true

			if err := s.execute(ctx, key, job); err != nil {
				s.logger.Error("queued run failed", "workspace", key, "mode", job.Mode, "target", job.Target, "error", err)
			}
		}

		if !replayed {
			return
		}
	}
}

func (s *Service) hasQueuedJobs() bool {
	for _, key := range s.states.Keys() {
		if s.states.Workspace(key).QueueLen() > 0 {
			return true
		}
	}

	return false
}

// execute performs one run end to end: load, order, dispatch each node,
// checkpoint after each.
func (s *Service) execute(ctx context.Context, workspace string, job state.Job) error {
	started := time.Now()
	st := s.states.Workspace(workspace)

	ctx, span := s.startSpan(ctx, "run",
		attribute.String(otelhelper.WorkspaceKey, workspace),
		attribute.String(otelhelper.RunModeKey, string(job.Mode)),
		attribute.String(otelhelper.RunTargetKey, job.Target),
	)
	defer span.End()

	err := s.executeLocked(ctx, workspace, st, job)
	if err != nil {
		otelhelper.RecordError(span, err)
		s.publish(ctx, workspace, events.RunFailedEvent, &events.RunFailed{
			BaseEvent: s.base(events.RunFailedEvent, workspace),
			Mode:      string(job.Mode),
			Error:     err.Error(),
		})

		return err
	}

	s.publish(ctx, workspace, events.RunFinishedEvent, &events.RunFinished{
		BaseEvent: s.base(events.RunFinishedEvent, workspace),
		Mode:      string(job.Mode),
		Duration:  time.Since(started),
	})

	return nil
}

func (s *Service) executeLocked(ctx context.Context, workspace string, st *state.State, job state.Job) error {
	doc, err := s.store.Load(ctx, workspace)
	if err != nil {
		return err
	}

	graph := canvas.NewGraph(doc, s.settings.RoleTable())

	order, err := s.order(graph, job)
	if err != nil {
		return err
	}

	st.TakeSnapshot(doc.NodeIDs())

	s.publish(ctx, workspace, events.RunStartedEvent, &events.RunStarted{
		BaseEvent: s.base(events.RunStartedEvent, workspace),
		Mode:      string(job.Mode),
		Target:    job.Target,
		Nodes:     len(order),
	})
	s.logger.Info("run started", "workspace", workspace, "mode", job.Mode, "nodes", len(order))

	for _, nodeID := range order {
		st.SetRunning(nodeID)

		nodeStart := time.Now()
		role, _ := graph.Role(nodeID)

		s.publish(ctx, workspace, events.NodeStartedEvent, &events.NodeStarted{
			BaseEvent: s.base(events.NodeStartedEvent, workspace),
			NodeID:    nodeID,
			Role:      role,
		})

		err := s.runOne(ctx, workspace, st, doc, graph, nodeID)

		st.SetDuration(nodeID, time.Since(nodeStart))
		st.ClearRunning()

		if err != nil {
			s.publish(ctx, workspace, events.NodeFailedEvent, &events.NodeFailed{
				BaseEvent: s.base(events.NodeFailedEvent, workspace),
				NodeID:    nodeID,
				Error:     err.Error(),
			})

			return fmt.Errorf("node %s: %w", nodeID, err)
		}

		s.publish(ctx, workspace, events.NodeFinishedEvent, &events.NodeFinished{
			BaseEvent: s.base(events.NodeFinishedEvent, workspace),
			NodeID:    nodeID,
			Role:      role,
			Duration:  time.Since(nodeStart),
		})

		if err := s.persist(ctx, workspace, st, doc); err != nil {
			return fmt.Errorf("persist after node %s: %w", nodeID, err)
		}
	}

	s.logger.Info("run finished", "workspace", workspace, "mode", job.Mode, "nodes", len(order))

	return nil
}

// order computes the node execution order for a job against the graph.
func (s *Service) order(graph *canvas.Graph, job state.Job) ([]string, error) {
	switch job.Mode {
	case state.JobRunNode:
		role, ok := graph.Role(job.Target)
		if !ok || !role.Runnable() {
			return nil, fmt.Errorf("%w: %s", ErrNotRunnable, job.Target)
		}

		return []string{job.Target}, nil
	case state.JobRunChain:
		return scheduler.New(graph).ChainOrder(job.Target)
	default:
		return scheduler.New(graph).FullOrder()
	}
}

// runOne dispatches a single node by role.
func (s *Service) runOne(ctx context.Context, workspace string, st *state.State, doc *canvas.Document, graph *canvas.Graph, nodeID string) error {
	node := doc.Node(nodeID)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrNotRunnable, nodeID)
	}

	role, ok := graph.Role(nodeID)
	if !ok || !role.Runnable() {
		return fmt.Errorf("%w: %s", ErrNotRunnable, nodeID)
	}

	content, err := s.nodeContent(ctx, node)
	if err != nil {
		return err
	}

	ctx, span := s.startSpan(ctx, "node",
		attribute.String(otelhelper.WorkspaceKey, workspace),
		attribute.String(otelhelper.NodeIDKey, nodeID),
		attribute.String(otelhelper.NodeRoleKey, string(role)),
	)
	defer span.End()

	switch {
	case role == canvas.RolePassthrough:
		err = s.runPassthrough(st, graph, node, content)
	case role == canvas.RoleCode:
		err = s.runCode(ctx, workspace, st, doc, graph, node, content)
	case role.IsModel():
		err = s.runModel(ctx, st, doc, graph, node, role, content)
	default:
		err = fmt.Errorf("%w: %s", ErrNotRunnable, nodeID)
	}

	otelhelper.RecordError(span, err)

	return err
}

// nodeContent returns the node's raw text, reading file nodes through the
// store.
func (s *Service) nodeContent(ctx context.Context, node *canvas.Node) (string, error) {
	if node.Type == canvas.NodeTypeFile {
		return s.store.ReadAttachment(ctx, node.File)
	}

	return node.Text, nil
}

// runPassthrough merges the node's inputs into its text and caches the
// result. No external call, no sidecar.
func (s *Service) runPassthrough(st *state.State, graph *canvas.Graph, node *canvas.Node, content string) error {
	res := resolveInputs(st, graph, node.ID, content)
	applyResolution(st, res)

	st.SetResult(node.ID, res.Merged)

	return nil
}

// runCode fences the node text when needed, runs the code in the workspace
// interpreter with the concatenated block as its input binding, and writes
// the output sidecar.
func (s *Service) runCode(ctx context.Context, workspace string, st *state.State, doc *canvas.Document, graph *canvas.Graph, node *canvas.Node, content string) error {
	if node.Type == canvas.NodeTypeText && !isFenced(content) {
		node.Text = wrapFences(content)
		content = node.Text

		if err := s.persist(ctx, workspace, st, doc); err != nil {
			return fmt.Errorf("persist fenced node %s: %w", node.ID, err)
		}
	}

	res := resolveInputs(st, graph, node.ID, content)
	applyResolution(st, res)

	output, err := s.kernelFor(workspace).Run(ctx, stripFences(res.Template), res.ConcatBlock)
	if err != nil {
		return fmt.Errorf("code node %s: %w", node.ID, err)
	}

	st.SetResult(node.ID, output)
	s.writeSidecar(doc, node, canvas.AuxOutput, output)

	return nil
}

// runModel builds the merged prompt, calls the inference endpoint with the
// role's configured model and writes the output sidecar, plus the optional
// prompt and thinking sidecars.
func (s *Service) runModel(ctx context.Context, st *state.State, doc *canvas.Document, graph *canvas.Graph, node *canvas.Node, role canvas.Role, content string) error {
	model, ok := s.settings.ModelFor(role)
	if !ok {
		return fmt.Errorf("%w: no model configured for role %s", ErrNotRunnable, role)
	}

	res := resolveInputs(st, graph, node.ID, content)
	applyResolution(st, res)

	ctx, span := s.startSpan(ctx, "generate", attribute.String(otelhelper.ModelKey, model.Model))
	defer span.End()

	result, err := s.generator.Generate(ctx, model.Model, model.Temperature, res.Merged)
	if err != nil {
		otelhelper.RecordError(span, err)

		return fmt.Errorf("model node %s: %w", node.ID, err)
	}

	st.SetResult(node.ID, result.Response)
	s.writeSidecar(doc, node, canvas.AuxOutput, result.Response)

	if s.settings.Sidecars.Prompt {
		s.writeSidecar(doc, node, canvas.AuxPrompt, res.Merged)
	}

	if s.settings.Sidecars.Thinking && result.Thinking != "" {
		s.writeSidecar(doc, node, canvas.AuxThinking, result.Thinking)
	}

	return nil
}

// writeSidecar synthesizes one sidecar against the live document. The source
// is re-checked against the document because a previous checkpoint merge may
// have dropped it.
func (s *Service) writeSidecar(doc *canvas.Document, source *canvas.Node, kind canvas.AuxKind, text string) {
	if doc.Node(source.ID) == nil {
		return
	}

	color := s.settings.RoleTable().ColorFor(canvas.RoleOutput)
	ensureSidecar(doc, source, kind, text, color)
}

// persist checkpoints the in-memory document, first merging live edits from
// the latest on-disk state so concurrent editor changes survive the write.
func (s *Service) persist(ctx context.Context, workspace string, st *state.State, doc *canvas.Document) error {
	latest, err := s.store.Load(ctx, workspace)
	if err == nil {
		graph := canvas.NewGraph(doc, s.settings.RoleTable())
		mergeLiveEdits(doc, latest, st, graph.IsAuxNode)
	} else if !persistence.IsDocumentNotFound(err) {
		s.logger.Warn("live-edit merge skipped", "workspace", workspace, "error", err)
	}

	return s.store.Save(ctx, workspace, doc)
}

func (s *Service) base(eventType events.EventType, workspace string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Workspace: workspace,
	}
}

func (s *Service) publish(ctx context.Context, workspace string, eventType events.EventType, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, workspace, event); err != nil {
		s.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, s.tracer, name, attrs...)
}
