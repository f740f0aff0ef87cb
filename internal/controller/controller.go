package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
)

// Document is the text buffer a controller folds.
type Document interface {
	folding.TextModel
	OnDidChangeContent(handler func(folding.ContentChangeEvent)) (unsubscribe func())
}

// Candidates are the providers a ProviderSelector chooses from.
type Candidates struct {
	Indent *provider.IndentRangeProvider
	// Syntax is nil when no syntax source is registered for the language.
	Syntax *provider.SyntaxRangeProvider
}

// ProviderSelector picks the provider for a document. Returning nil selects
// the indentation provider.
type ProviderSelector func(doc folding.TextModel, candidates Candidates) provider.RangeProvider

// StrategySelector returns the selector for a configured strategy:
// StrategyIndentation always uses indentation, anything else prefers syntax
// sources when the language has any.
func StrategySelector(strategy string) ProviderSelector {
	return func(_ folding.TextModel, c Candidates) provider.RangeProvider {
		if strategy != StrategyIndentation && c.Syntax != nil {
			return c.Syntax
		}
		return c.Indent
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the folding behaviour. Zero fields take defaults.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithView sets the view that receives hidden areas.
func WithView(v View) Option {
	return func(c *Controller) {
		if v != nil {
			c.view = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegistry sets the syntax sources consulted by the auto strategy.
func WithRegistry(r *provider.Registry) Option {
	return func(c *Controller) {
		c.registry = r
	}
}

// WithLanguageRules sets the per-language rules.
func WithLanguageRules(s *langconfig.Set) Option {
	return func(c *Controller) {
		if s != nil {
			c.rules = s
		}
	}
}

// WithProviderSelector overrides the strategy-based provider choice.
func WithProviderSelector(sel ProviderSelector) Option {
	return func(c *Controller) {
		c.selector = sel
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.prom = m
	}
}

// WithTelemetry sets the OpenTelemetry instruments.
func WithTelemetry(m *folding.Metrics) Option {
	return func(c *Controller) {
		c.otel = m
	}
}

// delivery is a hidden-range update waiting to reach the view.
type delivery struct {
	seq        uint64
	ranges     []folding.LineRange
	selections []folding.Selection
}

// Controller drives folding for one document: it recomputes regions after
// edits, keeps collapse state across recomputations and pushes hidden
// ranges to its View.
type Controller struct {
	mu       sync.Mutex
	doc      Document
	cfg      Config
	state    State
	view     View
	logger   *zap.Logger
	flog     *folding.Logger
	registry *provider.Registry
	rules    *langconfig.Set
	selector ProviderSelector
	prom     *Metrics
	otel     *folding.Metrics

	limit     *folding.RangesLimitReporter
	debouncer *Debouncer
	model     *folding.Model
	hidden    *folding.HiddenRangeModel
	provider  provider.RangeProvider
	docSub    func()
	modelSubs []func()

	timer      *time.Timer
	cancel     context.CancelFunc
	generation uint64
	applied    int

	pendingMemento *folding.Memento
	importsFolded  bool
	toggled        int
	mouseDown      *mouseDownInfo

	pending   *delivery
	seq       uint64
	viewMu    sync.Mutex
	delivered uint64
	hiddenEvt folding.Emitter[folding.HiddenRangesEvent]
	updateEvt folding.Emitter[UpdateEvent]
}

// UpdateEvent is fired after a computation was applied to the model.
type UpdateEvent struct {
	Version  int
	Provider string
	Regions  int
	Failed   bool
}

// New creates a controller for doc. Call Enable to start folding.
func New(doc Document, opts ...Option) *Controller {
	c := &Controller{
		doc:    doc,
		cfg:    DefaultConfig(),
		state:  StateUninitialized,
		view:   nopView{},
		logger: zap.NewNop(),
		rules:  langconfig.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg = c.cfg.withDefaults()
	if c.selector == nil {
		c.selector = StrategySelector(c.cfg.Strategy)
	}
	c.logger = c.logger.Named("controller").With(zap.String("uri", doc.URI()))
	c.flog = folding.NewLogger(c.logger)
	c.limit = folding.NewRangesLimitReporter(c.cfg.MaxRegions,
		folding.WithLimitLogger(c.flog), folding.WithLimitMetrics(c.otel))
	c.debouncer = NewDebouncer(c.cfg.DebounceMin, c.cfg.DebounceMax)
	return c
}

// Enable starts folding. Documents above the line limit stay in
// StateEnabled until they shrink.
func (c *Controller) Enable() error {
	c.mu.Lock()
	err := c.transition(StateEnabled)
	if err == nil {
		c.docSub = c.doc.OnDidChangeContent(c.onContentChanged)
		if c.doc.LineCount() <= c.cfg.MaxDocumentLines {
			c.activate()
		}
	}
	c.mu.Unlock()
	c.flush()
	return err
}

// Close stops folding, cancels pending work and clears the view. A closed
// controller can be enabled again.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.mu.Unlock()
		return nil
	}
	var err error
	if c.state.HasModel() {
		err = c.deactivate(StateUninitialized)
	} else {
		err = c.transition(StateUninitialized)
	}
	if c.docSub != nil {
		c.docSub()
		c.docSub = nil
	}
	c.mu.Unlock()
	c.flush()
	return err
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ProviderID returns the id of the selected provider, or "".
func (c *Controller) ProviderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider == nil {
		return ""
	}
	return c.provider.ID()
}

// Document returns the folded document.
func (c *Controller) Document() Document { return c.doc }

// LimitReporter returns the region limit reporter.
func (c *Controller) LimitReporter() *folding.RangesLimitReporter { return c.limit }

// OnDidChangeHiddenRanges subscribes to hidden-range updates. Handlers run
// outside the controller lock, in update order.
func (c *Controller) OnDidChangeHiddenRanges(handler func(folding.HiddenRangesEvent)) (unsubscribe func()) {
	return c.hiddenEvt.Subscribe(handler)
}

// OnDidUpdate subscribes to applied computations.
func (c *Controller) OnDidUpdate(handler func(UpdateEvent)) (unsubscribe func()) {
	return c.updateEvt.Subscribe(handler)
}

// Regions returns the current regions, or nil without a model.
func (c *Controller) Regions() []folding.FoldRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil
	}
	return c.model.Regions().ToFoldRanges()
}

// HiddenRanges returns the hidden line ranges.
func (c *Controller) HiddenRanges() []folding.LineRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hidden == nil {
		return nil
	}
	return c.hidden.Ranges()
}

// GutterMarkers returns the gutter marker of every region start line.
func (c *Controller) GutterMarkers() []folding.LineMarker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil
	}
	return folding.GutterMarkers(c.model.Regions(), c.hidden.IsHidden)
}

// WithModel runs fn with exclusive access to the model. Changes fn makes
// reach the view after it returns.
func (c *Controller) WithModel(fn func(m *folding.Model, h *folding.HiddenRangeModel) error) error {
	c.mu.Lock()
	if c.model == nil {
		c.mu.Unlock()
		return ErrNotActive
	}
	err := fn(c.model, c.hidden)
	c.mu.Unlock()
	c.flush()
	return err
}

// ComputeNow cancels any scheduled or running computation and computes
// synchronously. Provider failures are absorbed; the only errors are
// ErrNotActive and ctx errors.
func (c *Controller) ComputeNow(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.HasModel() {
		c.mu.Unlock()
		return ErrNotActive
	}
	c.cancelPendingLocked()
	gen := c.generation
	c.mu.Unlock()
	return c.runCompute(ctx, gen)
}

// RevealLines expands every collapsed region hiding one of lines.
func (c *Controller) RevealLines(lines ...int) {
	c.mu.Lock()
	if c.model != nil {
		c.revealLocked(lines)
	}
	c.mu.Unlock()
	c.flush()
}

// SelectionsChanged reveals the selections of the view after the cursor
// moved.
func (c *Controller) SelectionsChanged() {
	c.mu.Lock()
	if c.model != nil {
		var lines []int
		for _, s := range c.view.Selections() {
			lines = append(lines, s.Active.Line)
		}
		c.revealLocked(lines)
	}
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) revealLocked(lines []int) {
	var toExpand []folding.Region
	for _, line := range lines {
		toExpand = append(toExpand, c.model.GetAllRegionsAtLine(line, func(r folding.Region, _ int) bool {
			return r.IsCollapsed() && r.HidesLine(line)
		})...)
	}
	c.model.SetCollapseState(toExpand, false)
}

func (c *Controller) transition(next State) error {
	if err := c.state.CanTransition(next); err != nil {
		return err
	}
	c.logger.Debug("state transition", zap.String("from", string(c.state)), zap.String("to", string(next)))
	c.state = next
	return nil
}

// activate creates the model and schedules the first computation.
func (c *Controller) activate() {
	c.model = folding.NewModel(c.doc, folding.WithModelLogger(c.flog))
	c.hidden = folding.NewHiddenRangeModel(c.model)
	c.modelSubs = []func(){
		c.model.OnDidChange(c.onModelChanged),
		c.hidden.OnDidChange(c.onHiddenChanged),
	}
	c.provider = c.selectProvider()
	c.applied = 0
	c.importsFolded = false
	if err := c.transition(StateActive); err != nil {
		c.logger.Error("activating folding model", zap.Error(err))
	}
	c.prom.activeDelta(1)
	c.scheduleLocked(0)
}

func (c *Controller) deactivate(next State) error {
	c.cancelPendingLocked()
	for _, unsubscribe := range c.modelSubs {
		unsubscribe()
	}
	c.modelSubs = nil
	c.hidden.Dispose()
	c.provider.Dispose()
	c.model, c.hidden, c.provider = nil, nil, nil
	c.mouseDown = nil
	c.prom.activeDelta(-1)
	c.queueHidden(nil, nil)
	return c.transition(next)
}

func (c *Controller) selectProvider() provider.RangeProvider {
	lang := c.doc.LanguageID()
	indent := provider.NewIndentRangeProvider(c.doc, c.rules.Lookup(lang), c.limit)
	var syntax *provider.SyntaxRangeProvider
	if c.registry != nil && c.registry.Has(lang) {
		syntax = provider.NewSyntaxRangeProvider(c.doc, c.registry.Ordered(lang), c.limit, c.onSyntaxChanged,
			provider.WithLogger(c.logger), provider.WithFallback(indent))
	}
	chosen := c.selector(c.doc, Candidates{Indent: indent, Syntax: syntax})
	if chosen == nil {
		chosen = indent
	}
	if syntax != nil && chosen != provider.RangeProvider(syntax) {
		syntax.Dispose()
	}
	c.logger.Debug("provider selected", zap.String("provider", chosen.ID()), zap.String("language", lang))
	return chosen
}

func (c *Controller) onSyntaxChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.HasModel() {
		c.scheduleLocked(c.debouncer.Delay(c.provider.ID()))
	}
}

func (c *Controller) onContentChanged(event folding.ContentChangeEvent) {
	c.mu.Lock()
	switch {
	case c.state == StateEnabled:
		if c.doc.LineCount() <= c.cfg.MaxDocumentLines {
			c.activate()
		}
	case c.state.HasModel():
		if c.doc.LineCount() > c.cfg.MaxDocumentLines {
			if err := c.deactivate(StateEnabled); err != nil {
				c.logger.Error("deactivating folding model", zap.Error(err))
			}
			break
		}
		c.hidden.NotifyChangeModelContent(event)
		c.model.ApplyEdits(event)
		c.scheduleLocked(c.debouncer.Delay(c.provider.ID()))
	}
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) onModelChanged(e folding.ChangeEvent) {
	c.toggled += len(e.CollapseStateChanged)
}

func (c *Controller) onHiddenChanged(e folding.HiddenRangesEvent) {
	var adjusted []folding.Selection
	if sel, moved := c.hidden.AdjustSelections(c.view.Selections()); moved {
		adjusted = sel
	}
	c.queueHidden(e.Ranges, adjusted)
}

func (c *Controller) queueHidden(ranges []folding.LineRange, selections []folding.Selection) {
	c.seq++
	c.pending = &delivery{seq: c.seq, ranges: ranges, selections: selections}
}

// flush hands the latest hidden ranges to the view outside c.mu. Older
// deliveries that lost a race are dropped.
func (c *Controller) flush() {
	c.mu.Lock()
	d := c.pending
	c.pending = nil
	c.mu.Unlock()
	if d == nil {
		return
	}
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	if d.seq <= c.delivered {
		return
	}
	c.delivered = d.seq
	if d.selections != nil {
		c.view.SetSelections(d.selections)
	}
	c.view.SetHiddenAreas(d.ranges)
	c.hiddenEvt.Emit(folding.HiddenRangesEvent{Ranges: d.ranges})
}

func (c *Controller) cancelPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// scheduleLocked arms the debounce timer. A pending timer counts as
// computing.
func (c *Controller) scheduleLocked(delay time.Duration) {
	c.cancelPendingLocked()
	if c.state == StateActive {
		_ = c.transition(StateComputing)
	}
	gen := c.generation
	c.timer = time.AfterFunc(delay, func() {
		_ = c.runCompute(context.Background(), gen)
	})
}

// runCompute runs one computation for generation gen and applies its
// result if nothing newer was requested meanwhile.
func (c *Controller) runCompute(parent context.Context, gen uint64) error {
	c.mu.Lock()
	if gen != c.generation || !c.state.HasModel() {
		c.mu.Unlock()
		return nil
	}
	if c.state == StateActive {
		_ = c.transition(StateComputing)
	}
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	prov := c.provider
	version := c.doc.VersionID()
	c.mu.Unlock()
	defer cancel()

	ctx, span := folding.StartSpan(ctx, "folding.compute", c.doc,
		trace.WithAttributes(attribute.String("folding.provider", prov.ID())))
	defer span.End()

	start := time.Now()
	regions, err := c.safeCompute(ctx, prov)
	took := time.Since(start)

	c.mu.Lock()
	outcome, event := c.applyLocked(ctx, gen, version, prov, regions, err, took)
	c.mu.Unlock()
	c.flush()
	if event != nil {
		c.updateEvt.Emit(*event)
	}
	if outcome == OutcomeCanceled {
		return ctx.Err()
	}
	return nil
}

func (c *Controller) safeCompute(ctx context.Context, prov provider.RangeProvider) (regions *folding.Regions, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("range provider panicked, recovering",
				zap.String("provider", prov.ID()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			regions = nil
			err = fmt.Errorf("provider %s panicked: %v", prov.ID(), r)
		}
	}()
	return prov.Compute(ctx)
}

func (c *Controller) applyLocked(ctx context.Context, gen uint64, version int, prov provider.RangeProvider,
	regions *folding.Regions, err error, took time.Duration) (string, *UpdateEvent) {
	current := gen == c.generation && c.state == StateComputing && c.provider == prov
	if current {
		c.cancel = nil
		_ = c.transition(StateActive)
	}
	if !current || version != c.doc.VersionID() {
		c.flog.StaleResultDiscarded(ctx, c.doc.URI(), version, c.doc.VersionID())
		c.otel.RecordStaleDiscard(ctx, prov.ID())
		c.prom.recordCompute(prov.ID(), OutcomeStale, took.Seconds())
		return OutcomeStale, nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		c.prom.recordCompute(prov.ID(), OutcomeCanceled, took.Seconds())
		return OutcomeCanceled, nil
	}

	outcome := OutcomeApplied
	if err != nil {
		c.flog.ComputeFailed(ctx, c.doc.URI(), version, prov.ID(), err)
		folding.RecordError(ctx, err)
		folding.SetSpanStatus(ctx, codes.Error, "unexpected error computing folding ranges")
		regions = nil
		outcome = OutcomeFailed
	}
	if regions == nil {
		regions = folding.EmptyRegions()
	}
	c.debouncer.Update(prov.ID(), took)
	c.otel.RecordCompute(ctx, prov.ID(), took, regions.Length(), err)
	c.prom.recordCompute(prov.ID(), outcome, took.Seconds())
	c.prom.recordRegions(regions.Length())
	if c.limit.Limited() > 0 {
		c.prom.recordLimitExceeded()
	}
	if err == nil {
		c.flog.RegionsComputed(ctx, c.doc.URI(), version, prov.ID(), regions.Length(), took)
	}

	c.model.Update(regions, c.view.Selections())
	c.applied++
	c.afterApplyLocked()
	return outcome, &UpdateEvent{
		Version:  version,
		Provider: prov.ID(),
		Regions:  c.model.Regions().Length(),
		Failed:   err != nil,
	}
}

func (c *Controller) afterApplyLocked() {
	if m := c.pendingMemento; m != nil {
		c.pendingMemento = nil
		c.model.ApplyCollapseMemento(m.Ranges())
	}
	if c.cfg.FoldingImportsByDefault && !c.importsFolded {
		before := c.toggled
		folding.SetCollapseStateForType(c.model, folding.TypeImports, true)
		c.importsFolded = c.toggled > before
	}
}
