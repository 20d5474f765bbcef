package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
	"github.com/0xmhha/dirwatch/pkg/staging"
)

// manager implements the Manager interface.
type manager struct {
	config     Config
	logger     logger.Logger
	pipeline   *staging.Pipeline
	messages   *bus.Bus[fsevent.Message]
	roots      *rootTable
	dispatcher *dispatcher

	newNotifier func(Config, logger.Logger) (Notifier, error)

	// mu guards session transitions. Table updates take it shared so
	// that Start sees a consistent set of roots; the notification loop
	// never takes it.
	mu      sync.RWMutex
	session *session
}

// New creates a watch manager.
//
// Parameters:
//   - cfg: Watch configuration, zero fields take defaults
//   - pipeline: Staging pipeline receiving captured events
//   - messages: Bus session messages are published on
//   - log: Logger instance
//
// Returns:
//   - Manager in the stopped state
//   - Error if a dependency is missing
func New(cfg Config, pipeline *staging.Pipeline, messages *bus.Bus[fsevent.Message], log logger.Logger) (Manager, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("%w: staging pipeline is required", ErrInvalidArgument)
	}
	if messages == nil {
		return nil, fmt.Errorf("%w: message bus is required", ErrInvalidArgument)
	}

	cfg = cfg.withDefaults()
	log = log.With("component", "watcher")

	m := &manager{
		config:      cfg,
		logger:      log,
		pipeline:    pipeline,
		messages:    messages,
		roots:       &rootTable{},
		newNotifier: NewNotifier,
	}
	m.dispatcher = &dispatcher{
		pipeline: pipeline,
		messages: messages,
		logger:   log,
	}

	log.Info("watch manager created",
		"pool_workers", cfg.PoolWorkers,
		"init_workers", cfg.InitWorkers,
		"batch_size", cfg.BatchSize)

	return m, nil
}

// Start implements Manager.Start.
func (m *manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return fmt.Errorf("%w: session already running", ErrIllegalState)
	}

	notifier, err := m.newNotifier(m.config, m.logger)
	if err != nil {
		return err
	}

	// The watch path keeps working without storage.
	if err := m.pipeline.Reset(); err != nil {
		m.logger.Warn("failed to reset session tables", "error", err)
	}

	id := uuid.NewString()
	log := m.logger.With("session", id)
	ctx, cancel := context.WithCancel(context.Background())

	registry := newRegistrationTable(notifier, log)
	sess := &session{
		id:         id,
		roots:      m.roots,
		notifier:   notifier,
		registry:   registry,
		dispatcher: m.dispatcher,
		ops: &treeOps{
			registry:   registry,
			dispatcher: m.dispatcher,
			logger:     log,
		},
		pool:   newTaskPool(ctx, m.config.PoolWorkers, m.config.TaskQueue, log),
		logger: log,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Counts are captured under the write lock: AddDir calls after this
	// point register their own references.
	roots := m.roots.snapshot()
	refs := make([]rootRefs, 0, len(roots))
	for _, root := range roots {
		r := root.refs()
		refs = append(refs, r)
		m.pipeline.RecordRoot(root.dir, r.recursive > 0)
	}

	m.session = sess
	go sess.consume()

	m.messages.Publish(fsevent.Started{SessionID: id, At: time.Now()})
	log.Info("watch session started", "roots", len(roots))

	for _, r := range refs {
		sess.init.Go(func() error {
			m.registerInitial(sess, r)
			return nil
		})
	}
	return nil
}

// registerInitial registers one root at session start and reports its
// progress on the bus.
func (m *manager) registerInitial(sess *session, refs rootRefs) {
	root := refs.root
	m.messages.Publish(fsevent.RegisterStarted{Root: root.dir})
	start := time.Now()

	dirs, err := sess.ops.registerRoot(sess.ctx, refs, m.config.InitWorkers)
	if err != nil {
		sess.logger.Warn("initial registration incomplete", "root", root.dir, "error", err)
	}

	elapsed := time.Since(start)
	m.messages.Publish(fsevent.RegisterDone{Root: root.dir, Dirs: dirs, Elapsed: elapsed})
	sess.logger.Info("root registered",
		"root", root.dir,
		"dirs", dirs,
		"elapsed", elapsed)
}

// Stop implements Manager.Stop.
func (m *manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.session
	if sess == nil {
		return fmt.Errorf("%w: no session running", ErrIllegalState)
	}

	sess.cancel()
	if err := sess.notifier.Close(); err != nil {
		sess.logger.Warn("notifier close failed", "error", err)
	}
	<-sess.done
	_ = sess.init.Wait()
	sess.pool.close()
	sess.registry.clear()

	m.session = nil
	m.messages.Publish(fsevent.Stopped{SessionID: sess.id, At: time.Now()})
	sess.logger.Info("watch session stopped")
	return nil
}

// IsRunning implements Manager.IsRunning.
func (m *manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// AddDir implements Manager.AddDir.
func (m *manager) AddDir(extension, directory string, recursive bool) error {
	ext, err := normalizeExtension(extension)
	if err != nil {
		return err
	}
	dir, err := normalizeDir(directory)
	if err != nil {
		return err
	}
	if err := requireDir(dir); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	root, created := m.roots.add(ext, dir, recursive)
	m.logger.Info("watched directory added",
		"dir", dir,
		"extension", ext,
		"recursive", recursive,
		"new_root", created)

	sess := m.session
	if sess == nil {
		return nil
	}
	if created {
		m.pipeline.RecordRoot(dir, root.isRecursive())
	}

	if recursive {
		n := sess.ops.registerTree(sess.ctx, dir, root, false)
		sess.logger.Debug("directory tree registered", "dir", dir, "dirs", n)
		return nil
	}
	if err := sess.ops.registerSingle(dir); err != nil {
		sess.logger.Warn("failed to register directory", "dir", dir, "error", err)
	}
	return nil
}

// RemoveDir implements Manager.RemoveDir.
func (m *manager) RemoveDir(extension, directory string, recursive bool) error {
	ext, err := normalizeExtension(extension)
	if err != nil {
		return err
	}
	dir, err := normalizeDir(directory)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, retired, err := m.roots.remove(ext, dir, recursive)
	if err != nil {
		return fmt.Errorf("cannot remove %s (%s): %w", dir, ext, err)
	}
	m.logger.Info("watched directory removed",
		"dir", dir,
		"extension", ext,
		"recursive", recursive,
		"root_retired", retired)

	sess := m.session
	if sess == nil {
		return nil
	}
	if retired {
		m.pipeline.ForgetRoot(dir)
	}

	if recursive {
		n := sess.ops.unregisterTree(sess.ctx, dir)
		sess.logger.Debug("directory tree unregistered", "dir", dir, "dirs", n)
		return nil
	}
	sess.ops.unregisterSingle(dir)
	return nil
}

// ClearLog implements Manager.ClearLog.
func (m *manager) ClearLog() error {
	return m.pipeline.Discard()
}

// CommitToLog implements Manager.CommitToLog.
func (m *manager) CommitToLog() (int, error) {
	return m.pipeline.Commit()
}

// Subscribe implements Manager.Subscribe.
func (m *manager) Subscribe() (<-chan fsevent.Message, func()) {
	return m.messages.Subscribe()
}

// Roots implements Manager.Roots.
func (m *manager) Roots() []RootInfo {
	roots := m.roots.snapshot()
	infos := make([]RootInfo, 0, len(roots))
	for _, root := range roots {
		infos = append(infos, root.info())
	}
	return infos
}

// Stats implements Manager.Stats.
func (m *manager) Stats() Stats {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()

	stats := Stats{
		Roots:           m.roots.len(),
		EventsDelivered: m.dispatcher.delivered.Load(),
		EventsFiltered:  m.dispatcher.filtered.Load(),
		Staging:         m.pipeline.Stats(),
		Bus:             m.messages.Stats(),
	}
	if sess != nil {
		stats.Running = true
		stats.SessionID = sess.id
		stats.Registrations = sess.registry.len()
	}
	return stats
}

// Close implements Manager.Close.
func (m *manager) Close() error {
	if !m.IsRunning() {
		return nil
	}
	if err := m.Stop(); err != nil && !errors.Is(err, ErrIllegalState) {
		return err
	}
	return nil
}
