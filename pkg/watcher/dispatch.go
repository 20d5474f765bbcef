package watcher

import (
	"sync/atomic"
	"time"

	"github.com/0xmhha/dirwatch/pkg/bus"
	"github.com/0xmhha/dirwatch/pkg/fsevent"
	"github.com/0xmhha/dirwatch/pkg/logger"
	"github.com/0xmhha/dirwatch/pkg/staging"
)

// dispatcher turns file notifications into events, stages them and
// publishes them to subscribers.
type dispatcher struct {
	pipeline *staging.Pipeline
	messages *bus.Bus[fsevent.Message]
	logger   logger.Logger

	delivered atomic.Uint64
	filtered  atomic.Uint64
}

// dispatch applies root's extension filter to a file notification.
// Returns true if an event was emitted.
//
// A staging failure is logged by the pipeline; the event is still
// published so live listeners keep working without storage.
func (d *dispatcher) dispatch(kind fsevent.Kind, name, dir string, root *watchedRoot) bool {
	if root == nil {
		d.filtered.Add(1)
		return false
	}

	ext := fsevent.Extension(name)
	if !root.matches(ext) {
		d.filtered.Add(1)
		return false
	}

	evt := fsevent.New(kind, name, dir, time.Now())
	_ = d.pipeline.Stage(evt)
	d.messages.Publish(fsevent.EventRecorded{Event: evt})
	d.delivered.Add(1)

	d.logger.Debug("event recorded",
		"kind", kind,
		"file", name,
		"dir", dir,
		"root", root.dir)
	return true
}
