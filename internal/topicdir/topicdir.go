// Package topicdir manages one disklog per topic under a shared data
// root, opening each lazily the first time it is addressed and
// serializing every append to a topic through a single queue goroutine.
package topicdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/tomcumming/simples/internal/disklog"
	"github.com/tomcumming/simples/internal/topicname"
)

// ErrTopicDoesNotExist is returned by Append and OpenReader for a topic
// name that has never been created with CreateTopic.
var ErrTopicDoesNotExist = errors.New("topicdir: topic does not exist")

const appendQueueSize = 64

type appendRequest struct {
	body   io.Reader
	result chan appendResult
}

type appendResult struct {
	pos disklog.LogPosition
	err error
}

type topic struct {
	opened *disklog.OpenedLog
	queue  chan appendRequest
	done   chan struct{}
}

// Dir lazily opens and caches one *disklog.OpenedLog per topic name
// beneath root.
type Dir struct {
	root string

	mu     sync.Mutex
	topics map[string]*topic
}

// New returns a Dir rooted at root. root is not created here; use
// os.MkdirAll(root, ...) before serving requests if it may not exist.
func New(root string) *Dir {
	return &Dir{root: root, topics: make(map[string]*topic)}
}

func (d *Dir) topicPath(name topicname.Name) string {
	return filepath.Join(d.root, name.String())
}

// CreateTopic makes the on-disk directory for name if it doesn't
// already exist. It is the only way a topic becomes addressable by
// Append or OpenReader.
func (d *Dir) CreateTopic(name topicname.Name) error {
	if err := os.MkdirAll(d.topicPath(name), 0o755); err != nil {
		return fmt.Errorf("topicdir: create topic directory: %w", err)
	}
	return nil
}

// getOrOpenTopic returns the cached topic queue for name, opening the
// underlying log and spawning its queue goroutine on first use. It
// fails with ErrTopicDoesNotExist if CreateTopic was never called for
// name.
func (d *Dir) getOrOpenTopic(name topicname.Name) (*topic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.topics[name.String()]; ok {
		return t, nil
	}

	path := d.topicPath(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTopicDoesNotExist
		}
		return nil, fmt.Errorf("topicdir: stat topic directory: %w", err)
	}

	opened, err := disklog.OpenLog(path)
	if err != nil {
		return nil, fmt.Errorf("topicdir: open topic log: %w", err)
	}

	t := &topic{opened: opened, queue: make(chan appendRequest, appendQueueSize), done: make(chan struct{})}
	go t.run()
	d.topics[name.String()] = t

	return t, nil
}

func (t *topic) run() {
	defer close(t.done)
	for req := range t.queue {
		pos, err := t.opened.Writer.Append(req.body)
		req.result <- appendResult{pos: pos, err: err}
	}
}

// Append enqueues contents for serialized appending to name's log and
// waits for the result, or for ctx to be done first.
func (d *Dir) Append(ctx context.Context, name topicname.Name, contents io.Reader) (disklog.LogPosition, error) {
	t, err := d.getOrOpenTopic(name)
	if err != nil {
		return 0, err
	}

	result := make(chan appendResult, 1)
	select {
	case t.queue <- appendRequest{body: contents, result: result}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-result:
		return r.pos, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// OpenReader returns a fresh Reader over name's log positioned at
// position. Reading never creates a topic: an unknown name fails with
// ErrTopicDoesNotExist.
func (d *Dir) OpenReader(name topicname.Name, position disklog.LogPosition) (*disklog.Reader, error) {
	t, err := d.getOrOpenTopic(name)
	if err != nil {
		return nil, err
	}
	return t.opened.ReaderFactory.ReadFrom(position)
}

// Close shuts down every open topic's queue goroutine and closes its
// log. The Dir is unusable afterward.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, t := range d.topics {
		close(t.queue)
		<-t.done
		if err := t.opened.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
