package internal

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
)

// ErrRegistryClosed is returned when a resource is registered after teardown began.
// The caller owns the resource and must remove it itself.
var ErrRegistryClosed = errors.New("cleanup registry already torn down")

// Teardowner is the subset of engine operations the registry needs to release
// session resources.
type Teardowner interface {
	StopAndRemove(ctx context.Context, containerID string) error
	RemoveNetwork(ctx context.Context, name string)
}

// CleanupRegistry tracks the resources created during one session and releases
// them exactly once. Every field is drained under the lock during teardown, so
// a concurrent or repeated Teardown is a no-op.
type CleanupRegistry struct {
	mu       sync.Mutex
	engine   Teardowner
	dev      string
	services []string
	network  string
	closed   bool
	writer   Writer
}

// NewCleanupRegistry creates a registry. A nil engine makes Teardown a no-op;
// network may be empty when it is not known up front.
func NewCleanupRegistry(engine Teardowner, network string, w Writer) *CleanupRegistry {
	return &CleanupRegistry{
		engine:  engine,
		network: network,
		writer:  w,
	}
}

// RegisterDevContainer records the dev container id.
func (r *CleanupRegistry) RegisterDevContainer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	r.dev = id
	return nil
}

// RegisterService appends a service container id. Services are torn down in
// registration order.
func (r *CleanupRegistry) RegisterService(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	r.services = append(r.services, id)
	return nil
}

// RegisterNetwork records the session network.
func (r *CleanupRegistry) RegisterNetwork(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	r.network = name
	return nil
}

type drained struct {
	engine   Teardowner
	dev      string
	services []string
	network  string
}

func (r *CleanupRegistry) drain() drained {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := drained{
		engine:   r.engine,
		dev:      r.dev,
		services: r.services,
		network:  r.network,
	}
	r.dev = ""
	r.services = nil
	r.network = ""
	r.closed = true
	return d
}

// Teardown releases every registered resource: the dev container, then the
// service containers in registration order, then the network. A failing step
// is logged and does not block the steps after it.
func (r *CleanupRegistry) Teardown(ctx context.Context) {
	d := r.drain()
	if d.engine == nil {
		return
	}

	if d.dev != "" {
		if err := d.engine.StopAndRemove(ctx, d.dev); err != nil {
			r.writer.Warn("failed to remove dev container", "id", d.dev, "err", err)
		}
	}

	for _, id := range d.services {
		if err := d.engine.StopAndRemove(ctx, id); err != nil {
			r.writer.Warn("failed to remove service container", "id", id, "err", err)
		}
	}

	if d.network != "" {
		d.engine.RemoveNetwork(ctx, d.network)
	}
}

// Watch starts a background listener that tears the session down when a
// termination signal arrives and then calls exit with 128 plus the signal
// number. The returned stop function cancels the listener and waits for it to
// return; call it before a normal-completion Teardown.
func (r *CleanupRegistry) Watch(signals <-chan os.Signal, exit func(int)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			r.writer.Warn("received signal, tearing down session", "signal", sig)
			r.Teardown(context.Background())
			exit(ExitCodeForSignal(sig))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// ExitCodeForSignal returns the conventional 128+n exit status for a signal.
func ExitCodeForSignal(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
