package asset

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// ImageRequest names one image to decode. Data takes precedence over Path.
type ImageRequest struct {
	Name string
	Path string
	Data []byte
	// Options apply to this image only, after the preparer's defaults.
	Options []ImageOption
}

// Preparer decodes images concurrently on a bounded worker pool. It is meant for setup time; results are returned to the
// caller, which uploads them from the frame thread.
type Preparer struct {
	log      *zap.Logger
	workers  int
	defaults []ImageOption
	pool     worker.DynamicWorkerPool
	once     sync.Once
	taskID   int
	mu       sync.Mutex
}

// PreparerBuilderOption is a function that configures a Preparer during construction.
type PreparerBuilderOption func(*Preparer)

// WithWorkers sets the maximum number of concurrent decodes. The default is GOMAXPROCS.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - PreparerBuilderOption: a function that applies the option
func WithWorkers(n int) PreparerBuilderOption {
	return func(p *Preparer) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPreparerLogger sets the logger used for decode progress.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - PreparerBuilderOption: a function that applies the option
func WithPreparerLogger(log *zap.Logger) PreparerBuilderOption {
	return func(p *Preparer) {
		if log != nil {
			p.log = log
		}
	}
}

// WithDefaultImageOptions sets options applied to every request.
//
// Parameters:
//   - opts: the image options
//
// Returns:
//   - PreparerBuilderOption: a function that applies the option
func WithDefaultImageOptions(opts ...ImageOption) PreparerBuilderOption {
	return func(p *Preparer) {
		p.defaults = append(p.defaults, opts...)
	}
}

// NewPreparer creates a preparer. The worker pool starts on first use.
//
// Parameters:
//   - opts: variadic list of PreparerBuilderOption functions
//
// Returns:
//   - *Preparer: the new preparer
func NewPreparer(opts ...PreparerBuilderOption) *Preparer {
	p := &Preparer{
		log:     zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DecodeImages decodes every request concurrently. Results keep the request order. Every failure is reported, joined into
// one error; successful images are still returned in their slots.
//
// Parameters:
//   - reqs: the images to decode
//
// Returns:
//   - []*ImageData: one result per request, nil where decoding failed
//   - error: the joined decode errors, or nil
func (p *Preparer) DecodeImages(reqs []ImageRequest) ([]*ImageData, error) {
	p.once.Do(func() {
		p.pool = worker.NewDynamicWorkerPool(p.workers, 256, 1*time.Second)
	})

	start := time.Now()
	out := make([]*ImageData, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		req := reqs[i]
		idx := i
		p.pool.SubmitTask(worker.Task{
			ID: p.nextID(),
			Do: func() (any, error) {
				defer wg.Done()
				img, err := p.decode(req)
				out[idx], errs[idx] = img, err
				return nil, nil
			},
		})
	}
	wg.Wait()

	err := errors.Join(errs...)
	p.log.Info("images prepared",
		zap.Int("count", len(reqs)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", err != nil),
	)
	return out, err
}

func (p *Preparer) decode(req ImageRequest) (*ImageData, error) {
	opts := append(append([]ImageOption(nil), p.defaults...), req.Options...)
	switch {
	case len(req.Data) > 0:
		return DecodeImageBytes(req.Name, req.Data, opts...)
	case req.Path != "":
		img, err := DecodeImageFile(req.Path, opts...)
		if img != nil && req.Name != "" {
			img.Name = req.Name
		}
		return img, err
	default:
		return nil, fmt.Errorf("image %s has neither data nor path", req.Name)
	}
}

func (p *Preparer) nextID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskID++
	return p.taskID
}
