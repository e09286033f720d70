package exiftool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goexiftool "github.com/barasher/go-exiftool"

	"deduper/internal/services"
)

// ErrClosed is returned by Extract after Close.
var ErrClosed = errors.New("exiftool pool closed")

// instance is the subset of *goexiftool.Exiftool the pool uses.
type instance interface {
	ExtractMetadata(files ...string) []goexiftool.FileMetadata
	Close() error
}

// Pool hands out exiftool processes to concurrent callers.
type Pool struct {
	idle chan instance
	all  []instance

	mu     sync.Mutex
	closed bool
}

// New starts size exiftool processes using binary. size below 1 starts one.
func New(binary string, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	binary = strings.TrimSpace(binary)
	instances := make([]instance, 0, size)
	for i := 0; i < size; i++ {
		opts := []func(*goexiftool.Exiftool) error{
			goexiftool.Charset("filename=utf8"),
		}
		if binary != "" {
			opts = append(opts, goexiftool.SetExiftoolBinaryPath(binary))
		}
		et, err := goexiftool.NewExiftool(opts...)
		if err != nil {
			for _, started := range instances {
				_ = started.Close()
			}
			return nil, services.Wrap(services.ErrExternalTool, "metadata", "start exiftool",
				fmt.Sprintf("Unable to start %q", binaryLabel(binary)), err)
		}
		instances = append(instances, et)
	}
	return newPool(instances), nil
}

func newPool(instances []instance) *Pool {
	p := &Pool{idle: make(chan instance, len(instances)), all: instances}
	for _, inst := range instances {
		p.idle <- inst
	}
	return p
}

// Size returns the number of processes in the pool.
func (p *Pool) Size() int {
	return len(p.all)
}

// Extract reads the tags of path.
func (p *Pool) Extract(ctx context.Context, path string) (map[string]string, error) {
	var inst instance
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case inst = <-p.idle:
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	defer func() { p.idle <- inst }()

	results := inst.ExtractMetadata(path)
	if len(results) == 0 {
		return nil, fmt.Errorf("exiftool returned no result for %s", path)
	}
	res := results[0]
	if res.Err != nil {
		return nil, fmt.Errorf("exiftool %s: %w", path, res.Err)
	}
	return stringify(res.Fields), nil
}

// Close stops every process. Callers must not be inside Extract.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for _, inst := range p.all {
		if err := inst.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func stringify(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			out[key] = v
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ", ")
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}

func binaryLabel(binary string) string {
	if binary == "" {
		return "exiftool"
	}
	return binary
}
