package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/smithy-go"

	"github.com/tendant/simple-docs/pkg/simpledocs"
)

type object struct {
	data               []byte
	contentType        string
	contentDisposition string
	metadata           map[string]string
	lastModified       time.Time
}

// Backend is an in-memory implementation of simpledocs.ObjectStore. It does
// not implement simpledocs.Presigner.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
		now:     time.Now,
	}
}

func notFound(key string) error {
	return &smithy.GenericAPIError{
		Code:    "NotFound",
		Message: "object not found: " + key,
		Fault:   smithy.FaultClient,
	}
}

// Put stores a copy of the object
func (b *Backend) Put(ctx context.Context, in simpledocs.PutObjectInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := make([]byte, len(in.Body))
	copy(data, in.Body)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[in.Key] = object{
		data:               data,
		contentType:        in.ContentType,
		contentDisposition: in.ContentDisposition,
		metadata:           copyMap(in.Metadata),
		lastModified:       b.now().UTC(),
	}
	return nil
}

// List returns objects under prefix in key order, at most maxKeys of them
func (b *Backend) List(ctx context.Context, prefix string, maxKeys int32) ([]simpledocs.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if maxKeys > 0 && int32(len(keys)) > maxKeys {
		keys = keys[:maxKeys]
	}

	infos := make([]simpledocs.ObjectInfo, 0, len(keys))
	for _, k := range keys {
		obj := b.objects[k]
		infos = append(infos, simpledocs.ObjectInfo{
			Key:          k,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	return infos, nil
}

// Delete removes an object. Like S3, deleting a missing key succeeds.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, key)
	return nil
}

// Head returns a copy of the object's user metadata
func (b *Backend) Head(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, notFound(key)
	}
	return copyMap(obj.metadata), nil
}

// Object returns the stored bytes, content type and content disposition of key
func (b *Backend) Object(key string) (data []byte, contentType, contentDisposition string, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, "", "", false
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, obj.contentType, obj.contentDisposition, true
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
