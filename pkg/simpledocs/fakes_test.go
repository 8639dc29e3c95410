package simpledocs_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tendant/simple-docs/pkg/simpledocs"
)

// mockStore is a testify mock of the object store capability
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, in simpledocs.PutObjectInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *mockStore) List(ctx context.Context, prefix string, maxKeys int32) ([]simpledocs.ObjectInfo, error) {
	args := m.Called(ctx, prefix, maxKeys)
	objects, _ := args.Get(0).([]simpledocs.ObjectInfo)
	return objects, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStore) Head(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	meta, _ := args.Get(0).(map[string]string)
	return meta, args.Error(1)
}

// mockPresignStore additionally implements simpledocs.Presigner
type mockPresignStore struct {
	mockStore
}

func (m *mockPresignStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, expires)
	return args.String(0), args.Error(1)
}

const fakeHeader = "%PDF-FAKE"

// fakeCodec understands a line based stand-in for PDF bytes:
// the header line followed by strconv-quoted "name value" pairs.
type fakeCodec struct {
	setErr       error
	serializeErr error
}

type fakeDoc struct {
	codec  *fakeCodec
	fields map[string]string
}

func (c *fakeCodec) Parse(data []byte) (simpledocs.Document, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() || !strings.HasPrefix(sc.Text(), fakeHeader) {
		return nil, errors.New("not a PDF: missing header")
	}
	doc := &fakeDoc{codec: c, fields: map[string]string{}}
	for sc.Scan() {
		line := sc.Text()
		name, quoted, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		value, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, err
		}
		doc.fields[name] = value
	}
	return doc, nil
}

func (d *fakeDoc) SetField(name, value string) error {
	if d.codec.setErr != nil {
		return d.codec.setErr
	}
	d.fields[name] = value
	return nil
}

func (d *fakeDoc) Field(name string) (string, bool) {
	v, ok := d.fields[name]
	return v, ok
}

func (d *fakeDoc) Serialize() ([]byte, error) {
	if d.codec.serializeErr != nil {
		return nil, d.codec.serializeErr
	}
	names := make([]string, 0, len(d.fields))
	for n := range d.fields {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString(fakeHeader + "\n")
	for _, n := range names {
		fmt.Fprintf(&buf, "%s %s\n", n, strconv.Quote(d.fields[n]))
	}
	return buf.Bytes(), nil
}

func fakePDF() []byte {
	return []byte(fakeHeader + "\n")
}

func fixedClock() time.Time {
	return time.UnixMilli(1700000000000).UTC()
}
