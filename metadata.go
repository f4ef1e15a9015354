package connpool

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/fathiraz/connpool/driver"
)

const metadataCacheLimit = 1000

// MetadataProxy wraps the driver's metadata object and caches results
// keyed by method name plus its arguments. Metadata queries are expensive
// and frequently repeated by upstream frameworks, so a live cursor result
// is materialized into a RowSetProxy snapshot on first fetch and replayed
// from the snapshot thereafter.
type MetadataProxy struct {
	conn *Connection
	raw  driver.Metadata

	mu    sync.Mutex
	cache map[string]any
	order []string // insertion order, oldest first, for the size bound
}

func newMetadataProxy(conn *Connection, raw driver.Metadata) *MetadataProxy {
	return &MetadataProxy{conn: conn, raw: raw, cache: make(map[string]any)}
}

// Close is a no-op: each GetMetadata call builds a fresh MetadataProxy,
// and its cache is simply dropped along with the proxy.
func (m *MetadataProxy) Close() error { return nil }

// Invoke looks up (method, args) in the cache. On a hit, if the cached
// result is a materialized row set it is first seeked to before the first
// row. On a miss it delegates to the driver; a live cursor result is
// materialized into a RowSetProxy and cached, and the live cursor closed.
func (m *MetadataProxy) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	key := cacheKey(method, args)

	m.mu.Lock()
	if cached, ok := m.cache[key]; ok {
		if rs, ok := cached.(*RowSetProxy); ok {
			rs.seekBeforeFirst()
		}
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	result, err := m.raw.Invoke(ctx, method, args...)
	if err != nil {
		return nil, m.conn.captureException(err)
	}

	if cursor, ok := result.(driver.Rows); ok {
		rs, err := materialize(cursor)
		_ = cursor.Close()
		if err != nil {
			return nil, m.conn.captureException(err)
		}
		m.store(key, rs)
		return rs, nil
	}

	m.store(key, result)
	return result, nil
}

func (m *MetadataProxy) store(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cache[key]; !exists {
		if len(m.order) >= metadataCacheLimit {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.cache, oldest)
		}
		m.order = append(m.order, key)
	}
	m.cache[key] = value
}

func cacheKey(method string, args []any) string {
	var b strings.Builder
	b.WriteString(method)
	for _, a := range args {
		b.WriteByte('-')
		switch v := a.(type) {
		case string:
			b.WriteString(v)
		case int:
			b.WriteString(strconv.Itoa(v))
		default:
			b.WriteString(strconv.Quote(anyToString(a)))
		}
	}
	return b.String()
}

func anyToString(a any) string {
	type stringer interface{ String() string }
	if s, ok := a.(stringer); ok {
		return s.String()
	}
	return ""
}

// RowSetProxy is a scrollable, insensitive snapshot of a materialized
// cursor. It outlives individual callers and is owned by the metadata
// cache, so Close (and anything starting with "close") is a no-op.
type RowSetProxy struct {
	columns []string
	data    [][]any
	pos     int
}

func materialize(cursor driver.Rows) (*RowSetProxy, error) {
	cols, err := cursor.Columns()
	if err != nil {
		return nil, err
	}
	rs := &RowSetProxy{columns: cols, pos: -1}
	for cursor.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := cursor.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.data = append(rs.data, vals)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *RowSetProxy) seekBeforeFirst() { rs.pos = -1 }

// Next advances to the next row, scrollable-insensitive over the
// materialized snapshot.
func (rs *RowSetProxy) Next() bool {
	if rs.pos+1 >= len(rs.data) {
		return false
	}
	rs.pos++
	return true
}

// Scan copies the current row's columns into dest.
func (rs *RowSetProxy) Scan(dest ...any) error {
	row := rs.data[rs.pos]
	for i := range dest {
		if i >= len(row) {
			break
		}
		if p, ok := dest[i].(*any); ok {
			*p = row[i]
		}
	}
	return nil
}

// Columns returns the snapshot's column names.
func (rs *RowSetProxy) Columns() []string { return rs.columns }

// Close is a no-op; see RowSetProxy's doc comment.
func (rs *RowSetProxy) Close() error { return nil }
