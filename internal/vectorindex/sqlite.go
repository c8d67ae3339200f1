package vectorindex

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time check that SQLiteIndex implements Index.
var _ Index = (*SQLiteIndex)(nil)

// SQLiteIndex is a local, brute-force cosine-similarity vector index backed
// by SQLite. It serves offline development and integration tests; the
// dimension is fixed at open time the way a hosted index's is at creation.
type SQLiteIndex struct {
	db        *sql.DB
	dimension int
}

const schema = `
CREATE TABLE IF NOT EXISTS call_vectors (
	namespace  TEXT NOT NULL,
	id         TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	PRIMARY KEY (namespace, id)
);`

// OpenSQLite opens (or creates) a SQLite-backed index in dataDir with the
// given fixed dimension. Pass ":memory:" as dataDir for an in-memory index.
func OpenSQLite(dataDir string, dimension int) (*SQLiteIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dimension)
	}

	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "vectors.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteIndex{db: db, dimension: dimension}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// DescribeDimension returns the dimension the index was opened with.
func (s *SQLiteIndex) DescribeDimension(ctx context.Context) (int, error) {
	return s.dimension, nil
}

// Upsert inserts or replaces records in the given namespace.
func (s *SQLiteIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO call_vectors (namespace, id, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET
			embedding = excluded.embedding,
			metadata = excluded.metadata`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Values) != s.dimension {
			tx.Rollback()
			return fmt.Errorf("record %s has dimension %d, index expects %d", r.ID, len(r.Values), s.dimension)
		}
		meta := r.Metadata
		if meta == nil {
			meta = Metadata{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		blob := encodeFloat32s(r.Values)
		if _, err := stmt.Exec(namespace, r.ID, blob, string(metaJSON), time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("upserting record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// idScore holds a candidate during the scan phase of Query.
type idScore struct {
	ID    string
	Score float32
}

// Query performs a brute-force cosine-similarity scan over the namespace and
// returns the topK most similar records, filtered by metadata equality.
func (s *SQLiteIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, filter Filter, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding, metadata FROM call_vectors WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	queryNorm := norm(vector)

	h := &idScoreHeap{}
	heap.Init(h)
	metaByID := make(map[string]Metadata)

	var buf []float32
	for rows.Next() {
		var id string
		var blob []byte
		var metaJSON string
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", id, err)
		}
		if !matchesFilter(meta, filter) {
			continue
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}

		score := cosine(vector, buf, queryNorm)
		if h.Len() < topK {
			heap.Push(h, idScore{ID: id, Score: score})
			metaByID[id] = meta
		} else if score > (*h)[0].Score {
			delete(metaByID, (*h)[0].ID)
			(*h)[0] = idScore{ID: id, Score: score}
			heap.Fix(h, 0)
			metaByID[id] = meta
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	// Pop the min-heap into descending score order.
	matches := make([]Match, h.Len())
	for i := len(matches) - 1; i >= 0; i-- {
		item := heap.Pop(h).(idScore)
		m := Match{ID: item.ID, Score: item.Score}
		if includeMetadata {
			m.Metadata = metaByID[item.ID]
		}
		matches[i] = m
	}
	return matches, nil
}

// matchesFilter reports whether every filter field equals the corresponding
// metadata value (compared as strings).
func matchesFilter(meta Metadata, filter Filter) bool {
	for key, want := range filter {
		got, ok := meta[key].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into the provided buffer,
// reusing it to avoid per-row allocations during scans.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes cosine similarity as dot(a,b) / (aNorm * bNorm), with
// aNorm precomputed. Either vector being all-zero yields 0.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}
	var dot float64
	var bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// idScoreHeap is a min-heap of idScore ordered by Score.
type idScoreHeap []idScore

func (h idScoreHeap) Len() int           { return len(h) }
func (h idScoreHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h idScoreHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idScoreHeap) Push(x any)        { *h = append(*h, x.(idScore)) }
func (h *idScoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
