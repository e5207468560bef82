package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"hermes/internal/domain"
)

var (
	bucketChunks = []byte("chunks")
	bucketByLang = []byte("by_lang")
	bucketByPath = []byte("by_path")
	bucketMeta   = []byte("meta")
	keyCount     = []byte("count")
)

// MetadataStore is the persistent chunk record store. Chunk ids are dense
// integers assigned in insertion order; the same ids key the dense and
// sparse indexes. bbolt gives crash safety through its write-ahead
// transaction journal.
type MetadataStore struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the store at path. Serving opens
// read-only so a build can stage and rename a replacement underneath
// concurrent readers.
func Open(path string, readOnly bool) (*MetadataStore, error) {
	opts := &bbolt.Options{Timeout: 5 * time.Second, ReadOnly: readOnly}
	db, err := bbolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	if !readOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, b := range [][]byte{bucketChunks, bucketByLang, bucketByPath, bucketMeta} {
				if _, err := tx.CreateBucketIfNotExists(b); err != nil {
					return fmt.Errorf("failed to create bucket %s: %w", b, err)
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &MetadataStore{db: db}, nil
}

func (s *MetadataStore) Close() error {
	return s.db.Close()
}

// InsertMany appends chunks, assigning the i-th chunk id previousCount+i,
// and returns the assigned ids.
func (s *MetadataStore) InsertMany(chunks []domain.Chunk) ([]int, error) {
	ids := make([]int, 0, len(chunks))

	err := s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		lb := tx.Bucket(bucketByLang)
		pb := tx.Bucket(bucketByPath)
		mb := tx.Bucket(bucketMeta)

		next := readCount(mb)
		for i := range chunks {
			id := next + i
			chunks[i].ChunkID = id

			data, err := json.Marshal(chunks[i])
			if err != nil {
				return err
			}
			if err := cb.Put(idKey(id), data); err != nil {
				return err
			}
			if err := lb.Put(indexKey(chunks[i].Language, id), nil); err != nil {
				return err
			}
			if err := pb.Put(indexKey(chunks[i].FilePath, id), nil); err != nil {
				return err
			}
			ids = append(ids, id)
		}

		return writeCount(mb, next+len(chunks))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert chunks: %w", err)
	}
	return ids, nil
}

// Get returns the chunk with the given id.
func (s *MetadataStore) Get(id int) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get(idKey(id))
		if data == nil {
			return fmt.Errorf("chunk %d missing: %w", id, domain.ErrIntegrity)
		}
		return json.Unmarshal(data, &chunk)
	})
	return chunk, err
}

// GetMany returns the chunks for ids in input order. A missing id after a
// successful load means the artifact id spaces have diverged, which is a
// fatal integrity error.
func (s *MetadataStore) GetMany(ids []int) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(ids))
	err := s.db.View(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		for _, id := range ids {
			data := cb.Get(idKey(id))
			if data == nil {
				return fmt.Errorf("chunk %d missing: %w", id, domain.ErrIntegrity)
			}
			var chunk domain.Chunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *MetadataStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = readCount(tx.Bucket(bucketMeta))
		return nil
	})
	return n, err
}

// FilterIDs returns the set of chunk ids matching both filters (AND).
// Empty strings mean no constraint on that dimension; at least one must be
// set.
func (s *MetadataStore) FilterIDs(language, pathPrefix string) (map[int]struct{}, error) {
	if language == "" && pathPrefix == "" {
		return nil, fmt.Errorf("filter requires a language or path prefix")
	}

	result := make(map[int]struct{})
	err := s.db.View(func(tx *bbolt.Tx) error {
		var byLang map[int]struct{}
		if language != "" {
			byLang = make(map[int]struct{})
			c := tx.Bucket(bucketByLang).Cursor()
			prefix := []byte(language + "\x00")
			for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
				byLang[idFromIndexKey(k)] = struct{}{}
			}
			if pathPrefix == "" {
				result = byLang
				return nil
			}
		}

		c := tx.Bucket(bucketByPath).Cursor()
		prefix := []byte(pathPrefix)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id := idFromIndexKey(k)
			if byLang != nil {
				if _, ok := byLang[id]; !ok {
					continue
				}
			}
			result[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func idKey(id int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(id))
	return k[:]
}

// indexKey is value + NUL + big-endian id, so a cursor prefix scan on the
// value enumerates its ids.
func indexKey(value string, id int) []byte {
	k := make([]byte, 0, len(value)+9)
	k = append(k, value...)
	k = append(k, 0)
	var idb [8]byte
	binary.BigEndian.PutUint64(idb[:], uint64(id))
	return append(k, idb[:]...)
}

func idFromIndexKey(k []byte) int {
	return int(binary.BigEndian.Uint64(k[len(k)-8:]))
}

func readCount(mb *bbolt.Bucket) int {
	data := mb.Get(keyCount)
	if len(data) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(data))
}

func writeCount(mb *bbolt.Bucket, n int) error {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], uint64(n))
	return mb.Put(keyCount, data[:])
}
