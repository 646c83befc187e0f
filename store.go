package tablerow

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"iter"
	"slices"

	"github.com/openkvlab/boltdb"
)

var (
	metadataKey    = []byte("metadata")
	dataBucketName = []byte("data")
	idxBucketName  = []byte("index")
)

type tableMetadata struct {
	Columns []string
	Indexed []bool
}

// Table describes a stored table.
type Table struct {
	Name    string
	Columns []string
	Indexed []string
}

type storage struct {
	name        string
	bucket      *boltdb.Bucket
	metadata    tableMetadata
	nameToIndex map[string]int
	maUn        MarshalUnmarshaler
}

func newStorage(
	tx *boltdb.Tx,
	name string,
	columns []string,
	indexed []string,
	maUn MarshalUnmarshaler,
) (*storage, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if tx.Bucket([]byte(name)) != nil {
		return nil, ErrTableExists(name)
	}
	metadata := tableMetadata{
		Columns: slices.Clone(columns),
		Indexed: make([]bool, len(columns)),
	}
	nameToIndex := make(map[string]int, len(columns))
	for i, col := range columns {
		if _, dup := nameToIndex[col]; dup {
			return nil, ErrDuplicateColumn(col)
		}
		nameToIndex[col] = i
	}
	for _, col := range indexed {
		i, ok := nameToIndex[col]
		if !ok {
			return nil, ErrKeyNotFound(col)
		}
		metadata.Indexed[i] = true
	}

	bucket, err := tx.CreateBucket([]byte(name))
	if err != nil {
		return nil, err
	}
	if _, err := bucket.CreateBucket(dataBucketName); err != nil {
		return nil, err
	}
	idxBucket, err := bucket.CreateBucket(idxBucketName)
	if err != nil {
		return nil, err
	}
	for i, isIndexed := range metadata.Indexed {
		if !isIndexed {
			continue
		}
		if _, err := idxBucket.CreateBucket(columnName(i)); err != nil {
			return nil, err
		}
	}
	metadataBytes, err := GobMaUn.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	if err := bucket.Put(metadataKey, metadataBytes); err != nil {
		return nil, err
	}
	return &storage{
		name:        name,
		bucket:      bucket,
		metadata:    metadata,
		nameToIndex: nameToIndex,
		maUn:        maUn,
	}, nil
}

func loadStorage(
	tx *boltdb.Tx,
	name string,
	maUn MarshalUnmarshaler,
) (*storage, error) {
	bucket := tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, ErrTableNotFound(name)
	}
	metadataBytes := bucket.Get(metadataKey)
	if metadataBytes == nil {
		return nil, ErrMetaDataNotFound(name)
	}
	s := &storage{
		name:   name,
		bucket: bucket,
		maUn:   maUn,
	}
	if err := GobMaUn.Unmarshal(metadataBytes, &s.metadata); err != nil {
		return nil, err
	}
	s.nameToIndex = make(map[string]int, len(s.metadata.Columns))
	for i, col := range s.metadata.Columns {
		s.nameToIndex[col] = i
	}
	return s, nil
}

func deleteStorage(tx *boltdb.Tx, name string) error {
	if tx.Bucket([]byte(name)) == nil {
		return ErrTableNotFound(name)
	}
	return tx.DeleteBucket([]byte(name))
}

func (s *storage) dataBucket() *boltdb.Bucket {
	return s.bucket.Bucket(dataBucketName)
}

func (s *storage) indexBucket(col int) *boltdb.Bucket {
	return s.bucket.Bucket(idxBucketName).Bucket(columnName(col))
}

func (s *storage) table() *Table {
	t := &Table{
		Name:    s.name,
		Columns: slices.Clone(s.metadata.Columns),
	}
	for i, isIndexed := range s.metadata.Indexed {
		if isIndexed {
			t.Indexed = append(t.Indexed, s.metadata.Columns[i])
		}
	}
	return t
}

func columnName(col int) []byte {
	var name [4]byte
	binary.BigEndian.PutUint32(name[:], uint32(col))
	return name[:]
}

func cellKey(id [8]byte, col int) []byte {
	var key [12]byte
	copy(key[0:8], id[:])
	binary.BigEndian.PutUint32(key[8:12], uint32(col))
	return key[:]
}

func rowID(id uint64) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b
}

func indexKey(vKey []byte, id [8]byte) []byte {
	compositeKey := make([]byte, len(vKey)+8)
	copy(compositeKey, vKey)
	copy(compositeKey[len(vKey):], id[:])
	return compositeKey
}

// Insert stores one value per column read from row.
func (s *storage) Insert(row Row) (uint64, error) {
	if row.Len() != len(s.metadata.Columns) {
		return 0, ErrColumnCountMismatch(len(s.metadata.Columns), row.Len())
	}
	values := make([]any, len(s.metadata.Columns))
	for i, col := range s.metadata.Columns {
		v, err := row.Get(col)
		if err != nil {
			return 0, err
		}
		if values[i], err = plainValue(v); err != nil {
			return 0, err
		}
	}
	seq, err := s.dataBucket().NextSequence()
	if err != nil {
		return 0, err
	}
	id := rowID(seq)
	for i, v := range values {
		vBytes, err := s.maUn.Marshal(v)
		if err != nil {
			return 0, err
		}
		if err := s.dataBucket().Put(cellKey(id, i), vBytes); err != nil {
			return 0, err
		}
	}
	for i, isIndexed := range s.metadata.Indexed {
		if !isIndexed {
			continue
		}
		vKey, err := ToKey(values[i])
		if err != nil {
			return 0, err
		}
		if err := s.indexBucket(i).Put(indexKey(vKey, id), nil); err != nil {
			return 0, err
		}
	}
	return seq, nil
}

func (s *storage) exists(id [8]byte) bool {
	return s.dataBucket().Get(cellKey(id, 0)) != nil
}

func (s *storage) Get(id uint64) (Row, error) {
	idBytes := rowID(id)
	if !s.exists(idBytes) {
		return nil, ErrRowNotFound(s.name, id)
	}
	return &storedRow{storage: s, id: idBytes}, nil
}

// Scan walks every row in id order. Cells of one row are adjacent, so a
// row starts at each column 0 cell.
func (s *storage) Scan() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		c := s.dataBucket().Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if binary.BigEndian.Uint32(k[8:12]) != 0 {
				continue
			}
			var id [8]byte
			copy(id[:], k[0:8])
			if !yield(&storedRow{storage: s, id: id}, nil) {
				return
			}
		}
	}
}

// Lookup walks the rows whose column col equals value, using its index.
func (s *storage) Lookup(col int, value any) (iter.Seq2[Row, error], error) {
	vKey, err := ToKey(value)
	if err != nil {
		return nil, err
	}
	return func(yield func(Row, error) bool) {
		c := s.indexBucket(col).Cursor()
		for k, _ := c.Seek(vKey); k != nil && len(k) == len(vKey)+8 && bytes.HasPrefix(k, vKey); k, _ = c.Next() {
			var id [8]byte
			copy(id[:], k[len(vKey):])
			if !s.exists(id) {
				// stale entry left by a value whose decoded form keys differently
				continue
			}
			if !yield(&storedRow{storage: s, id: id}, nil) {
				return
			}
		}
	}, nil
}

func (s *storage) Delete(id uint64) error {
	idBytes := rowID(id)
	if !s.exists(idBytes) {
		return ErrRowNotFound(s.name, id)
	}
	for i, isIndexed := range s.metadata.Indexed {
		if !isIndexed {
			continue
		}
		v, err := decodeValue(s.maUn, s.dataBucket().Get(cellKey(idBytes, i)))
		if err != nil {
			return err
		}
		vKey, err := ToKey(v)
		if err != nil {
			return err
		}
		if err := s.indexBucket(i).Delete(indexKey(vKey, idBytes)); err != nil {
			return err
		}
	}
	for i := range s.metadata.Columns {
		if err := s.dataBucket().Delete(cellKey(idBytes, i)); err != nil {
			return err
		}
	}
	return nil
}

// storedRow reads its cells from the table's bucket on every lookup. It is
// valid only while the transaction that produced it is open.
type storedRow struct {
	storage *storage
	id      [8]byte
}

func (sr *storedRow) Get(key string) (any, error) {
	idx, ok := sr.storage.nameToIndex[key]
	if !ok {
		return nil, ErrKeyNotFound(key)
	}
	raw := sr.storage.dataBucket().Get(cellKey(sr.id, idx))
	if raw == nil {
		return nil, ErrRowNotFound(sr.storage.name, sr.ID())
	}
	return decodeValue(sr.storage.maUn, raw)
}

func (sr *storedRow) Keys() iter.Seq[string] {
	return slices.Values(sr.storage.metadata.Columns)
}

func (sr *storedRow) Len() int {
	return len(sr.storage.metadata.Columns)
}

func (sr *storedRow) ID() uint64 {
	return binary.BigEndian.Uint64(sr.id[:])
}

// RowID returns the store id of a row produced by a Tx.
func RowID(r Row) (uint64, bool) {
	sr, ok := unwrap(r).(*storedRow)
	if !ok {
		return 0, false
	}
	return sr.ID(), true
}

func init() {
	gob.Register(tableMetadata{})
}
