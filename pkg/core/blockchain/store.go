package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/anchorcoin/anchord/pkg/core/types"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

var (
	ErrHeaderNotFoundInStore = errors.New("header not found in store")
	ErrCorruptRecord         = errors.New("corrupt header record")
)

// StoredHeader is a header as persisted, with its hash and height.
type StoredHeader struct {
	Hash   types.Hash
	Height int64
	Header types.BlockHeader
}

// BlockStore defines the interface for persistent header storage.
type BlockStore interface {
	SaveHeader(rec StoredHeader) error
	GetHeader(hash types.Hash) (StoredHeader, error)
	ForEachHeader(fn func(StoredHeader) error) error
	// UpdateMainChain records hashes as the best chain from height start
	// on, forgets best-chain entries above the new tip up to oldTip and
	// moves the head to the last hash.
	UpdateMainChain(start int64, hashes []types.Hash, oldTip int64) error
	MainHashAtHeight(height int64) (types.Hash, error)
	GetHead() (types.Hash, error)
	Close() error
}

// BadgerStore implements BlockStore using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates or opens a BadgerDB store at the given path.
// If path is empty, it opens an in-memory store (for testing).
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	// Reduce logging noise
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open block store %q", path)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Keys:
// Header by hash:      "header:" | hash(32) -> height(8, LE) | header(80)
// Best chain by height: "main:height:<height>" -> hash
// Head:                "chain:head" -> hash

const headerPrefix = "header:"

func headerKey(hash types.Hash) []byte {
	return append([]byte(headerPrefix), hash[:]...)
}

func mainKey(height int64) []byte {
	return []byte(fmt.Sprintf("main:height:%d", height))
}

var headKey = []byte("chain:head")

func encodeRecord(rec StoredHeader) []byte {
	buf := make([]byte, 8, 8+types.BlockHeaderSize)
	binary.LittleEndian.PutUint64(buf, uint64(rec.Height))
	return append(buf, rec.Header.Serialize()...)
}

func decodeRecord(val []byte) (StoredHeader, error) {
	if len(val) != 8+types.BlockHeaderSize {
		return StoredHeader{}, errors.Wrapf(ErrCorruptRecord, "length %d", len(val))
	}
	header, err := types.DeserializeHeader(val[8:])
	if err != nil {
		return StoredHeader{}, errors.Wrap(ErrCorruptRecord, err.Error())
	}
	return StoredHeader{
		Height: int64(binary.LittleEndian.Uint64(val[:8])),
		Header: header,
	}, nil
}

func (s *BadgerStore) SaveHeader(rec StoredHeader) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(headerKey(rec.Hash), encodeRecord(rec))
	})
}

func (s *BadgerStore) GetHeader(hash types.Hash) (StoredHeader, error) {
	var rec StoredHeader
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerKey(hash))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrHeaderNotFoundInStore
			}
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = decodeRecord(val)
			return err
		})
	})
	if err != nil {
		return StoredHeader{}, err
	}
	rec.Hash = hash
	return rec, nil
}

func (s *BadgerStore) ForEachHeader(fn func(StoredHeader) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(headerPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != len(prefix)+types.HashSize {
				return errors.Wrapf(ErrCorruptRecord, "key length %d", len(key))
			}
			var rec StoredHeader
			err := item.Value(func(val []byte) error {
				var err error
				rec, err = decodeRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			copy(rec.Hash[:], key[len(prefix):])
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) UpdateMainChain(start int64, hashes []types.Hash, oldTip int64) error {
	if len(hashes) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for i, h := range hashes {
			if err := txn.Set(mainKey(start+int64(i)), h[:]); err != nil {
				return err
			}
		}
		newTip := start + int64(len(hashes)) - 1
		for height := newTip + 1; height <= oldTip; height++ {
			if err := txn.Delete(mainKey(height)); err != nil {
				return err
			}
		}
		head := hashes[len(hashes)-1]
		return txn.Set(headKey, head[:])
	})
}

func (s *BadgerStore) MainHashAtHeight(height int64) (types.Hash, error) {
	return s.getHash(mainKey(height))
}

func (s *BadgerStore) GetHead() (types.Hash, error) {
	return s.getHash(headKey)
}

func (s *BadgerStore) getHash(key []byte) (types.Hash, error) {
	var hash types.Hash
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrHeaderNotFoundInStore
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != types.HashSize {
				return errors.Wrapf(ErrCorruptRecord, "hash length %d", len(val))
			}
			copy(hash[:], val)
			return nil
		})
	})
	return hash, err
}
