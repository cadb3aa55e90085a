// Package blocklog implements the append-only, irreversible block store of
// spec.md §4.2: sequential on-disk blocks with a sidecar height index,
// random access by height and by id.
//
// Grounded on beacon-chain/db/kv's bbolt usage (github.com/prysmaticlabs/prysm):
// one bucket maps height -> block bytes, a second maps id -> height, both
// written inside a single bbolt.Update transaction per Append so a crash
// mid-append can't leave the index and the payload disagreeing.
package blocklog

import (
	"encoding/binary"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var log = logrus.WithField("prefix", "blocklog")

// hotCacheSize bounds the in-process recently-read block cache sitting in
// front of bbolt, matching beacon-chain/db/kv's hot-state cache role.
const hotCacheSize = 1024

var (
	bucketBlocksByHeight = []byte("blocks-by-height")
	bucketHeightByID      = []byte("height-by-id")
	bucketMeta            = []byte("meta")
	keyHead                = []byte("head")
)

// StoredBlock is the minimal persisted shape of an irreversible block: the
// header fields needed for random access plus the raw transaction payload,
// which the chain controller (de)serializes.
type StoredBlock struct {
	Header types.BlockID
	Num    uint32
	Raw    []byte
}

// Log is an append-only sequence of irreversible blocks.
type Log struct {
	db  *bolt.DB
	hot *lru.Cache // height -> StoredBlock
}

// Open opens (creating if absent) the block log at path.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening block log")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBlocksByHeight, bucketHeightByID, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initializing block log buckets")
	}
	hot, err := lru.New(hotCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "allocating block log hot cache")
	}
	return &Log{db: db, hot: hot}, nil
}

// Close releases the underlying file handle.
func (l *Log) Close() error { return l.db.Close() }

func heightKey(h uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, h)
	return buf
}

// Append writes blk as the next irreversible block. The caller is
// responsible for only ever appending in strictly increasing height order;
// Append enforces this and returns a Consensus-kind error otherwise (spec.md
// §7: "chain-state-does-not-match-block-log" is the broader version of this
// check performed at Open/reindex time).
func (l *Log) Append(blk StoredBlock) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if head := meta.Get(keyHead); head != nil {
			headNum := binary.BigEndian.Uint32(head)
			if blk.Num != headNum+1 {
				return errs.New(errs.KindConsensus, "block log append out of order")
			}
		} else if blk.Num != 1 {
			return errs.New(errs.KindConsensus, "block log must start at height 1")
		}

		payload, err := json.Marshal(blk)
		if err != nil {
			return errors.Wrap(err, "encoding block")
		}
		if err := tx.Bucket(bucketBlocksByHeight).Put(heightKey(blk.Num), payload); err != nil {
			return err
		}
		if err := tx.Bucket(bucketHeightByID).Put(blk.Header[:], heightKey(blk.Num)); err != nil {
			return err
		}
		return meta.Put(keyHead, heightKey(blk.Num))
	})
	if err == nil {
		l.hot.Add(blk.Num, blk)
	}
	return err
}

// Head returns the most recently appended block, and ok=false if the log is
// empty.
func (l *Log) Head() (StoredBlock, bool, error) {
	var out StoredBlock
	found := false
	err := l.db.View(func(tx *bolt.Tx) error {
		head := tx.Bucket(bucketMeta).Get(keyHead)
		if head == nil {
			return nil
		}
		raw := tx.Bucket(bucketBlocksByHeight).Get(head)
		if raw == nil {
			return errs.New(errs.KindFatal, "block log corruption: head pointer with no payload")
		}
		found = true
		return json.Unmarshal(raw, &out)
	})
	return out, found, err
}

// ByHeight returns the block at the given height.
func (l *Log) ByHeight(height uint32) (StoredBlock, bool, error) {
	if cached, ok := l.hot.Get(height); ok {
		return cached.(StoredBlock), true, nil
	}
	var out StoredBlock
	found := false
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketBlocksByHeight).Get(heightKey(height))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &out)
	})
	if err == nil && found {
		l.hot.Add(height, out)
	}
	return out, found, err
}

// ByID returns the block with the given id.
func (l *Log) ByID(id types.BlockID) (StoredBlock, bool, error) {
	var out StoredBlock
	found := false
	var height uint32
	err := l.db.View(func(tx *bolt.Tx) error {
		heightRaw := tx.Bucket(bucketHeightByID).Get(id[:])
		if heightRaw == nil {
			return nil
		}
		height = binary.BigEndian.Uint32(heightRaw)
		if cached, ok := l.hot.Get(height); ok {
			out, found = cached.(StoredBlock), true
			return nil
		}
		raw := tx.Bucket(bucketBlocksByHeight).Get(heightRaw)
		if raw == nil {
			return errs.New(errs.KindFatal, "block log corruption: id index with no payload")
		}
		found = true
		return json.Unmarshal(raw, &out)
	})
	if err == nil && found {
		l.hot.Add(height, out)
	}
	return out, found, err
}

// ForEach iterates every block in height order, stopping early if fn
// returns false. Used by reindex (spec.md §6: "reindex deletes the object
// store, re-applies every block from the log").
func (l *Log) ForEach(fn func(StoredBlock) (bool, error)) error {
	return l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBlocksByHeight).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var blk StoredBlock
			if err := json.Unmarshal(v, &blk); err != nil {
				return err
			}
			cont, err := fn(blk)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

// VerifyHead checks the log's on-disk head id against expected, returning a
// Consensus-kind error on mismatch per spec.md §4.2's corruption-detection
// failure mode ("corruption is detected on open (head id mismatch) and
// triggers a reindex").
func (l *Log) VerifyHead(expected types.BlockID) error {
	head, ok, err := l.Head()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if head.Header != expected {
		log.WithFields(logrus.Fields{
			"log_head":   head.Header,
			"store_head": expected,
		}).Error("block log head does not match object store head; reindex required")
		return errs.New(errs.KindConsensus, "block log head mismatch")
	}
	return nil
}
