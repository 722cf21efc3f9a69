package store

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/p2pclaw/hive/lib"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	keySeparator     = "\x00"           // separates the path from the leaf name inside a badger key
	badgerGCRatio    = .15              // the ratio when badgerDB will run the garbage collector
	badgerGCInterval = 10 * time.Minute // how often the value log garbage collector is attempted
	conflictRetries  = 5                // optimistic transaction retries on write conflicts

	encodedValue  = "v"
	encodedTS     = "ts"
	encodedOrigin = "o"
)

// ReplicaI interface enforcement
var _ ReplicaI = &BadgerReplica{}

/*
BadgerReplica is the node's local replica. Every leaf is its own badger key ('<path>\x00<field>') so a partial
put only touches the leaves it names. The value is a protobuf encoded structpb.Struct carrying the leaf value,
its timestamp and its origin; the timestamp travels as a decimal string since structpb numbers are doubles.
*/
type BadgerReplica struct {
	id   string
	db   *badger.DB
	log  lib.LoggerI
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewBadgerReplica() opens (or creates) the local replica using the store config
func NewBadgerReplica(id string, config lib.StoreConfig, log lib.LoggerI) (*BadgerReplica, lib.ErrorI) {
	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(config.DataDirPath, config.DBName)).
			WithValueLogFileSize(config.ValueLogMaxSize)
	}
	opts = opts.WithLogger(&badgerLogger{log: log}).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	b := &BadgerReplica{id: id, db: db, log: log, stop: make(chan struct{})}
	if !config.InMemory {
		b.wg.Add(1)
		go b.garbageCollect()
	}
	return b, nil
}

// ID() returns the replica id
func (b *BadgerReplica) ID() string { return b.id }

// Put() merges the leaves into the path inside one transaction
func (b *BadgerReplica) Put(_ context.Context, path string, fields Fields) lib.ErrorI {
	// encode outside the transaction so a retry doesn't re-encode
	encoded := make(map[string][]byte, len(fields))
	for name, f := range fields {
		bz, e := encodeField(f)
		if e != nil {
			return ErrEncodeField(name, e)
		}
		encoded[name] = bz
	}
	var err error
	for i := 0; i < conflictRetries; i++ {
		err = b.db.Update(func(txn *badger.Txn) error {
			for name, f := range fields {
				key := []byte(path + keySeparator + name)
				// keep the stored leaf if it wins
				item, e := txn.Get(key)
				switch {
				case e == nil:
					stored, de := decodeItem(item)
					if de != nil {
						return de
					}
					if !f.Newer(stored) {
						continue
					}
				case !errors.Is(e, badger.ErrKeyNotFound):
					return e
				}
				if e = txn.Set(key, encoded[name]); e != nil {
					return e
				}
			}
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return ErrStoreSet(err)
	}
	return nil
}

// Get() returns the leaves at the path
func (b *BadgerReplica) Get(_ context.Context, path string) (Fields, lib.ErrorI) {
	var out Fields
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(path + keySeparator)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			f, e := decodeItem(item)
			if e != nil {
				return e
			}
			if out == nil {
				out = make(Fields)
			}
			out[strings.TrimPrefix(string(item.Key()), path+keySeparator)] = f
		}
		return nil
	})
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return out, nil
}

// Children() returns the leaves of every direct child of the path
func (b *BadgerReplica) Children(_ context.Context, path string) (map[string]Fields, lib.ErrorI) {
	out := make(map[string]Fields)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(path + lib.PathSeparator)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			childPath, field, found := strings.Cut(string(item.Key()), keySeparator)
			if !found {
				continue
			}
			// skip grandchildren
			child, ok := childOf(path, childPath)
			if !ok {
				continue
			}
			f, e := decodeItem(item)
			if e != nil {
				return e
			}
			if out[child] == nil {
				out[child] = make(Fields)
			}
			out[child][field] = f
		}
		return nil
	})
	if err != nil {
		return nil, ErrStoreIterate(err)
	}
	return out, nil
}

// Close() stops the garbage collector and closes the database
func (b *BadgerReplica) Close() lib.ErrorI {
	close(b.stop)
	b.wg.Wait()
	if err := b.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}

// garbageCollect() periodically reclaims value log space
func (b *BadgerReplica) garbageCollect() {
	defer b.wg.Done()
	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			// run until there's nothing left to rewrite
			for b.db.RunValueLogGC(badgerGCRatio) == nil {
			}
		}
	}
}

// encodeField() encodes a leaf as a protobuf struct
func encodeField(f Field) ([]byte, error) {
	v, err := structpb.NewValue(f.Value)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		encodedValue:  v,
		encodedTS:     structpb.NewStringValue(strconv.FormatInt(f.TS, 10)),
		encodedOrigin: structpb.NewStringValue(f.Origin),
	}})
}

// decodeField() decodes a leaf from its protobuf struct
func decodeField(bz []byte) (Field, error) {
	s := new(structpb.Struct)
	if err := proto.Unmarshal(bz, s); err != nil {
		return Field{}, err
	}
	ts, err := strconv.ParseInt(s.GetFields()[encodedTS].GetStringValue(), 10, 64)
	if err != nil {
		return Field{}, err
	}
	return Field{
		Value:  s.GetFields()[encodedValue].AsInterface(),
		TS:     ts,
		Origin: s.GetFields()[encodedOrigin].GetStringValue(),
	}, nil
}

// decodeItem() decodes the value of a badger item
func decodeItem(item *badger.Item) (f Field, err error) {
	err = item.Value(func(val []byte) error {
		f, err = decodeField(val)
		return err
	})
	if err != nil {
		return Field{}, ErrDecodeField(err)
	}
	return
}

// badgerLogger adapts the node logger to badger's Logger interface
type badgerLogger struct{ log lib.LoggerI }

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.log.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.log.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }
