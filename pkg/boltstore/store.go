// Package boltstore persists user records and world snapshots in a bbolt
// database. User writes are write-through: every mutation lands in bolt
// before the call returns. World snapshots are taken periodically and on
// shutdown so item placement and container state survive restarts.
package boltstore

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/textspot/textspot/pkg/world"
)

// Store wraps a bbolt database holding user records and the world snapshot.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketUsers, bucketRooms, bucketItems, bucketBots} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		b := tx.Bucket(bucketMeta)
		if b.Get(keyFormat) == nil {
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, formatVersion)
			return b.Put(keyFormat, buf)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// PutUser persists a single user record (write-through).
func (s *Store) PutUser(rec world.UserRecord) error {
	data, err := encodeUser(&rec)
	if err != nil {
		return fmt.Errorf("boltstore: encode user %q: %w", rec.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).Put(userKey(rec.Name), data)
	})
}

// GetUser looks up a user record by name.
func (s *Store) GetUser(name string) (world.UserRecord, bool, error) {
	var rec *world.UserRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get(userKey(name))
		if data == nil {
			return nil
		}
		var err error
		rec, err = decodeUser(data)
		return err
	})
	if err != nil {
		return world.UserRecord{}, false, fmt.Errorf("boltstore: get user %q: %w", name, err)
	}
	if rec == nil {
		return world.UserRecord{}, false, nil
	}
	return *rec, true, nil
}

// DeleteUser removes a user record.
func (s *Store) DeleteUser(name string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).Delete(userKey(name))
	})
}

// LoadUsers reads all user records from bolt.
func (s *Store) LoadUsers() ([]world.UserRecord, error) {
	var recs []world.UserRecord
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			rec, err := decodeUser(v)
			if err != nil {
				return fmt.Errorf("decode user %q: %w", string(k), err)
			}
			recs = append(recs, *rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load users: %w", err)
	}
	return recs, nil
}

// UserCount returns the number of stored user records.
func (s *Store) UserCount() int {
	count := 0
	s.bolt.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketUsers).Stats().KeyN
		return nil
	})
	return count
}

// SaveWorld snapshots the entire world into bolt in a single transaction,
// replacing any previous snapshot.
func (s *Store) SaveWorld(w *world.World) error {
	rooms, items, bots := w.Dump()
	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketRooms, bucketItems, bucketBots} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		rb := tx.Bucket(bucketRooms)
		for _, r := range rooms {
			data, err := encodeRoom(r)
			if err != nil {
				return fmt.Errorf("encode room %q: %w", r.ID, err)
			}
			if err := rb.Put([]byte(r.ID), data); err != nil {
				return err
			}
		}
		ib := tx.Bucket(bucketItems)
		for _, it := range items {
			data, err := encodeItem(it)
			if err != nil {
				return fmt.Errorf("encode item %q: %w", it.ID, err)
			}
			if err := ib.Put([]byte(it.ID), data); err != nil {
				return err
			}
		}
		bb := tx.Bucket(bucketBots)
		for _, b := range bots {
			data, err := encodeBot(b)
			if err != nil {
				return fmt.Errorf("encode bot %q: %w", b.ID, err)
			}
			if err := bb.Put([]byte(b.ID), data); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(time.Now().Unix()))
		return meta.Put(keySavedAt, buf)
	})
	if err != nil {
		return fmt.Errorf("boltstore: save world: %w", err)
	}
	log.Printf("boltstore: saved %d rooms, %d items, %d bots", len(rooms), len(items), len(bots))
	return nil
}

// LoadWorld rebuilds a world from the stored snapshot. Returns false if no
// snapshot has been saved yet.
func (s *Store) LoadWorld() (*world.World, bool, error) {
	w := world.New()
	count := 0
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketRooms).ForEach(func(k, v []byte) error {
			r, err := decodeRoom(v)
			if err != nil {
				return fmt.Errorf("decode room %q: %w", string(k), err)
			}
			w.AddRoom(r)
			count++
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			it, err := decodeItem(v)
			if err != nil {
				return fmt.Errorf("decode item %q: %w", string(k), err)
			}
			w.AddItem(it)
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketBots).ForEach(func(k, v []byte) error {
			b, err := decodeBot(v)
			if err != nil {
				return fmt.Errorf("decode bot %q: %w", string(k), err)
			}
			w.AddBot(b)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("boltstore: load world: %w", err)
	}
	if count == 0 {
		return nil, false, nil
	}
	if err := w.Validate(); err != nil {
		return nil, false, fmt.Errorf("boltstore: stored world is inconsistent: %w", err)
	}
	return w, true, nil
}

// SavedAt returns the time of the last world snapshot, or zero if none.
func (s *Store) SavedAt() time.Time {
	var t time.Time
	s.bolt.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keySavedAt); v != nil {
			t = time.Unix(int64(binary.BigEndian.Uint64(v)), 0)
		}
		return nil
	})
	return t
}

// SetWorldDir records the world directory the snapshot was built from, so a
// changed directory on restart invalidates the snapshot.
func (s *Store) SetWorldDir(dir string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyWorldDir, []byte(dir))
	})
}

// WorldDir returns the recorded world directory, or "".
func (s *Store) WorldDir() string {
	var dir string
	s.bolt.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyWorldDir); v != nil {
			dir = string(v)
		}
		return nil
	})
	return dir
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		if _, err := tx.WriteTo(f); err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return nil
	})
}
