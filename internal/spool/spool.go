// Package spool persists undelivered upload batches on disk so they survive
// a restart.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/vmihailenco/msgpack.v2"
)

const suffix = ".batch"

// Batch is a serialized upload payload waiting for delivery.
type Batch struct {
	ID        string `msgpack:"id"`
	SessionID string `msgpack:"sessionId"`
	CreatedAt int64  `msgpack:"createdAt"`
	Count     int    `msgpack:"count"`
	Payload   []byte `msgpack:"payload"`
}

type Spool struct {
	dir      string
	maxFiles int
	mutex    sync.Mutex
}

// Open creates dir when missing. maxFiles bounds the number of stored batches;
// the oldest are discarded first. Zero means unbounded.
func Open(dir string, maxFiles int) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "sessionreplay: create persistence dir %s", dir)
	}
	return &Spool{dir: dir, maxFiles: maxFiles}, nil
}

func (s *Spool) Dir() string {
	return s.dir
}

// Write stores b atomically.
func (s *Spool) Write(b *Batch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := msgpack.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "sessionreplay: encode batch")
	}

	name := filepath.Join(s.dir, fileName(b))
	tmp, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return errors.Wrap(err, "sessionreplay: persist batch")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "sessionreplay: persist batch")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "sessionreplay: persist batch")
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "sessionreplay: persist batch")
	}
	return s.trim()
}

// List returns stored batches oldest first. Unreadable files are removed and
// reported in errs.
func (s *Spool) List() (batches []*Batch, errs []error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	names, err := s.names()
	if err != nil {
		return nil, []error{err}
	}
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "sessionreplay: read batch %s", name))
			continue
		}
		b := &Batch{}
		if err := msgpack.Unmarshal(data, b); err != nil {
			errs = append(errs, errors.Wrapf(err, "sessionreplay: decode batch %s", name))
			os.Remove(path)
			continue
		}
		batches = append(batches, b)
	}
	return batches, errs
}

// Remove deletes a delivered batch.
func (s *Spool) Remove(b *Batch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := os.Remove(filepath.Join(s.dir, fileName(b)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "sessionreplay: remove batch %s", b.ID)
	}
	return nil
}

func (s *Spool) names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "sessionreplay: list %s", s.dir)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Spool) trim() error {
	if s.maxFiles <= 0 {
		return nil
	}
	names, err := s.names()
	if err != nil {
		return err
	}
	for len(names) > s.maxFiles {
		if err := os.Remove(filepath.Join(s.dir, names[0])); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "sessionreplay: trim persisted batches")
		}
		names = names[1:]
	}
	return nil
}

// zero padded so lexical order is creation order
func fileName(b *Batch) string {
	return fmt.Sprintf("%020d-%s%s", b.CreatedAt, b.ID, suffix)
}
