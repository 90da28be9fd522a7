// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/garage/storage"
)

// LoadCallback is invoked once per storage unit when it finishes opening.
// err is nil on success. Calls are serialized.
type LoadCallback func(desc storage.Description, err error)

type loader struct {
	poolSize int
	logger   *slog.Logger
}

// LoadOption configures LoadStores.
type LoadOption func(*loader) error

// WithPoolSize sets how many units are opened concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) LoadOption {
	return func(l *loader) error {
		if size < 1 {
			size = 1
		}
		l.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) LoadOption {
	return func(l *loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// LoadStores opens every described storage unit on a worker pool and returns
// a RecordStore spanning them, in description order. callback, if not nil,
// is invoked once per unit. The store is returned only after every unit has
// reported; if any unit fails, the units that did open are closed again and
// the failures are returned joined.
func LoadStores(ctx context.Context, descs []storage.Description, callback LoadCallback, opts ...LoadOption) (*RecordStore, error) {
	if err := storage.ValidateDescriptions(descs); err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	l := &loader{poolSize: poolSize, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(min(l.poolSize, len(descs)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		backends = make([]*Backend, len(descs))
		errs     = make([]error, len(descs))
	)
	report := func(i int, backend *Backend, err error) {
		mu.Lock()
		defer mu.Unlock()
		backends[i] = backend
		if err != nil {
			errs[i] = fmt.Errorf("unit %s: %w", descs[i].Name, err)
			l.logger.ErrorContext(ctx, "failed to open storage unit", "unit", descs[i].Name, "err", err)
		} else {
			l.logger.DebugContext(ctx, "opened storage unit", "unit", descs[i].Name, "format", descs[i].Format)
		}
		if callback != nil {
			callback(descs[i], err)
		}
	}

	for i, desc := range descs {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			backend, err := openUnit(desc, l.logger)
			report(i, backend, err)
		})
		if submitErr != nil {
			wg.Done()
			report(i, nil, submitErr)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		for _, backend := range backends {
			if backend != nil {
				backend.Close()
			}
		}
		return nil, err
	}

	return NewRecordStore(descs, backends, l.logger)
}
