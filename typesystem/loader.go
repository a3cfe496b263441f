// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package typesystem

import (
	"os"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
	pe "github.com/saferwall/clrts"
)

// Loader turns a parsed CLI/ECMA-335 module into a frozen *Assembly (§6).
// A Loader instance is safe to reuse across modules, but not to call
// LoadModule on concurrently with itself — it carries an in-flight guard
// that returns ErrConcurrentLoad instead of silently interleaving two
// loads' interner state.
type Loader struct {
	opts    Options
	logger  *log.Helper
	loading int32
}

// NewLoader builds a Loader. A nil logger falls back to an error-level
// stdout logger, mirroring clrts's own File.New default (file.go).
func NewLoader(opts Options, logger log.Logger) *Loader {
	var helper *log.Helper
	if logger == nil {
		helper = log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stdout),
			log.FilterLevel(log.LevelError)))
	} else {
		helper = log.NewHelper(logger)
	}
	return &Loader{opts: opts, logger: helper}
}

// LoadModule builds an Assembly from an already-parsed clrts module. file
// must have completed Parse() (its CLR metadata tables populated) before
// being passed here; LoadModule does no parsing of its own.
func (l *Loader) LoadModule(file *pe.File) (*Assembly, error) {
	if file == nil {
		return nil, ErrNilModule
	}
	if !atomic.CompareAndSwapInt32(&l.loading, 0, 1) {
		return nil, ErrConcurrentLoad
	}
	defer atomic.StoreInt32(&l.loading, 0)

	if file.CLR.MetadataTables == nil {
		l.logger.Errorf("typesystem: module has no parsed CLR metadata tables")
		return nil, ErrNilModule
	}

	src := newSource(file)

	// Top-level types' shallow half always builds through the real
	// interner; only a lazy type's deferred finish() step swaps in
	// dummyPool (assembly.go, lazy.go), since that step alone can run
	// concurrently with another lazy type's finish.
	driver := newAssemblyDriver(l.opts, newInterner(), src)
	asm, err := driver.Load()
	if err != nil {
		l.logger.Debugf("typesystem: load failed: %v", err)
		return nil, err
	}

	l.opts.notify(EntityAssembly, asm)
	return asm, nil
}

// LoadAssemblyFile opens, maps, parses, and loads name in one call — the
// typesystem analog of clrts's own File.New, for callers that don't already
// hold a parsed *pe.File (§6).
func LoadAssemblyFile(name string, opts Options) (*Assembly, error) {
	file, err := pe.New(name, &pe.Options{Fast: false})
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := file.Parse(); err != nil {
		return nil, err
	}

	asm, err := NewLoader(opts, nil).LoadModule(file)
	if err != nil {
		return nil, err
	}
	asm.Location = name
	return asm, nil
}
