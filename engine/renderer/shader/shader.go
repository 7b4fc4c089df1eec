package shader

import (
	"fmt"
	"log"
	"sync"

	"github.com/gogpu/naga"
)

// CompileError reports a shader variant that failed to compile. Variant
// compilation failures are programming errors in the generator or an
// unsupported driver; the renderer treats them as fatal for the frame and
// surfaces the full key and diagnostic instead of drawing garbage.
type CompileError struct {
	// Key is the normalized variant key that failed.
	Key VariantKey

	// Diagnostic is the compiler output.
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader variant [%s] failed to compile: %s", e.Key, e.Diagnostic)
}

// variant is the implementation of the Variant interface.
type variant struct {
	key    VariantKey
	source string
	spirv  []byte
}

// Variant is one compiled shader program: generated WGSL plus the SPIR-V
// produced while validating it. Variants are immutable and shared by every
// draw whose normalized key matches.
type Variant interface {
	// Key returns the normalized variant key.
	//
	// Returns:
	//   - VariantKey: the key this variant was compiled for
	Key() VariantKey

	// Source returns the generated WGSL module source.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// SPIRV returns the SPIR-V translation produced during validation.
	// Backends consuming WGSL directly may ignore it.
	//
	// Returns:
	//   - []byte: the SPIR-V binary
	SPIRV() []byte

	// HasFragment reports whether the module contains a fragment entry point.
	//
	// Returns:
	//   - bool: true if fs_main exists
	HasFragment() bool
}

var _ Variant = &variant{}

func (v *variant) Key() VariantKey {
	return v.key
}

func (v *variant) Source() string {
	return v.source
}

func (v *variant) SPIRV() []byte {
	return v.spirv
}

func (v *variant) HasFragment() bool {
	return HasFragmentStage(v.key)
}

// selectorImpl is the implementation of the Selector interface.
type selectorImpl struct {
	mu       *sync.Mutex
	variants map[VariantKey]*variant
}

// Selector generates, compiles, and caches shader variants. Lookup keys are
// normalized first, so draws that differ only on axes irrelevant to their pass
// share one variant. Compilation failures are returned as *CompileError and
// are never cached: a later call retries the compile.
type Selector interface {
	// Variant returns the compiled variant for a key, generating and
	// compiling it on first use.
	//
	// Parameters:
	//   - key: the variant key (normalized internally)
	//
	// Returns:
	//   - Variant: the compiled variant
	//   - error: a *CompileError if generation or validation failed
	Variant(key VariantKey) (Variant, error)

	// Count returns the number of cached variants.
	//
	// Returns:
	//   - int: the cache size
	Count() int

	// Clear drops every cached variant. Subsequent lookups recompile.
	Clear()
}

var _ Selector = &selectorImpl{}

// NewSelector creates an empty variant selector.
//
// Returns:
//   - Selector: the newly created selector
func NewSelector() Selector {
	return &selectorImpl{
		mu:       &sync.Mutex{},
		variants: make(map[VariantKey]*variant),
	}
}

func (s *selectorImpl) Variant(key VariantKey) (Variant, error) {
	key = key.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.variants[key]; ok {
		return v, nil
	}

	source := GenerateWGSL(key)
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, &CompileError{Key: key, Diagnostic: err.Error()}
	}

	v := &variant{
		key:    key,
		source: source,
		spirv:  spirv,
	}
	s.variants[key] = v
	log.Printf("shader: compiled variant [%s] (%d cached)", key, len(s.variants))
	return v, nil
}

func (s *selectorImpl) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.variants)
}

func (s *selectorImpl) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants = make(map[VariantKey]*variant)
}
