package linker

// Per-module side-effect determination. A module the scan stage analyzed
// as side-effect free is still side-effectful if any of its static imports
// resolves to a side-effectful module, so the answer propagates through
// the import graph. The memo has three states to terminate cycles: a
// module currently being visited answers with its own pre-propagation
// value.

import "github.com/tinypack/tinypack/internal/graph"

type sideEffectCacheState uint8

const (
	sideEffectCacheNone sideEffectCacheState = iota
	sideEffectCacheVisiting
	sideEffectCacheDone
)

type sideEffectCacheEntry struct {
	value graph.SideEffects
	state sideEffectCacheState
}

func (c *linkerContext) determineSideEffects() {
	cache := make([]sideEffectCacheEntry, len(c.graph.Modules))
	for sourceIndex := range c.graph.Modules {
		sideEffects := c.determineSideEffectsForModule(uint32(sourceIndex), cache)
		if _, ok := c.graph.Modules[sourceIndex].Normal(); ok {
			c.graph.Modules[sourceIndex].SideEffects = sideEffects
		}
	}
}

func (c *linkerContext) determineSideEffectsForModule(
	sourceIndex uint32,
	cache []sideEffectCacheEntry,
) graph.SideEffects {
	module := &c.graph.Modules[sourceIndex]

	switch cache[sourceIndex].state {
	case sideEffectCacheNone:
		cache[sourceIndex].state = sideEffectCacheVisiting
	case sideEffectCacheVisiting:
		return module.SideEffects
	case sideEffectCacheDone:
		return cache[sourceIndex].value
	}

	sideEffects := module.SideEffects
	if sideEffects.Kind == graph.SideEffectsAnalyzed && !sideEffects.Value {
		if _, ok := module.Normal(); ok {
			value := false
			for _, record := range *module.Repr.ImportRecords() {
				if !record.Kind.IsStatic() || !record.SourceIndex.IsValid() {
					continue
				}
				if c.determineSideEffectsForModule(record.SourceIndex.GetIndex(), cache).Has() {
					value = true
					break
				}
			}
			result := graph.SideEffects{Kind: graph.SideEffectsAnalyzed, Value: value}
			cache[sourceIndex] = sideEffectCacheEntry{state: sideEffectCacheDone, value: result}
			return result
		}
	}

	cache[sourceIndex] = sideEffectCacheEntry{state: sideEffectCacheDone, value: sideEffects}
	return sideEffects
}
