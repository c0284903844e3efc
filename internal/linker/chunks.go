package linker

// Code splitting: every included module is assigned to a chunk identified
// by the set of entry points that reach it. Reachability runs over the
// distilled linking-metadata dependencies, not import records, because
// the tree shaker already folded symbol-level edges into them. Chunk
// naming and preliminary filenames also live here; hashes stay
// placeholders for the caller to materialize.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/helpers"
)

func (c *linkerContext) computeChunks() {
	g := c.graph
	entryCount := uint(len(g.EntryPoints))

	bitsToChunk := make(map[string]uint32, entryCount)
	c.entryModuleToChunk = make(map[uint32]uint32, entryCount)
	c.moduleToChunk = make([]ast.Index32, len(g.Modules))

	for i, entryPoint := range g.EntryPoints {
		bits := helpers.NewBitSet(entryCount)
		bits.SetBit(uint(i))
		chunkIndex := uint32(len(c.chunks))
		c.chunks = append(c.chunks, chunkInfo{
			entryBits:            bits,
			isEntryPoint:         true,
			isUserDefinedEntry:   entryPoint.Kind == graph.EntryPointUserDefined,
			entryBit:             uint(i),
			entrySourceIndex:     entryPoint.SourceIndex,
			name:                 entryPoint.Name,
			exportsToOtherChunks: make(map[ast.Ref]string),
			requireBindingNames:  make(map[uint32]string),
		})
		bitsToChunk[bits.String()] = chunkIndex
		c.entryModuleToChunk[entryPoint.SourceIndex] = chunkIndex
	}

	// Reachability bits, parallel over entries. Each entry computes its own
	// visited set; the sets are merged into per-module bit sets afterwards.
	visitedPerEntry := make([][]bool, len(g.EntryPoints))
	waitGroup := helpers.MakeThreadSafeWaitGroup()
	waitGroup.Add(1)
	for i := range g.EntryPoints {
		waitGroup.Add(1)
		go func(i int) {
			visited := make([]bool, len(g.Modules))
			c.visitDependencies(g.EntryPoints[i].SourceIndex, visited)
			visitedPerEntry[i] = visited
			waitGroup.Done()
		}(i)
	}
	waitGroup.Done()
	waitGroup.Wait()

	moduleBits := make([]helpers.BitSet, len(g.Modules))
	for sourceIndex := range g.Modules {
		if repr, ok := g.Modules[sourceIndex].Normal(); ok && repr.Flags.Has(graph.ModuleIncluded) {
			moduleBits[sourceIndex] = helpers.NewBitSet(entryCount)
		}
	}
	for i := range g.EntryPoints {
		for sourceIndex, visited := range visitedPerEntry[i] {
			if visited {
				moduleBits[sourceIndex].SetBit(uint(i))
			}
		}
	}

	// Assign each included module to the chunk its bit set names, creating
	// common chunks for bit sets no entry chunk owns
	for sourceIndex := range g.Modules {
		repr, ok := g.Modules[sourceIndex].Normal()
		if !ok || !repr.Flags.Has(graph.ModuleIncluded) {
			continue
		}
		bits := moduleBits[sourceIndex]
		if bits.IsEmpty() {
			// An included module must be reachable from some entry
			panic("Internal error")
		}
		key := bits.String()
		chunkIndex, ok := bitsToChunk[key]
		if !ok {
			chunkIndex = uint32(len(c.chunks))
			c.chunks = append(c.chunks, chunkInfo{
				entryBits:            bits,
				exportsToOtherChunks: make(map[ast.Ref]string),
				requireBindingNames:  make(map[uint32]string),
			})
			bitsToChunk[key] = chunkIndex
		}
		c.chunks[chunkIndex].filesInChunk = append(c.chunks[chunkIndex].filesInChunk, uint32(sourceIndex))
		c.moduleToChunk[sourceIndex] = ast.MakeIndex32(chunkIndex)
	}

	for chunkIndex := range c.chunks {
		files := c.chunks[chunkIndex].filesInChunk
		sort.Slice(files, func(i int, j int) bool {
			return g.Modules[files[i]].ExecOrder < g.Modules[files[j]].ExecOrder
		})
	}

	c.computeChunkExecOrder()
	c.computeChunkNames()
}

func (c *linkerContext) visitDependencies(sourceIndex uint32, visited []bool) {
	repr, ok := c.graph.Modules[sourceIndex].Normal()
	if !ok || !repr.Flags.Has(graph.ModuleIncluded) || visited[sourceIndex] {
		return
	}
	visited[sourceIndex] = true
	for _, dependency := range repr.Meta.Dependencies {
		c.visitDependencies(dependency, visited)
	}
}

func (c *linkerContext) chunkLeaderExecOrder(chunk *chunkInfo) uint32 {
	if chunk.isEntryPoint {
		return c.graph.Modules[chunk.entrySourceIndex].ExecOrder
	}
	return c.graph.Modules[chunk.filesInChunk[0]].ExecOrder
}

func (c *linkerContext) computeChunkExecOrder() {
	// Execution order: between an entry chunk and a common chunk whose
	// leaders tie, the entry comes first
	order := make([]uint32, len(c.chunks))
	for i := range order {
		order[i] = uint32(i)
	}
	sort.SliceStable(order, func(i int, j int) bool {
		a, b := &c.chunks[order[i]], &c.chunks[order[j]]
		aOrder, bOrder := c.chunkLeaderExecOrder(a), c.chunkLeaderExecOrder(b)
		if aOrder == bOrder && a.isEntryPoint != b.isEntryPoint {
			return a.isEntryPoint
		}
		return aOrder < bOrder
	})
	for position, chunkIndex := range order {
		c.chunks[chunkIndex].execOrder = uint32(position)
	}

	// Emission order: user-defined entry chunks first in insertion order,
	// everything else by execution order
	sorted := make([]uint32, len(c.chunks))
	copy(sorted, order)
	sort.SliceStable(sorted, func(i int, j int) bool {
		a, b := &c.chunks[sorted[i]], &c.chunks[sorted[j]]
		aUser := a.isEntryPoint && a.isUserDefinedEntry
		bUser := b.isEntryPoint && b.isUserDefinedEntry
		if aUser != bUser {
			return aUser
		}
		if aUser && bUser {
			return sorted[i] < sorted[j]
		}
		return a.execOrder < b.execOrder
	})
	c.sortedChunkIndices = sorted
}

func (c *linkerContext) computeChunkNames() {
	g := c.graph

	preGenerated := make([]string, len(c.chunks))
	for chunkIndex := range c.chunks {
		chunk := &c.chunks[chunkIndex]
		if chunk.name != "" {
			preGenerated[chunkIndex] = chunk.name
			continue
		}
		if chunk.isEntryPoint {
			stem := helpers.SanitizeFileName(helpers.FileStem(g.Modules[chunk.entrySourceIndex].StableID))
			if stem == "" {
				stem = "input"
			}
			preGenerated[chunkIndex] = stem
			continue
		}
		name := "chunk"
		for i := len(chunk.filesInChunk) - 1; i >= 0; i-- {
			if chunk.filesInChunk[i] != g.RuntimeSourceIndex {
				name = helpers.SanitizeFileName(helpers.FileStem(g.Modules[chunk.filesInChunk[i]].StableID))
				break
			}
		}
		preGenerated[chunkIndex] = name
	}

	// Chunk names must be unique; a collision takes the current count as a
	// suffix ("chunk", "chunk2", "chunk3", ...)
	usedCounts := make(map[string]uint32)
	nextPlaceholder := 0
	for _, chunkIndex := range c.sortedChunkIndices {
		chunk := &c.chunks[chunkIndex]
		name := preGenerated[chunkIndex]
		for {
			count, ok := usedCounts[name]
			if !ok {
				usedCounts[name] = 2
				break
			}
			usedCounts[name] = count + 1
			name = preGenerated[chunkIndex] + strconv.FormatUint(uint64(count), 10)
		}
		chunk.name = name

		// Dynamic-import entry chunks use the chunk template: their names are
		// internal wiring, not user-facing entry artifacts
		template := c.options.ChunkNamesOrDefault()
		if chunk.isEntryPoint && chunk.isUserDefinedEntry {
			template = c.options.EntryNamesOrDefault()
		}
		rendered := strings.ReplaceAll(template, "[name]", name)
		if strings.Contains(rendered, "[hash]") {
			rendered = strings.ReplaceAll(rendered, "[hash]", fmt.Sprintf("!~{%03d}~", nextPlaceholder))
			nextPlaceholder++
		}
		if !strings.HasSuffix(rendered, ".js") {
			rendered += ".js"
		}
		chunk.relPath = rendered
	}
}
