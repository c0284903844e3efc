package linker

// Module execution ordering: an iterative depth-first traversal from each
// entry point over static import edges. A module is assigned its order
// when it exits the stack, which linearizes the graph so that importees
// run before their importers. Cycles are tolerated; each one produces a
// warning carrying the full cycle path.

import "strings"

type execStatus struct {
	sourceIndex uint32

	// False: the module is about to be visited. True: all of its imports
	// have been pushed and it receives the next execution order.
	waitForExit bool
}

func (c *linkerContext) computeExecutionOrder() {
	g := c.graph

	// The runtime module is pushed last so it pops first and always gets
	// execution order 0.
	stack := make([]execStatus, 0, len(g.Modules)+len(g.EntryPoints)+1)
	for i := len(g.EntryPoints) - 1; i >= 0; i-- {
		stack = append(stack, execStatus{sourceIndex: g.EntryPoints[i].SourceIndex})
	}
	stack = append(stack, execStatus{sourceIndex: g.RuntimeSourceIndex})

	visited := make(map[uint32]bool, len(g.Modules))

	// Source index -> position of its WaitForExit frame while it is still
	// on the execution chain
	executing := make(map[uint32]int)

	nextExecOrder := uint32(0)
	var cycles [][]uint32
	cycleSeen := make(map[string]bool)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.waitForExit {
			g.Modules[top.sourceIndex].ExecOrder = nextExecOrder
			nextExecOrder++
			delete(executing, top.sourceIndex)
			continue
		}

		if visited[top.sourceIndex] {
			// A repeated visit to a module still on the execution chain is a
			// back edge; collect the chain from that point as the cycle path.
			if start, ok := executing[top.sourceIndex]; ok {
				var cycle []uint32
				for _, status := range stack[start:] {
					if status.waitForExit {
						cycle = append(cycle, status.sourceIndex)
					}
				}
				cycle = append(cycle, top.sourceIndex)
				key := cycleKey(cycle)
				if !cycleSeen[key] {
					cycleSeen[key] = true
					cycles = append(cycles, cycle)
				}
			}
			continue
		}

		visited[top.sourceIndex] = true
		stack = append(stack, execStatus{sourceIndex: top.sourceIndex, waitForExit: true})
		executing[top.sourceIndex] = len(stack) - 1

		records := *g.Modules[top.sourceIndex].Repr.ImportRecords()
		for i := len(records) - 1; i >= 0; i-- {
			record := &records[i]
			if record.Kind.IsStatic() && record.SourceIndex.IsValid() {
				stack = append(stack, execStatus{sourceIndex: record.SourceIndex.GetIndex()})
			}
		}
	}

	for _, cycle := range cycles {
		var ids []string
		for _, sourceIndex := range cycle {
			module := &g.Modules[sourceIndex]
			if _, ok := module.Normal(); ok {
				ids = append(ids, module.StableID)
			}
		}
		c.log.AddWarning("", "Circular dependency: "+strings.Join(ids, " -> "))
	}
}

func cycleKey(cycle []uint32) string {
	sb := strings.Builder{}
	for _, sourceIndex := range cycle {
		sb.WriteByte(byte(sourceIndex))
		sb.WriteByte(byte(sourceIndex >> 8))
		sb.WriteByte(byte(sourceIndex >> 16))
		sb.WriteByte(byte(sourceIndex >> 24))
	}
	return sb.String()
}
