package plan

import "sort"

// dependencyGraph maps node name to the nodes it reads.
type dependencyGraph map[string][]string

// findCycles returns every dependency cycle as a closed path, e.g.
// [a b a]. Nodes are visited in name order so reports are stable.
func findCycles(graph dependencyGraph) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, cyclePath(scc, graph))
		}
	}
	return cycles
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, n := range graph[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its first member back to itself.
func cyclePath(scc []string, graph dependencyGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	path := []string{start}
	visited := map[string]bool{}
	for current := start; ; {
		visited[current] = true
		next := ""
		for _, n := range graph[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
