package pipeline

// Analyze returns the node count, edge count and DAG verdict for the given
// nodes and edges. Counts are the literal lengths of the inputs.
//
// Edges whose target is not a known node id are kept in the adjacency list
// but never touch an in-degree counter, so a dangling target cannot turn an
// otherwise acyclic pipeline into a cyclic one. A dangling source is never
// removed, so its known target keeps a positive in-degree and the pipeline
// is reported as not a DAG.
func Analyze(nodes []Node, edges []Edge) Result {
	_, ok := TopologicalOrder(nodes, edges)
	return Result{
		NumNodes: len(nodes),
		NumEdges: len(edges),
		IsDAG:    ok,
	}
}

// TopologicalOrder runs Kahn's elimination over the pipeline and returns the
// node ids in removal order. Ties are broken by first occurrence in nodes.
// The bool reports whether every distinct node id was removed, i.e. whether
// the graph is acyclic; when it is false the order is partial.
func TopologicalOrder(nodes []Node, edges []Edge) ([]string, bool) {
	ids := make([]string, 0, len(nodes))
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if _, seen := inDegree[n.ID]; seen {
			continue
		}
		inDegree[n.ID] = 0
		ids = append(ids, n.ID)
	}

	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		if _, known := inDegree[e.Target]; known {
			inDegree[e.Target]++
		}
	}

	var q queue
	for _, id := range ids {
		if inDegree[id] == 0 {
			q.push(id)
		}
	}

	order := make([]string, 0, len(ids))
	for q.len() > 0 {
		id := q.pop()
		order = append(order, id)
		for _, next := range adj[id] {
			d, known := inDegree[next]
			if !known {
				continue
			}
			d--
			inDegree[next] = d
			if d == 0 {
				q.push(next)
			}
		}
	}

	return order, len(order) == len(ids)
}

// queue is a FIFO of node ids with O(1) push and pop.
type queue struct {
	items []string
	head  int
}

func (q *queue) push(id string) { q.items = append(q.items, id) }

func (q *queue) pop() string {
	id := q.items[q.head]
	q.items[q.head] = ""
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return id
}

func (q *queue) len() int { return len(q.items) - q.head }
