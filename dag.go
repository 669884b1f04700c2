package pipeline

// Pipeline is a directed graph submitted for analysis: an ordered list of
// nodes and an ordered list of edges.
type Pipeline struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a vertex in the pipeline. Its ID is its identity.
type Node struct {
	ID string `json:"id"`
}

// Edge represents a directed connection between two nodes.
// Source and Target reference node IDs by value; they are not required to
// name a node present in the pipeline.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Result holds the structural facts reported for a pipeline.
type Result struct {
	NumNodes int  `json:"num_nodes"`
	NumEdges int  `json:"num_edges"`
	IsDAG    bool `json:"is_dag"`
}

// Analyze reports the node count, edge count and DAG verdict of p.
func (p Pipeline) Analyze() Result {
	return Analyze(p.Nodes, p.Edges)
}
