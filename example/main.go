package main

import (
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/pipeline"
)

func main() {
	// ── A linear pipeline: input → llm → output ───────────────────────
	linear := pipeline.Pipeline{
		Nodes: []pipeline.Node{{ID: "input-1"}, {ID: "llm-1"}, {ID: "output-1"}},
		Edges: []pipeline.Edge{
			{Source: "input-1", Target: "llm-1"},
			{Source: "llm-1", Target: "output-1"},
		},
	}
	fmt.Println("linear pipeline:")
	printJSON(linear.Analyze())

	// ── Close the chain into a loop ───────────────────────────────────
	looped := linear
	looped.Edges = append(append([]pipeline.Edge{}, linear.Edges...),
		pipeline.Edge{Source: "output-1", Target: "input-1"})
	fmt.Println("\nlooped pipeline:")
	printJSON(looped.Analyze())

	// ── Fan-out with an edge to a node that was never submitted ───────
	fanOut := pipeline.Pipeline{
		Nodes: []pipeline.Node{{ID: "input-1"}, {ID: "text-1"}, {ID: "filter-1"}},
		Edges: []pipeline.Edge{
			{Source: "input-1", Target: "text-1"},
			{Source: "input-1", Target: "filter-1"},
			{Source: "filter-1", Target: "deleted-node"},
		},
	}
	order, ok := pipeline.TopologicalOrder(fanOut.Nodes, fanOut.Edges)
	fmt.Printf("\nfan-out pipeline (order %v, dag %t):\n", order, ok)
	printJSON(fanOut.Analyze())
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
