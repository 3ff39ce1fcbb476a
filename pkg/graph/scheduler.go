package graph

import (
	"errors"
	"slices"

	"github.com/loomflow/loom/pkg/models"
)

// ErrNotAcyclic is returned by BuildOrder when the graph contains a cycle
// and no complete topological order exists.
var ErrNotAcyclic = errors.New("workflow graph is not acyclic")

// BuildOrder computes a deterministic topological execution order using
// Kahn's algorithm: seed a queue with zero-in-degree nodes, repeatedly take
// the smallest ready node id, and release its outbound neighbors as their
// in-degree reaches zero. Ties among simultaneously-ready nodes break by
// ascending node id, so the same graph always yields the same order.
//
// If nodes remain with non-zero in-degree after the queue drains, the graph
// has a cycle and BuildOrder fails with ErrNotAcyclic rather than silently
// dropping the unreachable nodes.
func BuildOrder(workflow *models.Workflow) ([]string, error) {
	indegree := make(map[string]int, len(workflow.Nodes))
	adjacency := make(map[string][]string, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		indegree[node.ID] = 0
	}

	for _, conn := range workflow.Connections {
		if _, ok := indegree[conn.SourceNodeID]; !ok {
			continue
		}

		if _, ok := indegree[conn.TargetNodeID]; !ok {
			continue
		}

		adjacency[conn.SourceNodeID] = append(adjacency[conn.SourceNodeID], conn.TargetNodeID)
		indegree[conn.TargetNodeID]++
	}

	ready := make([]string, 0, len(indegree))
	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	slices.Sort(ready)

	order := make([]string, 0, len(indegree))

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false

		for _, next := range adjacency[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
				released = true
			}
		}

		if released {
			slices.Sort(ready)
		}
	}

	if len(order) != len(indegree) {
		return nil, ErrNotAcyclic
	}

	return order, nil
}
