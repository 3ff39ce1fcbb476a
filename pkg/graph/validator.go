// Package graph provides pure validation and scheduling over workflow graphs.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/loomflow/loom/pkg/models"
)

// ValidationResult is the structured diagnostic output of Validate. It is
// always returned; validation never fails with an error of its own.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	NodeCount       int      `json:"node_count"`
	ConnectionCount int      `json:"connection_count"`
}

// Validate decides whether a workflow is executable. Errors block
// execution; warnings do not. The output is deterministic for a given
// graph state regardless of node or connection insertion order.
func Validate(workflow *models.Workflow) ValidationResult {
	result := ValidationResult{
		Errors:          []string{},
		Warnings:        []string{},
		NodeCount:       len(workflow.Nodes),
		ConnectionCount: len(workflow.Connections),
	}

	if len(workflow.Nodes) == 0 {
		result.Errors = append(result.Errors, "workflow has no nodes")
		result.Valid = false

		return result
	}

	nodesByID := make(map[string]*models.Node, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		nodesByID[node.ID] = node
	}

	result.Errors = append(result.Errors, danglingConnectionErrors(workflow, nodesByID)...)
	result.Errors = append(result.Errors, cycleErrors(workflow, nodesByID)...)
	result.Errors = append(result.Errors, configErrors(workflow)...)
	result.Warnings = append(result.Warnings, orphanWarnings(workflow)...)

	result.Valid = len(result.Errors) == 0

	return result
}

// danglingConnectionErrors reports connections referencing unknown node ids.
func danglingConnectionErrors(workflow *models.Workflow, nodesByID map[string]*models.Node) []string {
	var errs []string

	for _, conn := range sortedConnections(workflow) {
		if _, ok := nodesByID[conn.SourceNodeID]; !ok {
			errs = append(errs, fmt.Sprintf("connection %s references unknown source node %s", conn.ID, conn.SourceNodeID))
		}

		if _, ok := nodesByID[conn.TargetNodeID]; !ok {
			errs = append(errs, fmt.Sprintf("connection %s references unknown target node %s", conn.ID, conn.TargetNodeID))
		}
	}

	return errs
}

// cycleErrors runs a depth-first search tracking a recursion stack; any
// node revisited while still on the stack closes a cycle.
func cycleErrors(workflow *models.Workflow, nodesByID map[string]*models.Node) []string {
	adjacency := make(map[string][]string)

	for _, conn := range workflow.Connections {
		if _, ok := nodesByID[conn.SourceNodeID]; !ok {
			continue
		}

		if _, ok := nodesByID[conn.TargetNodeID]; !ok {
			continue
		}

		adjacency[conn.SourceNodeID] = append(adjacency[conn.SourceNodeID], conn.TargetNodeID)
	}

	for id := range adjacency {
		slices.Sort(adjacency[id])
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var errs []string

	var visit func(id string, path []string)
	visit = func(id string, path []string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range adjacency[id] {
			if onStack[next] {
				cycle := append(cycleTail(path, next), next)
				errs = append(errs, fmt.Sprintf("cycle detected: %s", strings.Join(cycle, " -> ")))

				continue
			}

			if !visited[next] {
				visit(next, path)
			}
		}

		onStack[id] = false
	}

	for _, id := range sortedNodeIDs(workflow) {
		if !visited[id] {
			visit(id, nil)
		}
	}

	return errs
}

// cycleTail trims the DFS path to the segment starting at the revisited node.
func cycleTail(path []string, start string) []string {
	for i, id := range path {
		if id == start {
			return path[i:]
		}
	}

	return path
}

// configErrors reports nodes missing required fields for their kind.
func configErrors(workflow *models.Workflow) []string {
	var errs []string

	for _, node := range sortedNodes(workflow) {
		for _, field := range models.MissingConfigFields(node) {
			errs = append(errs, fmt.Sprintf("node %s (%s) is missing required config field '%s'", node.ID, node.Kind, field))
		}
	}

	return errs
}

// orphanWarnings reports nodes with no inbound or outbound connection while
// the workflow has more than one node.
func orphanWarnings(workflow *models.Workflow) []string {
	if len(workflow.Nodes) <= 1 {
		return nil
	}

	connected := make(map[string]bool)
	for _, conn := range workflow.Connections {
		connected[conn.SourceNodeID] = true
		connected[conn.TargetNodeID] = true
	}

	var warnings []string

	for _, node := range sortedNodes(workflow) {
		if !connected[node.ID] {
			warnings = append(warnings, fmt.Sprintf("node %s (%s) is orphaned: no inbound or outbound connections", node.ID, node.Name))
		}
	}

	return warnings
}

func sortedNodeIDs(workflow *models.Workflow) []string {
	ids := make([]string, 0, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		ids = append(ids, node.ID)
	}

	slices.Sort(ids)

	return ids
}

func sortedNodes(workflow *models.Workflow) []*models.Node {
	nodes := slices.Clone(workflow.Nodes)
	slices.SortFunc(nodes, func(a, b *models.Node) int {
		return strings.Compare(a.ID, b.ID)
	})

	return nodes
}

func sortedConnections(workflow *models.Workflow) []*models.Connection {
	conns := slices.Clone(workflow.Connections)
	slices.SortFunc(conns, func(a, b *models.Connection) int {
		return strings.Compare(a.ID, b.ID)
	})

	return conns
}
