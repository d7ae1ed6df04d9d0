package state

import (
	"sort"

	"taskline/bizerror"

	"github.com/fundwit/go-commons/types"
)

type Permission string

const (
	PermissionOwner    Permission = "OWNER"
	PermissionAssignee Permission = "ASSIGNEE"
)

// Node is a position in a workflow. The order number doubles as the adjacency
// metric for assignee moves.
type Node struct {
	ID          types.ID
	WorkflowID  types.ID
	OrderNumber int
	Permission  Permission
}

type Actor struct {
	IsOwner    bool
	IsAssignee bool
}

// Authorize decides whether actor may move a task from one node to another.
// Checks run in order: deadline, workflow, authority. The owner moves freely,
// even when also an assignee. An assignee moves one step between ASSIGNEE nodes.
func Authorize(from, to Node, actor Actor, deadlineExpired bool) error {
	if deadlineExpired {
		return bizerror.ErrDeadlineExpired
	}
	if from.WorkflowID != to.WorkflowID {
		return bizerror.ErrInvalidStateWorkflow
	}
	if actor.IsOwner {
		return nil
	}
	if actor.IsAssignee && from.Permission == PermissionAssignee && to.Permission == PermissionAssignee &&
		abs(to.OrderNumber-from.OrderNumber) == 1 {
		return nil
	}
	return bizerror.ErrForbidden
}

// StateMachine is a stateless view of one workflow's nodes, used to list reachable nodes.
type StateMachine struct {
	Nodes []Node
}

func NewStateMachine(nodes []Node) *StateMachine {
	sorted := append([]Node{}, nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OrderNumber < sorted[j].OrderNumber })
	return &StateMachine{Nodes: sorted}
}

// AvailableTransitions returns the nodes actor may move to from the given node, ordered by order number.
func (sm *StateMachine) AvailableTransitions(from Node, actor Actor, deadlineExpired bool) []Node {
	r := []Node{}
	for _, to := range sm.Nodes {
		if to.ID == from.ID {
			continue
		}
		if Authorize(from, to, actor, deadlineExpired) == nil {
			r = append(r, to)
		}
	}
	return r
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
