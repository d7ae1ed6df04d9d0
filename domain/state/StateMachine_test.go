package state_test

import (
	"errors"

	"taskline/bizerror"
	"taskline/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateMachine", func() {
	var (
		todo, inProgress, review, done state.Node
		stateMachine                   *state.StateMachine

		owner    = state.Actor{IsOwner: true}
		assignee = state.Actor{IsAssignee: true}
		stranger = state.Actor{}
	)

	BeforeEach(func() {
		todo = state.Node{ID: 1, WorkflowID: 100, OrderNumber: 1, Permission: state.PermissionOwner}
		inProgress = state.Node{ID: 2, WorkflowID: 100, OrderNumber: 2, Permission: state.PermissionAssignee}
		review = state.Node{ID: 3, WorkflowID: 100, OrderNumber: 3, Permission: state.PermissionAssignee}
		done = state.Node{ID: 4, WorkflowID: 100, OrderNumber: 4, Permission: state.PermissionOwner}
		stateMachine = state.NewStateMachine([]state.Node{done, review, todo, inProgress})
	})

	Describe("Authorize", func() {
		It("should follow the owner and assignee walk through the default workflow", func() {
			By("assignee cannot leave an OWNER state")
			Expect(errors.Is(state.Authorize(todo, inProgress, assignee, false), bizerror.ErrForbidden)).To(BeTrue())
			By("owner moves TODO to IN_PROGRESS")
			Expect(state.Authorize(todo, inProgress, owner, false)).To(BeNil())
			By("assignee moves one step between ASSIGNEE states")
			Expect(state.Authorize(inProgress, review, assignee, false)).To(BeNil())
			By("assignee cannot enter an OWNER state")
			Expect(errors.Is(state.Authorize(review, done, assignee, false), bizerror.ErrForbidden)).To(BeTrue())
		})

		It("should allow owner to reach any state in one call", func() {
			for _, from := range stateMachine.Nodes {
				for _, to := range stateMachine.Nodes {
					Expect(state.Authorize(from, to, owner, false)).To(BeNil())
				}
			}
		})

		It("should let an owner who is also assignee move freely", func() {
			Expect(state.Authorize(todo, done, state.Actor{IsOwner: true, IsAssignee: true}, false)).To(BeNil())
		})

		It("should allow assignee to step backwards", func() {
			Expect(state.Authorize(review, inProgress, assignee, false)).To(BeNil())
		})

		It("should deny assignee skipping states", func() {
			wide := state.Node{ID: 5, WorkflowID: 100, OrderNumber: 4, Permission: state.PermissionAssignee}
			Expect(errors.Is(state.Authorize(inProgress, wide, assignee, false), bizerror.ErrForbidden)).To(BeTrue())
		})

		It("should deny actors who are neither owner nor assignee", func() {
			Expect(errors.Is(state.Authorize(inProgress, review, stranger, false), bizerror.ErrForbidden)).To(BeTrue())
		})

		It("should deny every actor once the deadline expired", func() {
			for _, actor := range []state.Actor{owner, assignee, stranger} {
				Expect(errors.Is(state.Authorize(inProgress, review, actor, true), bizerror.ErrDeadlineExpired)).To(BeTrue())
			}
		})

		It("should deny moves across workflows before checking authority", func() {
			foreign := state.Node{ID: 9, WorkflowID: 200, OrderNumber: 2, Permission: state.PermissionAssignee}
			Expect(errors.Is(state.Authorize(todo, foreign, owner, false), bizerror.ErrInvalidStateWorkflow)).To(BeTrue())
			Expect(errors.Is(state.Authorize(todo, foreign, stranger, false), bizerror.ErrInvalidStateWorkflow)).To(BeTrue())
		})
	})

	Describe("AvailableTransitions", func() {
		It("should sort nodes by order number", func() {
			Expect(stateMachine.Nodes).To(Equal([]state.Node{todo, inProgress, review, done}))
		})

		It("should list every other node for the owner", func() {
			Expect(stateMachine.AvailableTransitions(inProgress, owner, false)).To(Equal([]state.Node{todo, review, done}))
		})

		It("should list adjacent ASSIGNEE nodes for an assignee", func() {
			Expect(stateMachine.AvailableTransitions(inProgress, assignee, false)).To(Equal([]state.Node{review}))
			Expect(stateMachine.AvailableTransitions(review, assignee, false)).To(Equal([]state.Node{inProgress}))
			Expect(stateMachine.AvailableTransitions(todo, assignee, false)).To(BeEmpty())
		})

		It("should list nothing when the deadline expired", func() {
			Expect(stateMachine.AvailableTransitions(todo, owner, true)).To(BeEmpty())
		})
	})
})
