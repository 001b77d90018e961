package tree

// Visitor receives enter and exit callbacks from [Walk].
// Enter runs before a node's children are visited, Exit after.
// Implementations may mutate the fields of the visited node but must not
// change the tree topology while a walk is in progress.
type Visitor interface {
	Enter(t *Tree, id NodeID) error
	Exit(t *Tree, id NodeID) error
}

// VisitorFuncs adapts two plain functions to [Visitor]. A nil function is skipped.
type VisitorFuncs struct {
	OnEnter func(t *Tree, id NodeID) error
	OnExit  func(t *Tree, id NodeID) error
}

// Enter calls OnEnter when set.
func (vf VisitorFuncs) Enter(t *Tree, id NodeID) error {
	if vf.OnEnter == nil {
		return nil
	}

	return vf.OnEnter(t, id)
}

// Exit calls OnExit when set.
func (vf VisitorFuncs) Exit(t *Tree, id NodeID) error {
	if vf.OnExit == nil {
		return nil
	}

	return vf.OnExit(t, id)
}

// walkFrame is one entry of the explicit walk stack.
type walkFrame struct {
	id             NodeID
	childrenPushed bool
}

// Traversal stack constants.
const (
	defaultStackCap = 64
	stackCapGrowth  = 32
)

// Walk visits every node reachable from root exactly once: Enter in
// pre-order, Exit in post-order, children in stored order.
// It uses an explicit frame stack, so tree depth is bounded by memory rather
// than by the goroutine stack. The first callback error stops the walk and
// is returned unchanged.
func Walk(t *Tree, root NodeID, visitor Visitor) error {
	if !t.Valid(root) {
		return nil
	}

	stack := make([]walkFrame, 0, defaultStackCap)
	stack = append(stack, walkFrame{id: root})

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.childrenPushed {
			err := visitor.Exit(t, top.id)
			if err != nil {
				return err
			}

			continue
		}

		err := visitor.Enter(t, top.id)
		if err != nil {
			return err
		}

		stack = append(stack, walkFrame{id: top.id, childrenPushed: true})
		stack = pushChildrenReversed(stack, t.nodes[top.id].Children)
	}

	return nil
}

// pushChildrenReversed pushes children so the first child is popped first.
func pushChildrenReversed(stack []walkFrame, children []NodeID) []walkFrame {
	if cap(stack) < len(stack)+len(children) {
		grown := make([]walkFrame, len(stack), len(stack)+len(children)+stackCapGrowth)
		copy(grown, stack)
		stack = grown
	}

	for idx := len(children) - 1; idx >= 0; idx-- {
		stack = append(stack, walkFrame{id: children[idx]})
	}

	return stack
}

// VisitPreOrder calls fn for every node reachable from the root in pre-order.
func (t *Tree) VisitPreOrder(fn func(id NodeID)) {
	// The callback cannot fail.
	_ = Walk(t, t.root, VisitorFuncs{OnEnter: func(_ *Tree, id NodeID) error {
		fn(id)

		return nil
	}})
}

// Find returns every node reachable from the root for which predicate holds,
// in pre-order.
func (t *Tree) Find(predicate func(n *Node) bool) []NodeID {
	var result []NodeID

	t.VisitPreOrder(func(id NodeID) {
		if predicate(&t.nodes[id]) {
			result = append(result, id)
		}
	})

	return result
}
