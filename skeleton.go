package articulated

import (
	"fmt"

	"github.com/google/uuid"
)

// DestructorCallback runs once when a skeleton is destroyed.
type DestructorCallback func(s *Skeleton)

// Skeleton is a tree of bodies connected by bilateral joints, solved with a
// linear-time factorization over the tree. A skeleton is not safe for
// concurrent use; independent skeletons that share no body may be solved on
// separate goroutines.
type Skeleton struct {
	root       *Node
	nodesOrder []*Node
	nodeCount  int
	finalized  bool

	id         int32
	tag        string
	destructor DestructorCallback
	joints     JointFinder
	unilateral UnilateralSolver
	cfg        Config
	logger     Logger
	stats      SolveStats
}

// NewSkeleton binds a skeleton to rootBody. The id is drawn from ids, which
// the enclosing world owns. With cfg.Debug set the skeleton logs to stderr at
// debug level; otherwise it is silent until SetLogger.
func NewSkeleton(rootBody Body, joints JointFinder, ids *IDGenerator, cfg Config) *Skeleton {
	assert(rootBody != nil, "nil root body")
	assert(ids != nil, "nil id generator")
	s := &Skeleton{
		root:       newNode(rootBody, nil, nil),
		nodeCount:  1,
		id:         ids.Next(),
		tag:        uuid.NewString(),
		joints:     joints,
		unilateral: SequentialRowSolver{},
		cfg:        cfg,
		logger:     NewNopLogger(),
	}
	if cfg.Debug {
		s.logger = NewDefaultLogger(fmt.Sprintf("skeleton %d", s.id), true)
	}
	rootBody.SetSkeleton(s)
	return s
}

func (s *Skeleton) ID() int32 { return s.id }

// Tag is a random identifier used to tell skeletons apart in logs, even when
// ids are reset between worlds.
func (s *Skeleton) Tag() string { return s.tag }

func (s *Skeleton) Root() *Node { return s.root }

func (s *Skeleton) NodeCount() int { return s.nodeCount }

func (s *Skeleton) Finalized() bool { return s.finalized }

func (s *Skeleton) Config() Config { return s.cfg }

// Nodes returns the solve order built by Finalize: children before parents,
// root last.
func (s *Skeleton) Nodes() []*Node { return s.nodesOrder }

func (s *Skeleton) SetDestructorCallback(fn DestructorCallback) {
	s.destructor = fn
}

// SetUnilateralSolver replaces the general solver used by SolveUnilaterals.
func (s *Skeleton) SetUnilateralSolver(u UnilateralSolver) {
	s.unilateral = u
}

// Destroy runs the destructor callback and releases every node, clearing each
// body's association with this skeleton. A destroyed skeleton cannot be
// rebuilt or solved.
func (s *Skeleton) Destroy() {
	if s.destructor != nil {
		s.destructor(s)
	}
	if s.root != nil {
		s.root.release()
	}
	s.root = nil
	s.nodesOrder = nil
	s.nodeCount = 0
	s.finalized = false
}

// FindNode returns the node of body, or nil when body is not part of the tree.
// An error is returned only when the walk exceeds Config.MaxTraversal.
func (s *Skeleton) FindNode(body Body) (*Node, error) {
	if s.root == nil {
		return nil, nil
	}
	stack := []*Node{s.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.body == body {
			return node, nil
		}
		for _, child := range node.children {
			if s.cfg.MaxTraversal > 0 && len(stack) >= s.cfg.MaxTraversal {
				return nil, fmt.Errorf("find node in skeleton %d: %w", s.id, ErrTraversalLimit)
			}
			stack = append(stack, child)
		}
	}
	return nil, nil
}

// AddChild links child under parent through the joint connecting them. A nil
// parent means the root body. When the joint points from the root body to
// child, child becomes the new root and the old root takes the joint.
func (s *Skeleton) AddChild(child, parent Body) (*Node, error) {
	assert(!s.finalized, "AddChild after Finalize")
	assert(s.root != nil, "AddChild on a destroyed skeleton")
	assert(child != nil, "nil child body")
	if parent == nil {
		parent = s.root.body
	}

	joint := s.joints.FindBilateralJoint(child, parent)
	assert(joint != nil, "no bilateral joint between ", child, " and ", parent)

	var node *Node
	if joint.Body0() == child && joint.Body1() == parent {
		parentNode, err := s.FindNode(parent)
		if err != nil {
			return nil, err
		}
		assert(parentNode != nil, "parent body ", parent, " is not in the skeleton")
		node = newNode(child, joint, parentNode)
	} else {
		assert(joint.Body1() == child && joint.Body0() == parent, "joint does not connect ", child, " and ", parent)
		assert(s.root.body == parent, "reversed joint must start at the root body")
		assert(s.root.joint == nil, "root already has a joint")

		oldRoot := s.root
		oldRoot.joint = joint
		node = newNode(child, nil, nil)
		node.children = append(node.children, oldRoot)
		oldRoot.parent = node
		s.root = node
		node = oldRoot
	}

	assert(node.joint.Body0() == node.body, "joint body0 must be the child")
	assert(node.joint.Body1() == node.parent.body, "joint body1 must be the parent")
	s.nodeCount++
	child.SetSkeleton(s)
	return node, nil
}

type discovery struct {
	child, parent Body
}

// AddJointList grows the tree breadth first from the root over joints. Joints
// not reachable from the root are ignored.
func (s *Skeleton) AddJointList(joints []Joint) error {
	assert(!s.finalized, "AddJointList after Finalize")
	assert(s.root != nil, "AddJointList on a destroyed skeleton")

	member := make(map[Joint]struct{}, len(joints))
	seen := map[Body]struct{}{s.root.body: {}}
	var queue []discovery

	push := func(child, parent Body) error {
		if s.cfg.MaxDiscovery > 0 && len(queue) >= s.cfg.MaxDiscovery {
			return fmt.Errorf("add joint list to skeleton %d: %w", s.id, ErrDiscoveryLimit)
		}
		seen[child] = struct{}{}
		queue = append(queue, discovery{child, parent})
		return nil
	}

	rootBody := s.root.body
	for _, joint := range joints {
		member[joint] = struct{}{}
	}
	for _, joint := range joints {
		body0, body1 := joint.Body0(), joint.Body1()
		var err error
		switch rootBody {
		case body1:
			if _, ok := seen[body0]; !ok {
				err = push(body0, body1)
			}
		case body0:
			if _, ok := seen[body1]; !ok {
				err = push(body1, body0)
			}
		}
		if err != nil {
			return err
		}
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if _, err := s.AddChild(item.child, item.parent); err != nil {
			return err
		}

		for _, joint := range item.child.Joints() {
			if _, ok := member[joint]; !ok {
				continue
			}
			other := joint.Body0()
			if other == item.child {
				other = joint.Body1()
			}
			if _, ok := seen[other]; ok {
				continue
			}
			if err := push(other, item.child); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finalize locks the topology and builds the post-order solve sequence,
// assigning every node its index and every joint its priority.
func (s *Skeleton) Finalize() {
	assert(!s.finalized, "Finalize called twice")
	assert(s.root != nil, "Finalize on a destroyed skeleton")

	s.nodesOrder = make([]*Node, 0, s.nodeCount)
	s.sortGraph(s.root)
	assert(len(s.nodesOrder) == s.nodeCount, "node count mismatch after sort")
	s.finalized = true

	s.Logger().Debugf("skeleton %d [%s] finalized with %d nodes", s.id, s.tag, s.nodeCount)
}

func (s *Skeleton) sortGraph(node *Node) {
	for _, child := range node.children {
		s.sortGraph(child)
	}
	node.index = len(s.nodesOrder)
	node.setPriority(Priority{SkeletonID: s.id, Index: node.index})
	s.nodesOrder = append(s.nodesOrder, node)
}
