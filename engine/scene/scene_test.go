package scene

import (
	"errors"
	"testing"

	"github.com/lumen3d/lumen/engine/camera"
	"github.com/lumen3d/lumen/engine/light"
)

func TestSceneAddRoot(t *testing.T) {
	s := NewScene("test")
	n := NewNode(WithName("root"))

	if err := s.Add(n, nil); err != nil {
		t.Fatalf("Add root: %v", err)
	}
	if !s.Contains(n) {
		t.Error("node should be a member after Add")
	}
	roots := s.Roots()
	if len(roots) != 1 || roots[0].ID() != n.ID() {
		t.Errorf("root set = %v, want [%d]", roots, n.ID())
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestSceneAddSubtreeRegistersDescendants(t *testing.T) {
	s := NewScene("test")
	parent := NewNode(WithName("parent"))
	child := NewNode(WithName("child"))
	grandchild := NewNode(WithName("grandchild"))
	if err := parent.AddChild(child); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := child.AddChild(grandchild); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := s.Add(parent, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, n := range []Node{parent, child, grandchild} {
		if !s.Contains(n) {
			t.Errorf("node %q should be a member", n.Name())
		}
	}
	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
}

func TestSceneAddRejectsSecondParent(t *testing.T) {
	s := NewScene("test")
	a := NewNode(WithName("a"))
	b := NewNode(WithName("b"))
	child := NewNode(WithName("child"))
	if err := s.Add(a, nil); err != nil {
		t.Fatalf("Add a: %v", err)
	}
	if err := s.Add(b, nil); err != nil {
		t.Fatalf("Add b: %v", err)
	}
	if err := s.Add(child, a); err != nil {
		t.Fatalf("Add child: %v", err)
	}

	if err := s.Add(child, b); !errors.Is(err, ErrHasParent) {
		t.Errorf("Add under second parent = %v, want ErrHasParent", err)
	}
	// The rejected edit must not have touched the graph.
	if child.Parent().ID() != a.ID() {
		t.Errorf("child parent = %d, want %d", child.Parent().ID(), a.ID())
	}
	if len(b.Children()) != 0 {
		t.Errorf("b should have no children, got %d", len(b.Children()))
	}
}

func TestSceneAddRejectsDoubleMembership(t *testing.T) {
	s := NewScene("test")
	n := NewNode(WithName("n"))
	if err := s.Add(n, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A root has no parent, so the double-add surfaces as membership.
	if err := s.Add(n, nil); !errors.Is(err, ErrAlreadyInScene) {
		t.Errorf("second Add = %v, want ErrAlreadyInScene", err)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestSceneAddRejectsUnknownParent(t *testing.T) {
	s := NewScene("test")
	outsider := NewNode(WithName("outsider"))
	n := NewNode(WithName("n"))

	if err := s.Add(n, outsider); !errors.Is(err, ErrNotInScene) {
		t.Errorf("Add under non-member = %v, want ErrNotInScene", err)
	}
	if s.Contains(n) {
		t.Error("rejected Add must not register the node")
	}
}

func TestNodeAddChildRejectsCycle(t *testing.T) {
	a := NewNode(WithName("a"))
	b := NewNode(WithName("b"))
	c := NewNode(WithName("c"))
	if err := a.AddChild(b); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if err := b.AddChild(c); err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if err := c.AddChild(a); !errors.Is(err, ErrCycle) {
		t.Errorf("closing the loop = %v, want ErrCycle", err)
	}
	if err := a.AddChild(a); !errors.Is(err, ErrCycle) {
		t.Errorf("self parent = %v, want ErrCycle", err)
	}
	// The rejected edits must leave the chain intact.
	if a.Parent() != nil {
		t.Error("a must stay detached")
	}
	if len(c.Children()) != 0 {
		t.Errorf("c should have no children, got %d", len(c.Children()))
	}
}

func TestSceneRemoveKeepsSubtreeIntact(t *testing.T) {
	s := NewScene("test")
	root := NewNode(WithName("root"))
	mid := NewNode(WithName("mid"))
	leaf := NewNode(WithName("leaf"))
	if err := s.Add(root, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(mid, root); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(leaf, mid); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Remove(mid); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Contains(mid) || s.Contains(leaf) {
		t.Error("removed subtree must not be members")
	}
	if s.Contains(root) != true {
		t.Error("root must remain a member")
	}
	// The subtree keeps its internal links and can be re-added elsewhere.
	if mid.Parent() != nil {
		t.Error("removed node must be detached from its old parent")
	}
	if len(mid.Children()) != 1 || mid.Children()[0].ID() != leaf.ID() {
		t.Error("removed node must keep its descendants")
	}
	if err := s.Add(mid, root); err != nil {
		t.Errorf("re-adding removed subtree: %v", err)
	}
	if !s.Contains(leaf) {
		t.Error("descendants must rejoin with the subtree")
	}
}

func TestSceneRemoveNonMember(t *testing.T) {
	s := NewScene("test")
	n := NewNode(WithName("n"))

	if err := s.Remove(n); !errors.Is(err, ErrNotInScene) {
		t.Errorf("Remove non-member = %v, want ErrNotInScene", err)
	}
}

func TestSceneLightNodesRegistrationOrder(t *testing.T) {
	s := NewScene("test")
	first := NewNode(WithName("first"), WithLight(light.NewLight(light.LightTypeDirectional)))
	second := NewNode(WithName("second"), WithLight(light.NewLight(light.LightTypePoint)))
	third := NewNode(WithName("third"), WithLight(light.NewLight(light.LightTypeSpot)))

	// Register out of alphabetical and spatial order on purpose.
	if err := s.Add(second, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(first, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(third, second); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got := s.LightNodes()
	want := []string{"second", "first", "third"}
	if len(got) != len(want) {
		t.Fatalf("LightNodes() returned %d nodes, want %d", len(got), len(want))
	}
	for i, n := range got {
		if n.Name() != want[i] {
			t.Errorf("LightNodes()[%d] = %q, want %q", i, n.Name(), want[i])
		}
	}

	if err := s.Remove(first); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got = s.LightNodes()
	if len(got) != 2 || got[0].Name() != "second" || got[1].Name() != "third" {
		t.Errorf("after Remove, LightNodes() order wrong: %v", names(got))
	}
}

func TestSceneLightAttachedAfterAddRegisters(t *testing.T) {
	s := NewScene("test")
	early := NewNode(WithName("early"), WithLight(light.NewLight(light.LightTypeDirectional)))
	late := NewNode(WithName("late"))
	if err := s.Add(early, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(late, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// The light arrives after the node joined the scene; it registers at
	// attach time, after every light already known.
	late.SetLight(light.NewLight(light.LightTypePoint))

	got := s.LightNodes()
	if len(got) != 2 {
		t.Fatalf("LightNodes() returned %d nodes, want 2", len(got))
	}
	if got[0].Name() != "early" || got[1].Name() != "late" {
		t.Errorf("LightNodes() order = %v, want [early late]", names(got))
	}

	// Replacing the light keeps the node's registration position.
	early.SetLight(light.NewLight(light.LightTypeSpot))
	got = s.LightNodes()
	if len(got) != 2 || got[0].Name() != "early" {
		t.Errorf("after replace, LightNodes() = %v, want early first", names(got))
	}
}

func TestSceneLightDetachUnregisters(t *testing.T) {
	s := NewScene("test")
	n := NewNode(WithName("lamp"), WithLight(light.NewLight(light.LightTypePoint)))
	if err := s.Add(n, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.LightNodes(); len(got) != 1 {
		t.Fatalf("LightNodes() returned %d nodes, want 1", len(got))
	}

	n.SetLight(nil)
	if got := s.LightNodes(); len(got) != 0 {
		t.Errorf("after SetLight(nil), LightNodes() = %v, want none", names(got))
	}
	if n.Light() != nil {
		t.Error("node still reports a light after detach")
	}

	// A removed node edits its attachment freely; re-adding registers the
	// light it carries at that point.
	if err := s.Remove(n); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	n.SetLight(light.NewLight(light.LightTypeDirectional))
	if got := s.LightNodes(); len(got) != 0 {
		t.Fatalf("non-member light leaked into the registry: %v", names(got))
	}
	if err := s.Add(n, nil); err != nil {
		t.Fatalf("re-Add: %v", err)
	}
	if got := s.LightNodes(); len(got) != 1 || got[0].Name() != "lamp" {
		t.Errorf("after re-Add, LightNodes() = %v, want [lamp]", names(got))
	}
}

func TestSceneActiveCamera(t *testing.T) {
	s := NewScene("test")
	plain := NewNode(WithName("plain"))
	camNode := NewNode(WithName("cam"), WithCamera(camera.NewCamera()))
	outsider := NewNode(WithName("outsider"), WithCamera(camera.NewCamera()))
	if err := s.Add(plain, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(camNode, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.SetActiveCamera(outsider); !errors.Is(err, ErrNotInScene) {
		t.Errorf("SetActiveCamera(non-member) = %v, want ErrNotInScene", err)
	}
	if err := s.SetActiveCamera(plain); !errors.Is(err, ErrNotACamera) {
		t.Errorf("SetActiveCamera(no camera) = %v, want ErrNotACamera", err)
	}
	if err := s.SetActiveCamera(camNode); err != nil {
		t.Fatalf("SetActiveCamera: %v", err)
	}
	if got := s.ActiveCamera(); got == nil || got.ID() != camNode.ID() {
		t.Errorf("ActiveCamera() = %v, want %d", got, camNode.ID())
	}

	// Removing the camera node clears the selection.
	if err := s.Remove(camNode); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.ActiveCamera() != nil {
		t.Error("ActiveCamera() should be nil after removing the camera node")
	}

	if err := s.SetActiveCamera(nil); err != nil {
		t.Errorf("SetActiveCamera(nil) = %v, want nil", err)
	}
}

func TestSceneSetPose(t *testing.T) {
	s := NewScene("test")
	n := NewNode(WithName("n"), WithTranslation(1, 2, 3))
	if err := s.Add(n, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	pose := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		5, 6, 7, 1,
	}
	if err := s.SetPose(n, pose); err != nil {
		t.Fatalf("SetPose: %v", err)
	}
	if got := n.LocalMatrix(); got != pose {
		t.Errorf("LocalMatrix() = %v, want %v", got, pose)
	}

	other := NewNode(WithName("other"))
	if err := s.SetPose(other, pose); !errors.Is(err, ErrNotInScene) {
		t.Errorf("SetPose non-member = %v, want ErrNotInScene", err)
	}
}

func TestSceneBackgroundAndAmbient(t *testing.T) {
	s := NewScene("test",
		WithBackgroundColor(0.1, 0.2, 0.3, 1),
		WithAmbientColor(0.05, 0.05, 0.1),
	)

	if got := s.BackgroundColor(); got != [4]float32{0.1, 0.2, 0.3, 1} {
		t.Errorf("BackgroundColor() = %v", got)
	}
	if got := s.AmbientColor(); got != [3]float32{0.05, 0.05, 0.1} {
		t.Errorf("AmbientColor() = %v", got)
	}

	s.SetBackgroundColor([4]float32{0, 0, 0, 0})
	s.SetAmbientColor([3]float32{1, 1, 1})
	if got := s.BackgroundColor(); got != [4]float32{0, 0, 0, 0} {
		t.Errorf("BackgroundColor() after set = %v", got)
	}
	if got := s.AmbientColor(); got != [3]float32{1, 1, 1} {
		t.Errorf("AmbientColor() after set = %v", got)
	}
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}
