package scene

import (
	"testing"
)

// translationOf extracts the translation column of a column-major matrix.
func translationOf(m [16]float32) [3]float32 {
	return [3]float32{m[12], m[13], m[14]}
}

func TestResolveRootUsesLocalMatrix(t *testing.T) {
	s := NewScene("test")
	root := NewNode(WithName("root"), WithTranslation(4, 5, 6))
	if err := s.Add(root, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	world := NewTransformResolver().Resolve(s)
	got, ok := world[root.ID()]
	if !ok {
		t.Fatal("root missing from resolve result")
	}
	if translationOf(got) != [3]float32{4, 5, 6} {
		t.Errorf("root world translation = %v, want (4,5,6)", translationOf(got))
	}
}

func TestResolveComposesParentChain(t *testing.T) {
	s := NewScene("test")
	root := NewNode(WithName("root"), WithTranslation(1, 0, 0))
	mid := NewNode(WithName("mid"), WithTranslation(0, 2, 0))
	leaf := NewNode(WithName("leaf"), WithTranslation(0, 0, 3))
	if err := s.Add(root, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(mid, root); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(leaf, mid); err != nil {
		t.Fatalf("Add: %v", err)
	}

	world := NewTransformResolver().Resolve(s)
	if len(world) != 3 {
		t.Fatalf("resolved %d nodes, want 3", len(world))
	}
	if got := translationOf(world[leaf.ID()]); got != [3]float32{1, 2, 3} {
		t.Errorf("leaf world translation = %v, want (1,2,3)", got)
	}
	if got := translationOf(world[mid.ID()]); got != [3]float32{1, 2, 0} {
		t.Errorf("mid world translation = %v, want (1,2,0)", got)
	}
}

func TestResolveAppliesParentScale(t *testing.T) {
	s := NewScene("test")
	root := NewNode(WithName("root"), WithScale(2, 2, 2))
	child := NewNode(WithName("child"), WithTranslation(1, 0, 0))
	if err := s.Add(root, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(child, root); err != nil {
		t.Fatalf("Add: %v", err)
	}

	world := NewTransformResolver().Resolve(s)
	if got := translationOf(world[child.ID()]); got != [3]float32{2, 0, 0} {
		t.Errorf("child world translation = %v, want (2,0,0)", got)
	}
}

func TestResolveReflectsReparenting(t *testing.T) {
	s := NewScene("test")
	a := NewNode(WithName("a"), WithTranslation(10, 0, 0))
	b := NewNode(WithName("b"), WithTranslation(0, 10, 0))
	child := NewNode(WithName("child"), WithTranslation(1, 1, 1))
	if err := s.Add(a, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(b, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(child, a); err != nil {
		t.Fatalf("Add: %v", err)
	}

	r := NewTransformResolver()
	world := r.Resolve(s)
	if got := translationOf(world[child.ID()]); got != [3]float32{11, 1, 1} {
		t.Errorf("child world translation under a = %v, want (11,1,1)", got)
	}

	// Moving a node is remove-then-add; the next resolve sees the new frame.
	if err := s.Remove(child); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Add(child, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	world = r.Resolve(s)
	if got := translationOf(world[child.ID()]); got != [3]float32{1, 11, 1} {
		t.Errorf("child world translation under b = %v, want (1,11,1)", got)
	}
}

func TestResolveUsesExplicitPose(t *testing.T) {
	s := NewScene("test")
	n := NewNode(WithName("n"), WithTranslation(1, 2, 3))
	if err := s.Add(n, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	pose := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		-7, 8, -9, 1,
	}
	if err := s.SetPose(n, pose); err != nil {
		t.Fatalf("SetPose: %v", err)
	}

	world := NewTransformResolver().Resolve(s)
	if got := translationOf(world[n.ID()]); got != [3]float32{-7, 8, -9} {
		t.Errorf("world translation = %v, want (-7,8,-9)", got)
	}
}

func TestResolveVisitsEveryMemberOnce(t *testing.T) {
	s := NewScene("test")
	root := NewNode(WithName("root"))
	if err := s.Add(root, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	parents := []Node{root}
	total := 1
	for depth := 0; depth < 4; depth++ {
		var next []Node
		for _, p := range parents {
			for i := 0; i < 3; i++ {
				c := NewNode()
				if err := s.Add(c, p); err != nil {
					t.Fatalf("Add: %v", err)
				}
				next = append(next, c)
				total++
			}
		}
		parents = next
	}

	world := NewTransformResolver().Resolve(s)
	if len(world) != total {
		t.Errorf("resolved %d nodes, want %d", len(world), total)
	}
	if s.Count() != total {
		t.Errorf("Count() = %d, want %d", s.Count(), total)
	}
}
