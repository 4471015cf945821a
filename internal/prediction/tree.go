package prediction

import (
	"fmt"
	"math"
)

// leafSumTolerance bounds how far a stored leaf distribution may drift from 1.
const leafSumTolerance = 1e-6

// Node is one entry of a flattened decision tree. Leaves have Feature == -1
// and carry the normalized class distribution of their training samples.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"`
}

// IsLeaf reports whether the node terminates a decision path.
func (n *Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is stored in pre-order, so every child index is greater than its
// parent's. validate enforces that, which guarantees traversal terminates.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// leaf walks x down to its leaf and returns the leaf's class distribution.
// Samples equal to the threshold go left.
func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t *Tree) validate(width, classes int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			if len(n.Value) != classes {
				return fmt.Errorf("leaf %d has %d class weights, want %d", i, len(n.Value), classes)
			}
			if err := validLeaf(n.Value); err != nil {
				return fmt.Errorf("leaf %d: %w", i, err)
			}
			continue
		}
		if n.Feature >= width {
			return fmt.Errorf("node %d splits on feature %d, encoder width is %d", i, n.Feature, width)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has out of range children (%d, %d)", i, n.Left, n.Right)
		}
	}
	return nil
}

func validLeaf(weights []float64) error {
	sum := 0.0
	for j, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("class weight %d is %v", j, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > leafSumTolerance {
		return fmt.Errorf("class weights sum to %v, want 1", sum)
	}
	return nil
}
