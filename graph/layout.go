package graph

import "sort"

// Node footprints and spacing, tuned for full-content answer cards next to
// compact question chips. Layers run left to right; the layer gap widens when
// any answer node is expanded, which in this system is always.
const (
	answerNodeWidth    = 600
	answerNodeHeight   = 500
	questionNodeWidth  = 300
	questionNodeHeight = 100

	nodeSeparation          = 100 // vertical gap between nodes in a layer
	layerSeparation         = 100 // horizontal gap between layers
	expandedLayerSeparation = 200
	layoutMarginX           = 200
	layoutMarginY           = 100
	expandedLayoutMarginY   = 200

	edgeStroke      = "rgba(248, 248, 248, 0.8)"
	edgeStrokeWidth = 1.5
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PositionedNode is a Node annotated with its top-left position and
// footprint. The embedded Node is a copy; Layout never mutates its input.
type PositionedNode struct {
	Node
	Position       Position `json:"position"`
	Width          float64  `json:"width"`
	Height         float64  `json:"height"`
	SourcePosition string   `json:"sourcePosition"`
	TargetPosition string   `json:"targetPosition"`
}

type EdgeStyle struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

type EdgeMarker struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// StyledEdge is an Edge annotated for rendering: an animated bezier curve
// with a closed arrow marker at the target.
type StyledEdge struct {
	Edge
	Type      string     `json:"type"`
	Animated  bool       `json:"animated"`
	Style     EdgeStyle  `json:"style"`
	MarkerEnd EdgeMarker `json:"markerEnd"`
}

// Layout assigns every node a non-overlapping top-left position using a
// layered left-to-right drawing:
//
//  1. Longest-path layering: roots sit in layer 0, every other node one layer
//     right of its furthest predecessor, so children always draw after their
//     parents.
//  2. Within a layer, nodes are ordered by the barycenter of their
//     predecessors' vertical centers, input order breaking ties.
//  3. Layers are packed with per-kind footprints plus fixed separations.
//
// Output order matches input order. Malformed input (an edge referencing an
// unknown node, or a cycle) is a programming error and panics.
func Layout(nodes []Node, edges []Edge) []PositionedNode {
	if len(nodes) == 0 {
		return []PositionedNode{}
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	preds := make([][]int, len(nodes))
	succs := make([][]int, len(nodes))
	for _, e := range edges {
		src, ok := index[e.Source]
		if !ok {
			panic("graph: edge source " + e.Source + " not in node set")
		}
		dst, ok := index[e.Target]
		if !ok {
			panic("graph: edge target " + e.Target + " not in node set")
		}
		preds[dst] = append(preds[dst], src)
		succs[src] = append(succs[src], dst)
	}

	layerOf := longestPathLayers(len(nodes), preds, succs)

	maxLayer := 0
	for _, l := range layerOf {
		if l > maxLayer {
			maxLayer = l
		}
	}
	layers := make([][]int, maxLayer+1)
	for i, l := range layerOf {
		layers[l] = append(layers[l], i)
	}

	expanded := false
	for _, n := range nodes {
		if n.Kind == KindAnswer && n.Expanded {
			expanded = true
			break
		}
	}
	layerGap := float64(layerSeparation)
	marginY := float64(layoutMarginY)
	if expanded {
		layerGap = expandedLayerSeparation
		marginY = expandedLayoutMarginY
	}

	out := make([]PositionedNode, len(nodes))
	yCenter := make([]float64, len(nodes))
	xCursor := float64(layoutMarginX)

	for _, layer := range layers {
		orderLayer(layer, preds, yCenter)

		layerWidth := 0.0
		for _, i := range layer {
			if w, _ := footprint(nodes[i]); w > layerWidth {
				layerWidth = w
			}
		}

		yCursor := marginY
		for _, i := range layer {
			w, h := footprint(nodes[i])
			out[i] = PositionedNode{
				Node: nodes[i],
				// Center each node horizontally within its layer.
				Position:       Position{X: xCursor + (layerWidth-w)/2, Y: yCursor},
				Width:          w,
				Height:         h,
				SourcePosition: "right",
				TargetPosition: "left",
			}
			yCenter[i] = yCursor + h/2
			yCursor += h + nodeSeparation
		}

		xCursor += layerWidth + layerGap
	}

	return out
}

// StyleEdges annotates edges for rendering without touching their identity
// fields.
func StyleEdges(edges []Edge) []StyledEdge {
	out := make([]StyledEdge, len(edges))
	for i, e := range edges {
		out[i] = StyledEdge{
			Edge:     e,
			Type:     "default",
			Animated: true,
			Style: EdgeStyle{
				Stroke:      edgeStroke,
				StrokeWidth: edgeStrokeWidth,
			},
			MarkerEnd: EdgeMarker{
				Type:  "arrowclosed",
				Color: edgeStroke,
			},
		}
	}
	return out
}

// longestPathLayers computes each node's layer as the maximum predecessor
// layer plus one, via Kahn's algorithm. Panics on a cycle.
func longestPathLayers(n int, preds, succs [][]int) []int {
	layer := make([]int, n)
	indegree := make([]int, n)
	for i := range preds {
		indegree[i] = len(preds[i])
	}

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	processed := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		processed++

		for _, next := range succs[node] {
			if layer[node]+1 > layer[next] {
				layer[next] = layer[node] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if processed != n {
		panic("graph: cycle in exploration graph")
	}

	return layer
}

// orderLayer sorts one layer's nodes by the mean vertical center of their
// predecessors, which all sit in earlier, already-placed layers. Nodes
// without predecessors form their own class ahead of positioned ones, and
// ties keep input order.
func orderLayer(layer []int, preds [][]int, yCenter []float64) {
	bary := make(map[int]float64, len(layer))
	for _, i := range layer {
		if len(preds[i]) == 0 {
			continue
		}
		sum := 0.0
		for _, p := range preds[i] {
			sum += yCenter[p]
		}
		bary[i] = sum / float64(len(preds[i]))
	}

	sort.SliceStable(layer, func(a, b int) bool {
		ba, okA := bary[layer[a]]
		bb, okB := bary[layer[b]]
		if okA != okB {
			return !okA
		}
		if !okA {
			return false
		}
		return ba < bb
	})
}

func footprint(n Node) (width, height float64) {
	if n.Kind == KindAnswer {
		return answerNodeWidth, answerNodeHeight
	}
	return questionNodeWidth, questionNodeHeight
}
