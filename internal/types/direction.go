package types

import (
	"fmt"
	"strings"
)

// Layer identifies one side of a rollup pair.
type Layer string

const (
	LayerL1 Layer = "l1"
	LayerL2 Layer = "l2"
)

// Direction names which layer's blocks are being checkpointed onto which.
type Direction string

const (
	// L1ToL2: L1 blocks are made available on L2.
	L1ToL2 Direction = "l1ToL2"
	// L2ToL1: L2 blocks are finalized on L1.
	L2ToL1 Direction = "l2ToL1"
)

// Directions lists every direction in a stable order.
var Directions = []Direction{L1ToL2, L2ToL1}

// SourceLayer is the layer whose blocks are being checkpointed.
func (d Direction) SourceLayer() Layer {
	if d == L2ToL1 {
		return LayerL2
	}
	return LayerL1
}

// CommittingLayer is the layer that holds the checkpoint records.
func (d Direction) CommittingLayer() Layer {
	if d == L2ToL1 {
		return LayerL1
	}
	return LayerL2
}

func (d Direction) Valid() bool {
	return d == L1ToL2 || d == L2ToL1
}

// ParseDirection accepts both camelCase and kebab-case spellings.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l1tol2", "l1-to-l2":
		return L1ToL2, nil
	case "l2tol1", "l2-to-l1":
		return L2ToL1, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}
