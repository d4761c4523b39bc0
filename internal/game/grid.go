package game

import (
	"errors"
	"math/rand/v2"
)

var (
	ErrOutOfGrid    = errors.New("position outside the grid")
	ErrInvalidShape = errors.New("unknown shape kind or color")
)

// Grid is a square building area of side Size centered at the origin.
type Grid struct {
	Size int
}

func (g Grid) half() int { return g.Size / 2 }

// Contains reports whether p lies on the grid: x and z in [-half, half-1],
// y in [0, MaxHeight].
func (g Grid) Contains(p Position) bool {
	h := g.half()
	return p.X >= -h && p.X <= h-1 &&
		p.Z >= -h && p.Z <= h-1 &&
		p.Y >= 0 && p.Y <= MaxHeight
}

// Randomizer samples grid positions, shapes and colors uniformly.
// It is not safe for concurrent use; the engine guards it.
type Randomizer struct {
	grid Grid
	rnd  *rand.Rand
}

func NewRandomizer(grid Grid, src rand.Source) *Randomizer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Randomizer{grid: grid, rnd: rand.New(src)}
}

func (r *Randomizer) RandomPosition() Position {
	h := r.grid.half()
	return Position{
		X: r.rnd.IntN(r.grid.Size) - h,
		Y: r.rnd.IntN(MaxHeight + 1),
		Z: r.rnd.IntN(r.grid.Size) - h,
	}
}

func (r *Randomizer) RandomShape() ShapeKind {
	return ShapeKinds[r.rnd.IntN(len(ShapeKinds))]
}

func (r *Randomizer) RandomColor() Color {
	return Colors[r.rnd.IntN(len(Colors))]
}
