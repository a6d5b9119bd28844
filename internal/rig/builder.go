package rig

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/mottledev/marionette/internal/skeleton"
)

// Walker is a self-contained quadruped over flat ground, built entirely
// from in-memory handles. It backs the headless demo and the package
// tests; production rigs receive their topology from the engine instead.
type Walker struct {
	*Character

	Body   *skeleton.Transform
	Limbs  []*skeleton.BoneChain
	Tail   *skeleton.BoneChain
	Ground skeleton.FlatGround
}

// NewWalker builds a four-legged walker with diagonal gait pairing and a
// three-segment tail, standing at the configured height over y=0.
func NewWalker(cfg Config, logger *zap.Logger) (*Walker, error) {
	standHeight := cfg.Locomotion.StandHeight
	body := skeleton.NewTransform(mgl64.Vec3{0, standHeight, 0})

	hips := []mgl64.Vec3{
		{-0.2, 0, 0.3},  // front left
		{0.2, 0, 0.3},   // front right
		{-0.2, 0, -0.3}, // back left
		{0.2, 0, -0.3},  // back right
	}
	// Diagonal pairs move together: FL+BR, then FR+BL.
	phases := []float64{0, 0.5, 0.5, 0}

	legLen := []float64{standHeight * 0.6, standHeight * 0.6}
	limbs := make([]*skeleton.BoneChain, len(hips))
	for i, hip := range hips {
		origin := body.Position().Add(hip)
		limbs[i] = skeleton.NewChain(origin, mgl64.Vec3{0, -1, 0}, legLen, skeleton.TagLimb)
		limbs[i].PhaseOffset = phases[i]
	}

	tailRoot := body.Position().Add(cfg.TailOffset)
	tail := skeleton.NewChain(tailRoot, mgl64.Vec3{0, 0, -1}, []float64{0.15, 0.15, 0.15}, skeleton.TagTail)

	ground := skeleton.FlatGround{Height: 0}
	ch, err := New(cfg, body, limbs, tail, ground, logger)
	if err != nil {
		return nil, err
	}
	return &Walker{
		Character: ch,
		Body:      body,
		Limbs:     limbs,
		Tail:      tail,
		Ground:    ground,
	}, nil
}
