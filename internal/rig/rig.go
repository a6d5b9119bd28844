// Package rig composes the motion core into one controllable character:
// a locomotion controller over the limb chains, a Verlet chain for tail
// secondary motion, and a ragdoll muscle set, all registered on a shared
// pipeline in dependency order. The rig owns nothing below the handles;
// it wires collaborators together and carries the character's identity.
package rig

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mottledev/marionette/internal/locomotion"
	"github.com/mottledev/marionette/internal/noise"
	"github.com/mottledev/marionette/internal/pipeline"
	"github.com/mottledev/marionette/internal/ragdoll"
	"github.com/mottledev/marionette/internal/skeleton"
	"github.com/mottledev/marionette/internal/verlet"
)

// Config bundles per-subsystem tunables for one character.
type Config struct {
	Locomotion locomotion.Config `mapstructure:"locomotion" yaml:"locomotion"`
	Verlet     verlet.Config     `mapstructure:"verlet" yaml:"verlet"`
	Ragdoll    ragdoll.Config    `mapstructure:"ragdoll" yaml:"ragdoll"`

	// TailOffset anchors the secondary-motion chain in body space.
	TailOffset mgl64.Vec3 `mapstructure:"tail_offset" yaml:"tail_offset"`
	// Seed drives the noise field. Equal seeds reproduce identical motion.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns tunables for the default quadruped walker.
func DefaultConfig() Config {
	return Config{
		Locomotion: locomotion.DefaultConfig(),
		Verlet:     verlet.DefaultConfig(),
		Ragdoll:    ragdoll.DefaultConfig(),
		TailOffset: mgl64.Vec3{0, 0, -0.35},
		Seed:       1,
	}
}

// Character is one rigged character. Build with New, wire onto a pipeline
// with Attach, and drive it through SetMoveInput and Impact between
// frames.
type Character struct {
	id     uuid.UUID
	logger *zap.Logger

	body skeleton.TransformHandle
	loco *locomotion.Controller
	rag  *ragdoll.Controller
	tail *tailUnit

	attached []pipeline.Unit
}

// New builds a character from borrowed topology: the body handle, the limb
// chains and an optional tail chain (nil for tailless rigs). A malformed
// tail degrades to no secondary motion with a warning, matching the
// limb policy.
func New(
	cfg Config,
	body skeleton.TransformHandle,
	limbs []*skeleton.BoneChain,
	tail *skeleton.BoneChain,
	ground skeleton.GroundQuerier,
	logger *zap.Logger,
) (*Character, error) {
	if logger == nil {
		return nil, errors.New("rig: logger cannot be nil")
	}
	id := uuid.New()
	logger = logger.With(zap.String("character", id.String()))

	loco, err := locomotion.NewController(cfg.Locomotion, body, limbs, ground, logger)
	if err != nil {
		return nil, fmt.Errorf("rig: building locomotion: %w", err)
	}
	rag, err := ragdoll.NewController(cfg.Ragdoll, logger)
	if err != nil {
		return nil, fmt.Errorf("rig: building ragdoll: %w", err)
	}

	c := &Character{
		id:     id,
		logger: logger,
		body:   body,
		loco:   loco,
		rag:    rag,
	}

	if tail != nil {
		field := noise.NewPerlin(cfg.Seed, cfg.Verlet.NoiseFrequency)
		tu, err := newTailUnit(tail, cfg.Verlet, body, cfg.TailOffset, field)
		if err != nil {
			logger.Warn("malformed tail chain, disabling secondary motion", zap.Error(err))
		} else {
			c.tail = tu
		}
	}
	return c, nil
}

// ID returns the character's stable identity.
func (c *Character) ID() uuid.UUID { return c.id }

// Locomotion exposes the foot-placement and balance controller.
func (c *Character) Locomotion() *locomotion.Controller { return c.loco }

// Ragdoll exposes the muscle controller, for adding joints and telemetry.
func (c *Character) Ragdoll() *ragdoll.Controller { return c.rag }

// HasTail reports whether secondary motion is live.
func (c *Character) HasTail() bool { return c.tail != nil }

// SetMoveInput sets the desired ground velocity for subsequent frames.
func (c *Character) SetMoveInput(v mgl64.Vec3) { c.loco.SetMoveInput(v) }

// Impact weakens the ragdoll muscles and arms their auto-recovery.
func (c *Character) Impact(severity float64) { c.rag.Impact(severity) }

// Attach registers every unit of this character on the pipeline, wired so
// the tail follows the balanced body and the ragdoll runs as a leaf.
func (c *Character) Attach(p *pipeline.Pipeline) error {
	if p == nil {
		return errors.New("rig: pipeline cannot be nil")
	}
	if len(c.attached) > 0 {
		return errors.New("rig: character is already attached")
	}

	stride, ikU, balance, err := c.loco.Register(p)
	if err != nil {
		return fmt.Errorf("rig: registering locomotion: %w", err)
	}
	units := []pipeline.Unit{stride, ikU, balance}

	if c.tail != nil {
		c.tail.exec = p.Executor()
		if err := p.Attach(c.tail); err != nil {
			return fmt.Errorf("rig: attaching tail: %w", err)
		}
		units = append(units, c.tail)
		if err := p.DependOn(c.tail, balance); err != nil {
			return fmt.Errorf("rig: wiring tail after balance: %w", err)
		}
	}

	ru := c.rag.Unit(p.Executor())
	if err := p.Attach(ru); err != nil {
		return fmt.Errorf("rig: attaching ragdoll: %w", err)
	}
	units = append(units, ru)

	c.attached = units
	c.logger.Info("character attached",
		zap.Int("units", len(units)),
		zap.Bool("tail", c.tail != nil),
		zap.Int("muscles", c.rag.MuscleCount()),
	)
	return nil
}

// Detach removes every previously attached unit from the pipeline.
func (c *Character) Detach(p *pipeline.Pipeline) error {
	if p == nil {
		return errors.New("rig: pipeline cannot be nil")
	}
	var firstErr error
	for _, u := range c.attached {
		if err := p.Detach(u); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.attached = nil
	return firstErr
}
