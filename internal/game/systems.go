package game

import (
	"time"

	"bridgewalk/internal/physics"
	"bridgewalk/internal/sequence"
	"bridgewalk/internal/session"
)

// PhysicsSystem steps the physics world every tick. It runs first so the
// tracker sees settled positions.
type PhysicsSystem struct {
	world physics.World
}

func NewPhysicsSystem(world physics.World) *PhysicsSystem {
	return &PhysicsSystem{world: world}
}

func (s *PhysicsSystem) Update(deltaTime time.Duration) error {
	s.world.Step(deltaTime.Seconds())
	return nil
}

func (s *PhysicsSystem) GetName() string  { return "physics" }
func (s *PhysicsSystem) GetPriority() int { return 10 }

// SessionSystem feeds the tracked position into the session's tracker.
type SessionSystem struct {
	session *session.Session
}

func NewSessionSystem(sess *session.Session) *SessionSystem {
	return &SessionSystem{session: sess}
}

func (s *SessionSystem) Update(deltaTime time.Duration) error {
	s.session.Update()
	return nil
}

func (s *SessionSystem) GetName() string  { return "session" }
func (s *SessionSystem) GetPriority() int { return 20 }

// SequenceSystem consumes the sequence manager's deferred advance. It
// runs before the session, so an advance scheduled by a progress event
// is consumed at the start of the following tick and the state broadcast
// still shows the settled pre-advance state.
type SequenceSystem struct {
	manager *sequence.Manager
}

func NewSequenceSystem(manager *sequence.Manager) *SequenceSystem {
	return &SequenceSystem{manager: manager}
}

func (s *SequenceSystem) Update(deltaTime time.Duration) error {
	s.manager.Update()
	return nil
}

func (s *SequenceSystem) GetName() string  { return "sequence" }
func (s *SequenceSystem) GetPriority() int { return 15 }
