package app

import (
	"sync"

	"github.com/dkeye/watchroom/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	// DropFrame skips the frame. State frames are full snapshots, so the
	// member catches up on the next one it accepts.
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send queue is full.
type Policy interface {
	OnBackPressure(room *core.Room, member core.MemberSession) BackpressureAction
}

// SimplePolicy kicks slow members; they reconnect and get a fresh sync.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room *core.Room, member core.MemberSession) BackpressureAction {
	return KickMember
}

// StrikePolicy drops frames for a slow member and kicks it on the
// Limit-th full queue.
type StrikePolicy struct {
	Limit int

	mu      sync.Mutex
	strikes map[core.SessionID]int
}

func NewStrikePolicy(limit int) *StrikePolicy {
	return &StrikePolicy{Limit: limit, strikes: make(map[core.SessionID]int)}
}

func (p *StrikePolicy) OnBackPressure(room *core.Room, member core.MemberSession) BackpressureAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strikes[member.ID()]++
	if p.strikes[member.ID()] < p.Limit {
		return DropFrame
	}
	delete(p.strikes, member.ID())
	return KickMember
}

// Forget clears the strikes of a gone session.
func (p *StrikePolicy) Forget(sid core.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.strikes, sid)
}
