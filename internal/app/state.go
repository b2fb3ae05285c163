// Package app holds the process-wide engine and its readiness.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/eacrag/internal/model"
	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "initializing"
	}
}

type Answerer interface {
	Answer(ctx context.Context, query string) (*model.Answer, error)
}

type Builder interface {
	Build(ctx context.Context) (*model.BuildReport, error)
}

// Engine is the pair of services handlers need once startup has finished.
type Engine struct {
	Answers   Answerer
	Knowledge Builder
}

// State moves from initializing to exactly one of ready or failed.
type State struct {
	mu     sync.RWMutex
	phase  Phase
	engine *Engine
	err    error
}

func NewState() *State {
	return &State{}
}

func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Err returns the startup failure, if any.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Engine returns the engine when ready and an ErrNotReady error otherwise.
func (s *State) Engine() (*Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase != PhaseReady {
		return nil, fmt.Errorf("%w: %s", appErr.ErrNotReady, s.phase)
	}
	return s.engine, nil
}

func (s *State) SetReady(engine *Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInitializing {
		return
	}
	s.engine = engine
	s.phase = PhaseReady
}

func (s *State) SetFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInitializing {
		return
	}
	s.err = err
	s.phase = PhaseFailed
}

// Initialize runs build in the background and records its outcome. The returned
// channel is closed once the state has left initializing.
func (s *State) Initialize(ctx context.Context, build func(context.Context) (*Engine, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger := logutil.GetLogger(ctx)
		engine, err := build(ctx)
		if err != nil {
			logger.Error("engine startup failed", zap.Error(err))
			s.SetFailed(err)
			return
		}
		logger.Info("engine ready")
		s.SetReady(engine)
	}()
	return done
}
