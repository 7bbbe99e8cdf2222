// Labboard - Research Lab Collaboration Platform
// Copyright 2026 Labboard contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/labboard/labboard

package services

import (
	"context"
)

// Runner is a component with a blocking, context-aware run loop.
type Runner interface {
	Serve(ctx context.Context) error
}

// ConsumerService names a Runner for supervision. The behavior event
// consumer runs under this wrapper in the data layer.
type ConsumerService struct {
	runner Runner
	name   string
}

// NewConsumerService wraps a runner.
func NewConsumerService(runner Runner, name string) *ConsumerService {
	return &ConsumerService{runner: runner, name: name}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	return s.runner.Serve(ctx)
}

// String names the service in supervisor logs.
func (s *ConsumerService) String() string {
	return s.name
}
