// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package operation

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// ⚙️ Operation is one unit of work handed to a runner
type Operation interface {
	Execute(ctx context.Context) error
}

// 🏃 OperationRunner executes operations
type OperationRunner struct {
	logger      *zerolog.Logger
	concurrency int
}

// 🏗️ NewRunner creates a new runner. A concurrency of 0 or 1 runs operations one by one.
func NewRunner(logger *zerolog.Logger, concurrency int) *OperationRunner {
	return &OperationRunner{
		logger:      logger,
		concurrency: concurrency,
	}
}

// 🏃 Run executes every operation, stopping at the first error
func (r *OperationRunner) Run(ctx context.Context, ops []Operation) error {
	if r.concurrency > 1 {
		return r.runAsync(ctx, ops)
	}
	return r.runSync(ctx, ops)
}

// 🔄 runSync runs operations in order
func (r *OperationRunner) runSync(ctx context.Context, ops []Operation) error {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("operation cancelled: %w", err)
		}
		if err := op.Execute(ctx); err != nil {
			return errors.Errorf("executing operation %d: %w", i, err)
		}
	}
	return nil
}

// ⚡ runAsync runs up to concurrency operations at once
func (r *OperationRunner) runAsync(ctx context.Context, ops []Operation) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	r.logger.Debug().Int("operations", len(ops)).Int("concurrency", r.concurrency).Msg("running operations concurrently")

	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Errorf("operation cancelled: %w", err)
			}
			if err := op.Execute(gctx); err != nil {
				return errors.Errorf("executing operation %d: %w", i, err)
			}
			return nil
		})
	}

	return g.Wait()
}
