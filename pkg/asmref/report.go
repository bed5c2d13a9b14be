// SPDX-License-Identifier: MPL-2.0

package asmref

import (
	"context"

	"github.com/cilbind/cilbind/pkg/cil"
)

type (
	// Resolution pairs a reference with the definition it resolved to. A nil
	// Definition means the reference is not scoped to an assembly.
	Resolution struct {
		Reference  cil.TypeRef
		Definition *cil.TypeDefinition
	}

	// Report collects the outcome of a ResolveAll sweep.
	Report struct {
		Resolved []Resolution
		// Skipped counts references whose scope is not an assembly.
		Skipped int
	}
)

// Len returns the number of references visited.
func (r Report) Len() int { return len(r.Resolved) }

// ResolveAll resolves refs in order. It stops at the first error and returns
// the report built so far alongside it.
func (r *Resolver) ResolveAll(ctx context.Context, refs []cil.TypeRef) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var report Report
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		def, err := r.typeDefinition(ctx, ref)
		if err != nil {
			return report, err
		}
		if def == nil {
			report.Skipped++
		}
		report.Resolved = append(report.Resolved, Resolution{Reference: ref, Definition: def})
	}
	return report, nil
}
