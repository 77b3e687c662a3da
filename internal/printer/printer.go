// Package printer provides the print capability consumed by the worker:
// an opaque, possibly slow print(job) -> ok|fail call. The queue is
// agnostic to the transport behind it.
package printer

import (
	"context"

	"github.com/taskspool/taskspool/internal/core"
)

type Printer interface {
	Print(ctx context.Context, job *core.Job) error
}
