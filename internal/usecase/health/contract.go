package health

import "context"

// Checker reports availability of one backend.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
