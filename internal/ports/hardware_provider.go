package ports

import (
	"context"

	"github.com/bnema/nodetel/internal/domain"
)

type HardwareFactsProvider interface {
	Collect(ctx context.Context) (domain.HardwareSnapshot, error)
}
