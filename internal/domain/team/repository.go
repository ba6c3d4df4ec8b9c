package team

import "context"

// Repository describes team reads; teams are written only through match reconciliation.
type Repository interface {
	List(ctx context.Context) ([]Team, error)
}
