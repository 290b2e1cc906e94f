package service

import (
	"context"
	"errors"
	"fmt"

	"megamillions/models"
	"megamillions/repository"

	log "github.com/sirupsen/logrus"
)

// ResultsService serves read access to published results tables
type ResultsService struct {
	store     SnapshotReader
	published map[string]struct{}
}

// NewResultsService creates a results service that only exposes the given tables
func NewResultsService(store SnapshotReader, publishedTables []string) *ResultsService {
	published := make(map[string]struct{}, len(publishedTables))
	for _, name := range publishedTables {
		published[name] = struct{}{}
	}
	return &ResultsService{store: store, published: published}
}

// List returns every row of a table. Unknown and unpublished tables are empty.
func (s *ResultsService) List(ctx context.Context, tableName string) ([]models.Row, error) {
	if !s.isPublished(tableName) {
		return []models.Row{}, nil
	}

	rows, err := s.store.ReadAll(ctx, tableName)
	return s.result(tableName, rows, err)
}

// Get returns the row with the given index as a zero or one element slice
func (s *ResultsService) Get(ctx context.Context, tableName string, id int64) ([]models.Row, error) {
	if id < 0 || !s.isPublished(tableName) {
		return []models.Row{}, nil
	}

	rows, err := s.store.ReadByID(ctx, tableName, id)
	return s.result(tableName, rows, err)
}

func (s *ResultsService) isPublished(tableName string) bool {
	_, ok := s.published[tableName]
	return ok
}

// result turns query failures into empty results; connectivity failures propagate
func (s *ResultsService) result(tableName string, rows []models.Row, err error) ([]models.Row, error) {
	switch {
	case err == nil:
		if rows == nil {
			rows = []models.Row{}
		}
		return rows, nil
	case errors.Is(err, repository.ErrQuery), errors.Is(err, repository.ErrInvalidTableName):
		log.WithError(err).WithField("table", tableName).Warn("Results query failed, returning no rows")
		return []models.Row{}, nil
	default:
		return nil, fmt.Errorf("failed to read table %s: %w", tableName, err)
	}
}
