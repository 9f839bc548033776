package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

const uniqueViolation = "23505"

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, uniqueViolation) ||
		strings.Contains(errMsg, "duplicate key")
}

// toVector converts an embedding to the pgvector column type
func toVector(embedding []float64) pgvector.Vector {
	floats := make([]float32, len(embedding))
	for i, v := range embedding {
		floats[i] = float32(v)
	}
	return pgvector.NewVector(floats)
}

// fromVector converts a pgvector column back to an embedding
func fromVector(v *pgvector.Vector) []float64 {
	if v == nil {
		return nil
	}
	slice := v.Slice()
	if slice == nil {
		return nil
	}
	out := make([]float64, len(slice))
	for i, f := range slice {
		out[i] = float64(f)
	}
	return out
}
