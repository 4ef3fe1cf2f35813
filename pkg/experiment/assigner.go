package experiment

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"meridian-hq/vega/pkg/decision"
	"meridian-hq/vega/pkg/store"
)

// Assigner resolves experiment variants for decision subjects.
type Assigner struct {
	store  store.Store
	logger *slog.Logger
}

// NewAssigner creates an assigner backed by the given store.
func NewAssigner(s store.Store, logger *slog.Logger) *Assigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assigner{
		store:  s,
		logger: logger.With("component", "experiment_assigner"),
	}
}

// BucketVariant computes the deterministic bucket for a subject key.
// The last byte of the key's SHA-256 digest decides the bucket, which
// gives an approximately even split across distinct keys.
func BucketVariant(subjectKey string) string {
	sum := sha256.Sum256([]byte(subjectKey))
	if sum[len(sum)-1]%2 == 1 {
		return decision.VariantTreatment
	}
	return decision.VariantControl
}

// Resolve returns the subject's variant for the experiment, enrolling
// the subject on first sight. It returns an empty variant when the
// experiment does not exist or is no longer enrolling, so callers can
// treat "no experiment" and "not assignable" the same way.
func (a *Assigner) Resolve(ctx context.Context, experimentID, subjectKey string) (string, error) {
	if experimentID == "" || subjectKey == "" {
		return "", nil
	}

	existing, err := a.store.GetAssignment(ctx, experimentID, subjectKey)
	if err == nil {
		return existing.Variant, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to look up assignment: %w", err)
	}

	exp, err := a.store.GetExperiment(ctx, experimentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load experiment: %w", err)
	}
	if !exp.Assignable() {
		return "", nil
	}

	variant := BucketVariant(subjectKey)
	stored, err := a.store.PutAssignment(ctx, store.Assignment{
		ExperimentID: experimentID,
		SubjectKey:   subjectKey,
		Variant:      variant,
	})
	if err != nil {
		return "", fmt.Errorf("failed to persist assignment: %w", err)
	}

	a.logger.Debug("subject enrolled",
		"experiment_id", experimentID,
		"variant", stored.Variant,
	)

	// A concurrent enroll may have won the insert; the stored row is
	// authoritative either way.
	return stored.Variant, nil
}
