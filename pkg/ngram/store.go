package ngram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Store persists one model per depth level. Implementations must make Save
// of different levels safe to call concurrently.
type Store interface {
	// Save writes m, replacing any model already stored for m.Level.
	Save(ctx context.Context, m *Model) error
	// Load returns the model stored for level, or an error wrapping
	// ErrModelNotFound.
	Load(ctx context.Context, level int) (*Model, error)
	// Levels lists the stored levels in ascending order.
	Levels(ctx context.Context) ([]int, error)
}

// ArtifactName is the deterministic name of the artifact holding a level.
func ArtifactName(level int) string {
	return fmt.Sprintf("level_%d.json", level)
}

// EncodeModel writes the durable form of m: a JSON object mapping each key to
// its count. Keys are written in sorted order.
func EncodeModel(w io.Writer, m *Model) error {
	if err := json.NewEncoder(w).Encode(m.Counts); err != nil {
		return &SerializationError{Artifact: ArtifactName(m.Level), Err: err}
	}
	return nil
}

// DecodeModel reads the durable form of a model: exactly one JSON object and
// nothing after it. If level is 0 it is taken from the length of the keys,
// which must then all agree. The decoded model
// is validated before it is returned.
func DecodeModel(r io.Reader, level int) (*Model, error) {
	artifact := "model"
	if level > 0 {
		artifact = ArtifactName(level)
	}
	dec := json.NewDecoder(r)
	counts := make(map[string]uint64)
	if err := dec.Decode(&counts); err != nil {
		return nil, &SerializationError{Artifact: artifact, Err: err}
	}
	if counts == nil {
		return nil, &SerializationError{Artifact: artifact, Err: errors.New("model is null, want an object")}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &SerializationError{Artifact: artifact, Err: errors.New("unexpected data after the model object")}
	}
	if level == 0 {
		for key := range counts {
			level = UnitCount(key)
			break
		}
		if level == 0 {
			return nil, &SerializationError{Artifact: artifact, Err: fmt.Errorf("cannot infer level of an empty model")}
		}
	}
	m := &Model{Level: level, Counts: counts}
	if err := m.Validate(); err != nil {
		return nil, &SerializationError{Artifact: artifact, Err: err}
	}
	return m, nil
}

// ExportModel writes the stored model of a level to w in its durable form.
func ExportModel(ctx context.Context, store Store, level int, w io.Writer) error {
	m, err := store.Load(ctx, level)
	if err != nil {
		return err
	}
	return EncodeModel(w, m)
}

// ImportModel decodes a model from r and merges it into the model already
// stored for its level, creating it if none exists. The merged model is
// saved and returned.
func ImportModel(ctx context.Context, store Store, r io.Reader) (*Model, error) {
	imported, err := DecodeModel(r, 0)
	if err != nil {
		return nil, err
	}
	existing, err := store.Load(ctx, imported.Level)
	switch {
	case err == nil:
	case isNotFound(err):
		existing = NewModel(imported.Level)
	default:
		return nil, err
	}
	if err = existing.Merge(imported); err != nil {
		return nil, err
	}
	if err = store.Save(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}
