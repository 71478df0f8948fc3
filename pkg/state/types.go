package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	flagenv "github.com/goliatone/go-flagenv"
	"github.com/google/uuid"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted snapshot.
type Ref struct {
	Program string
	Profile string
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	program := strings.TrimSpace(r.Program)
	if program == "" {
		return "", fmt.Errorf("state: program is required")
	}
	if strings.Contains(program, "/") {
		return "", fmt.Errorf("state: program %q must not contain '/'", program)
	}
	profile := strings.TrimSpace(r.Profile)
	if profile == "" {
		return "program/" + program, nil
	}
	if strings.Contains(profile, "/") {
		return "", fmt.Errorf("state: profile %q must not contain '/'", profile)
	}
	return fmt.Sprintf("program/%s/profile/%s", program, profile), nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Snapshot is the persisted form of a successful run.
type Snapshot struct {
	RunID      string            `json:"run_id"`
	Program    string            `json:"program"`
	Values     map[string]any    `json:"values"`
	Sources    map[string]string `json:"sources,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Validate rejects snapshots without values.
func (s Snapshot) Validate() error {
	if s.Values == nil {
		return fmt.Errorf("state: snapshot has no values")
	}
	return nil
}

// FromResult captures the set values of result and where each came from.
func FromResult(result *flagenv.Result, now time.Time) Snapshot {
	snap := Snapshot{
		Values:     result.Values(),
		Sources:    map[string]string{},
		RecordedAt: now.UTC(),
	}
	if result == nil {
		return snap
	}
	snap.RunID = result.RunID
	snap.Program = result.Program
	for name := range snap.Values {
		if res, ok := result.Get(name); ok {
			snap.Sources[name] = res.Source.String()
		}
	}
	return snap
}

// Recorder saves run results into a Store.
type Recorder struct {
	Store Store[Snapshot]
	Now   func() time.Time
}

// Record snapshots result under ref. A non-empty meta.ETag must match the
// stored one. SnapshotID defaults to a new UUID and ETag is derived from the
// recorded values.
func (r Recorder) Record(ctx context.Context, ref Ref, result *flagenv.Result, meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if result == nil {
		return Meta{}, fmt.Errorf("state: result is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}

	_, loaded, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.Program, err)
	}
	if ok && meta.ETag != "" && loaded.ETag != "" && meta.ETag != loaded.ETag {
		return loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loaded.ETag)
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	snap := FromResult(result, now)
	etag, err := ETag(snap.Values)
	if err != nil {
		return Meta{}, err
	}

	save := Meta{
		SnapshotID: meta.SnapshotID,
		ETag:       etag,
		UpdatedAt:  snap.RecordedAt,
		Extra:      meta.Extra,
	}
	if save.SnapshotID == "" {
		save.SnapshotID = uuid.NewString()
	}
	saved, err := r.Store.Save(ctx, ref, snap, save)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q: %w", ref.Program, err)
	}
	return saved, nil
}

// Mutator edits a loaded snapshot in place.
type Mutator[T any] func(*T) error

type validator interface {
	Validate() error
}

// Mutate loads one snapshot, applies fn, validates the result when it
// implements Validate() error, then saves it under an ETag computed from the
// mutated snapshot.
func Mutate[T any](ctx context.Context, store Store[T], ref Ref, meta Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	if store == nil {
		return zero, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return zero, Meta{}, fmt.Errorf("state: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return zero, Meta{}, err
	}

	snapshot, loaded, ok, err := store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("state: load %q: %w", ref.Program, err)
	}
	if !ok {
		snapshot = zero
		loaded = Meta{}
	}

	if meta.ETag != "" && loaded.ETag != "" && meta.ETag != loaded.ETag {
		return zero, loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loaded.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return zero, loaded, err
	}
	if v, ok := any(snapshot).(validator); ok {
		if err := v.Validate(); err != nil {
			return zero, loaded, err
		}
	}

	next := mergeMeta(loaded, meta)
	if next.ETag, err = snapshotETag(snapshot); err != nil {
		return zero, loaded, err
	}

	saved, err := store.Save(ctx, ref, snapshot, next)
	if err != nil {
		return zero, loaded, fmt.Errorf("state: save %q: %w", ref.Program, err)
	}
	return snapshot, saved, nil
}

// ETag hashes the JSON encoding of values.
func ETag(values map[string]any) (string, error) {
	return digest(values)
}

// snapshotETag keeps Snapshot etags in line with Recorder and hashes any
// other state type whole.
func snapshotETag(v any) (string, error) {
	if snap, ok := v.(Snapshot); ok {
		return ETag(snap.Values)
	}
	return digest(v)
}

func digest(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("state: etag: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8]), nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
