package activity

import (
	"strings"
	"time"
)

// SourceContext captures which input source supplied an option value.
type SourceContext struct {
	Name     string
	Priority int
	Raw      []string
}

// OptionEventInput describes the common fields for resolution lifecycle events.
type OptionEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	RunID      string
	Program    string
	Option     string
	Identity   string
	Channel    string
	Metadata   map[string]any
	Source     SourceContext
	Value      any
	Err        error
	OccurredAt time.Time
}

const (
	ObjectTypeOption = "options.option"
	ObjectTypeRun    = "options.run"
)

// BuildOptionResolvedEvent describes one option that resolved successfully.
func BuildOptionResolvedEvent(input OptionEventInput) Event {
	return buildOptionEvent("options.option.resolved", ObjectTypeOption, input.Option, input)
}

// BuildRunCompletedEvent describes a run where every option evaluated.
func BuildRunCompletedEvent(input OptionEventInput) Event {
	return buildOptionEvent("options.run.completed", ObjectTypeRun, input.RunID, input)
}

// BuildResolutionFailedEvent describes a run aborted by an evaluation error.
func BuildResolutionFailedEvent(input OptionEventInput) Event {
	return buildOptionEvent("options.run.failed", ObjectTypeRun, input.RunID, input)
}

// BuildHelpRenderedEvent describes a run where usage text was rendered.
func BuildHelpRenderedEvent(input OptionEventInput) Event {
	return buildOptionEvent("options.help.rendered", ObjectTypeRun, input.RunID, input)
}

func buildOptionEvent(verb, objectType, objectID string, input OptionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.RunID != "" {
		metadata = ensureMetadata(metadata)
		metadata["run_id"] = input.RunID
	}
	if input.Program != "" {
		metadata = ensureMetadata(metadata)
		metadata["program"] = input.Program
	}
	if input.Option != "" && objectType != ObjectTypeOption {
		metadata = ensureMetadata(metadata)
		metadata["option"] = input.Option
	}
	if input.Identity != "" {
		metadata = ensureMetadata(metadata)
		metadata["identity"] = input.Identity
	}
	if input.Source.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["source"] = input.Source.Name
		metadata["source_priority"] = input.Source.Priority
		if len(input.Source.Raw) > 0 {
			metadata["source_raw"] = append([]string{}, input.Source.Raw...)
		}
	}
	if input.Value != nil {
		metadata = ensureMetadata(metadata)
		metadata["value"] = input.Value
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.RunID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		RunID:      strings.TrimSpace(input.RunID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
