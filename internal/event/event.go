// Package event defines the trace event schema written to trace.jsonl.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type is the top-level classification of a trace event.
type Type string

const (
	TypeLifecycle  Type = "lifecycle"
	TypeToolCall   Type = "tool_call"
	TypeToolResult Type = "tool_result"
	TypeEffect     Type = "effect"
)

// Category classifies an observed side effect.
type Category string

const (
	CategoryFsWrite         Category = "fs_write"
	CategoryFsRead          Category = "fs_read"
	CategoryFsDelete        Category = "fs_delete"
	CategoryNetOutbound     Category = "net_outbound"
	CategoryExec            Category = "exec"
	CategorySensitiveAccess Category = "sensitive_access"
)

// Kind distinguishes how an effect was established.
type Kind string

const (
	KindDeclared Kind = "declared"
	KindObserved Kind = "observed"
	KindInferred Kind = "inferred"
)

// TraceEvent is a single line in the trace file.
type TraceEvent struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"` // milliseconds since epoch
	RunID     string         `json:"run_id"`
	Type      Type           `json:"type"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FsEffectData describes a filesystem effect.
type FsEffectData struct {
	PathRequested    string `json:"path_requested"`
	PathResolved     string `json:"path_resolved"`
	IsWorkspaceLocal bool   `json:"is_workspace_local"`
}

// NetEffectData describes an outbound network effect.
type NetEffectData struct {
	HostRaw       string `json:"host_raw"`
	HostETLDPlus1 string `json:"host_etld_plus_1"`
	Method        string `json:"method"`
	Protocol      string `json:"protocol"` // http or https
	Port          int    `json:"port,omitempty"`
}

// ExecEffectData describes a process spawn effect.
type ExecEffectData struct {
	CommandRaw     string   `json:"command_raw"`
	ArgvNormalized []string `json:"argv_normalized"`
}

// SensitiveEffectData describes access to designated sensitive values.
type SensitiveEffectData struct {
	Type    string `json:"type"` // env_var or file_read
	KeyName string `json:"key_name,omitempty"`
}

const (
	SensitiveEnvVar   = "env_var"
	SensitiveFileRead = "file_read"
)

// EffectEventData is the data payload of an effect event. Exactly one of
// Fs, Net, Exec, Sensitive is set, matching Category.
type EffectEventData struct {
	Category  Category             `json:"category"`
	Kind      Kind                 `json:"kind"`
	Fs        *FsEffectData        `json:"fs,omitempty"`
	Net       *NetEffectData       `json:"net,omitempty"`
	Exec      *ExecEffectData      `json:"exec,omitempty"`
	Sensitive *SensitiveEffectData `json:"sensitive,omitempty"`
}

// New builds a TraceEvent with a fresh unique ID and the current timestamp.
func New(runID string, eventType Type, data map[string]any, metadata map[string]any) TraceEvent {
	return TraceEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		RunID:     runID,
		Type:      eventType,
		Data:      data,
		Metadata:  metadata,
	}
}

// NewEffect builds an observed effect TraceEvent from an effect payload.
func NewEffect(runID string, data EffectEventData) TraceEvent {
	return New(runID, TypeEffect, data.toMap(), nil)
}

// toMap converts an effect payload into the generic data map carried by a
// TraceEvent. Omitting unset payload variants keeps each trace line to
// exactly one payload object.
func (d EffectEventData) toMap() map[string]any {
	m := map[string]any{
		"category": string(d.Category),
		"kind":     string(d.Kind),
	}
	if d.Fs != nil {
		m["fs"] = d.Fs
	}
	if d.Net != nil {
		m["net"] = d.Net
	}
	if d.Exec != nil {
		m["exec"] = d.Exec
	}
	if d.Sensitive != nil {
		m["sensitive"] = d.Sensitive
	}
	return m
}
