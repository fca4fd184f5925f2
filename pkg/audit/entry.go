// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/teamtrait/identity-service/internal/types"
)

// Entry builds an audit entry carrying the request origin. Actor and tenant
// are filled in by Record from the principal.
func Entry(r *http.Request, action, entityType, entityID string) types.AuditEntry {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return types.AuditEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RemoteAddr: host,
		UserAgent:  r.UserAgent(),
	}
}

// Snapshot serializes a before or after state for an entry. Marshal failures
// degrade to null rather than losing the entry.
func Snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
