// Package auth decides who may talk to the bot and who may perform admin
// actions such as reloading intent rules or editing the catalog.
package auth

import (
	"strconv"
	"strings"
)

// PolicyService answers access questions for both front ends. Telegram
// identities are numeric user ids; HTTP admin calls authenticate with a
// shared token instead.
type PolicyService struct {
	adminIDs   map[int64]bool
	allowedIDs map[int64]bool // empty means everyone may chat
	adminToken string
}

// NewPolicyService parses the comma-separated id lists from configuration.
// Malformed ids are skipped. An empty adminToken disables the HTTP admin
// surface entirely.
func NewPolicyService(adminIDs, allowedIDs, adminToken string) *PolicyService {
	return &PolicyService{
		adminIDs:   parseIDList(adminIDs),
		allowedIDs: parseIDList(allowedIDs),
		adminToken: adminToken,
	}
}

func parseIDList(raw string) map[int64]bool {
	ids := make(map[int64]bool)
	if raw == "" {
		return ids
	}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids[id] = true
		}
	}
	return ids
}

// IsAdmin reports whether the Telegram user may perform admin commands.
func (p *PolicyService) IsAdmin(userID int64) bool {
	return p.adminIDs[userID]
}

// IsAllowed reports whether the Telegram user may chat at all. An empty
// allow-list admits everyone; admins are always admitted.
func (p *PolicyService) IsAllowed(userID int64) bool {
	if len(p.allowedIDs) == 0 {
		return true
	}
	if p.IsAdmin(userID) {
		return true
	}
	return p.allowedIDs[userID]
}

// CheckAdminToken reports whether an HTTP caller presented the admin token.
// With no token configured every call is rejected.
func (p *PolicyService) CheckAdminToken(token string) bool {
	return p.adminToken != "" && token == p.adminToken
}
