package gatewayhttp

import (
	"encoding/json"
	"net/http"

	"github.com/prizm-dev/prizm/internal/chat"
)

// handleStop cancels any in-flight turn for the session.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	scope := s.scopeFor(r)
	s.rt.Chat.Stop(scope, sessionID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"stopped": true})
}

// interactResponseBody is the body of POST /agent/sessions/:id/interact-response.
type interactResponseBody struct {
	RequestID string                 `json:"requestId"`
	Approved  bool                   `json:"approved"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// handleInteractResponse delivers a pending interact-request's answer.
func (s *Server) handleInteractResponse(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body interactResponseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	scope := s.scopeFor(r)
	resolved := s.rt.Chat.ResolveInteract(scope, sessionID, chat.InteractResponse{
		RequestID: body.RequestID,
		Approved:  body.Approved,
		Data:      body.Data,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"resolved": resolved})
}

// resourceLockedBody is the 423 response shape for a held resource lock.
type resourceLockedBody struct {
	Error string            `json:"error"`
	Code  string            `json:"code"`
	Lock  lockInfo          `json:"lock"`
}

type lockInfo struct {
	SessionID  string  `json:"sessionId"`
	AcquiredAt string  `json:"acquiredAt"`
	Reason     string  `json:"reason,omitempty"`
	ExpiresAt  string  `json:"expiresAt"`
}

// checkLock enforces a resource lock before a mutating operation proceeds.
// Returns true if the caller may proceed (lock acquired, or force=true
// released the current holder, whatever its state, and the retry acquired
// it); writes a 423 Resource Locked response and
// returns false otherwise.
func (s *Server) checkLock(w http.ResponseWriter, r *http.Request, scope, resourceType, resourceID, sessionID, reason string, ttlMs int64) bool {
	force := r.URL.Query().Get("force") == "true"

	res := s.rt.Locks.Acquire(scope, resourceType, resourceID, sessionID, reason, ttlMs)
	if res.Acquired {
		return true
	}

	if force {
		s.rt.Locks.ForceRelease(scope, resourceType, resourceID)
		res = s.rt.Locks.Acquire(scope, resourceType, resourceID, sessionID, reason, ttlMs)
		if res.Acquired {
			return true
		}
	}

	held := res.HeldBy
	body := resourceLockedBody{
		Error: "resource locked",
		Code:  "RESOURCE_LOCKED",
	}
	if held != nil {
		body.Lock = lockInfo{
			SessionID:  held.SessionID,
			AcquiredAt: held.AcquiredAt.Format(rfc3339),
			Reason:     held.Reason,
			ExpiresAt:  held.LastHeartbeat.Add(msToDuration(held.TTLMs)).Format(rfc3339),
		}
	}
	writeJSON(w, http.StatusLocked, body)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
