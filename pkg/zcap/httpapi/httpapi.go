// Package httpapi exposes the invocation and delegation adapters over
// stdlib net/http, grounded on the teacher's own HTTPHandler (PathValue
// routing, one handler struct carrying its collaborators, slog at the
// point of failure rather than bubbling a framework error type).
package httpapi

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/relves/zcapcore/pkg/zcap"
	"github.com/relves/zcapcore/pkg/zcap/delegation"
	"github.com/relves/zcapcore/pkg/zcap/invocation"
	"github.com/relves/zcapcore/pkg/zcap/loader"
	"github.com/relves/zcapcore/pkg/zcap/revocation"
	"github.com/relves/zcapcore/pkg/zcap/suite"
)

// Handler serves the verification HTTP API. It owns no key material of its
// own: every request supplies the public keys needed to resolve the
// verification methods named in its document, keeping the service
// statelessly verifiable by any caller.
type Handler struct {
	revocations *revocation.Store
	logger      *slog.Logger
}

// NewHandler builds a Handler. revocations may be nil, in which case
// verification runs without an inspectCapabilityChain hook.
func NewHandler(revocations *revocation.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{revocations: revocations, logger: logger}
}

// keyRef is one entry of a verifyRequest's "keys" map: the public key and
// controller backing a verificationMethod referenced by the document.
type keyRef struct {
	PublicKey  string `json:"publicKey"`
	Controller string `json:"controller"`
}

type verifyRequest struct {
	Document               json.RawMessage   `json:"document"`
	ExpectedAction         string            `json:"expectedAction"`
	ExpectedTarget         []string          `json:"expectedTarget"`
	ExpectedRootCapability []string          `json:"expectedRootCapability"`
	Keys                   map[string]keyRef `json:"keys"`
	RootCapabilities       []json.RawMessage `json:"rootCapabilities"`
	AllowTargetAttenuation bool              `json:"allowTargetAttenuation"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`
}

func (req *verifyRequest) buildSuites() (suite.Suites, error) {
	suites := make(suite.Suites, 0, len(req.Keys))
	for keyID, ref := range req.Keys {
		pub, err := base64.StdEncoding.DecodeString(ref.PublicKey)
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite.NewEd25519Signature2020(nil, ed25519.PublicKey(pub), keyID, ref.Controller))
	}
	return suites, nil
}

func (req *verifyRequest) buildLoader() (*loader.MapLoader, error) {
	docs := loader.NewMapLoader()
	for _, raw := range req.RootCapabilities {
		cap := &zcap.Capability{}
		if err := json.Unmarshal(raw, cap); err != nil {
			return nil, err
		}
		docs.Put(cap)
	}
	return docs, nil
}

// HandleVerifyInvocation handles POST /verify/invocation.
func (h *Handler) HandleVerifyInvocation(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	suites, err := req.buildSuites()
	if err != nil {
		http.Error(w, "malformed key material", http.StatusBadRequest)
		return
	}
	docs, err := req.buildLoader()
	if err != nil {
		http.Error(w, "malformed root capability", http.StatusBadRequest)
		return
	}

	opts := []invocation.Option{invocation.WithAllowTargetAttenuation(req.AllowTargetAttenuation)}
	if h.revocations != nil {
		opts = append(opts, invocation.WithInspectHook(revocation.Hook(h.revocations)))
	}
	in := invocation.NewInput(req.Document, req.ExpectedAction, suites, docs, opts...)
	in.ExpectedTarget = req.ExpectedTarget
	in.ExpectedRootCapability = req.ExpectedRootCapability
	in.Logger = h.logger

	result := invocation.Verify(r.Context(), in)
	writeVerifyResult(w, result.Verified, result.Error)
}

// HandleVerifyDelegation handles POST /verify/delegation.
func (h *Handler) HandleVerifyDelegation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Capability             json.RawMessage   `json:"capability"`
		Keys                   map[string]keyRef `json:"keys"`
		ExpectedRootCapability []string          `json:"expectedRootCapability"`
		RootCapabilities       []json.RawMessage `json:"rootCapabilities"`
		AllowTargetAttenuation bool              `json:"allowTargetAttenuation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	cap := &zcap.Capability{}
	if err := json.Unmarshal(body.Capability, cap); err != nil {
		http.Error(w, "malformed capability", http.StatusBadRequest)
		return
	}

	req := verifyRequest{Keys: body.Keys, RootCapabilities: body.RootCapabilities}
	suites, err := req.buildSuites()
	if err != nil {
		http.Error(w, "malformed key material", http.StatusBadRequest)
		return
	}
	docs, err := req.buildLoader()
	if err != nil {
		http.Error(w, "malformed root capability", http.StatusBadRequest)
		return
	}

	in := delegation.NewInput(cap, docs, suites, body.ExpectedRootCapability,
		delegation.WithAllowTargetAttenuation(body.AllowTargetAttenuation))
	in.Logger = h.logger

	result := delegation.Verify(r.Context(), in)
	writeVerifyResult(w, result.Verified, result.Error)
}

// HandleRevoke handles POST /revocations/{capabilityID}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	if h.revocations == nil {
		http.Error(w, "no revocation store configured", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("capabilityID")
	if id == "" {
		http.Error(w, "capabilityID required", http.StatusBadRequest)
		return
	}
	if err := h.revocations.Revoke(r.Context(), id); err != nil {
		h.logger.Error("failed to record revocation", "capabilityID", id, "error", err)
		http.Error(w, "failed to record revocation", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListRevocations handles GET /revocations.
func (h *Handler) HandleListRevocations(w http.ResponseWriter, r *http.Request) {
	if h.revocations == nil {
		json.NewEncoder(w).Encode(struct {
			Revoked []string `json:"revoked"`
		}{})
		return
	}
	ids, err := h.revocations.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list revocations", "error", err)
		http.Error(w, "failed to list revocations", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(struct {
		Revoked []string `json:"revoked"`
	}{Revoked: ids})
}

func writeVerifyResult(w http.ResponseWriter, verified bool, err error) {
	resp := verifyResponse{Verified: verified}
	if err != nil {
		resp.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	if !verified {
		w.WriteHeader(http.StatusForbidden)
	}
	json.NewEncoder(w).Encode(resp)
}
