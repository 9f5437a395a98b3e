package http

import (
	"chainsign/internal/app"
	"chainsign/internal/keymanager"
	"chainsign/internal/model"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type sessionResponse struct {
	SessionID string `json:"sessionID"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

type participantResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Status  string `json:"status"`
	Date    string `json:"date,omitempty"`
}

type documentResponse struct {
	ID              string                `json:"id"`
	Creator         string                `json:"creator"`
	Fingerprint     string                `json:"fingerprint"`
	ContentRef      string                `json:"contentRef,omitempty"`
	BlobURL         string                `json:"blobUrl,omitempty"`
	CurrentApprover string                `json:"currentApprover,omitempty"`
	Completed       bool                  `json:"completed"`
	Stale           bool                  `json:"stale,omitempty"`
	Participants    []participantResponse `json:"participants"`
}

type employeeResponse struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

func (r *documentResponse) assign(view app.DocumentView) {
	r.ID = view.Document.ID
	r.Creator = view.Document.Creator
	r.Fingerprint = hex.EncodeToString(view.Document.Fingerprint)
	r.ContentRef = view.Document.ContentRef
	r.BlobURL = view.BlobURL
	r.CurrentApprover = view.CurrentApprover
	r.Completed = view.Completed
	r.Stale = view.Stale

	r.Participants = make([]participantResponse, len(view.Participants))
	for i, p := range view.Participants {
		r.Participants[i] = participantResponse{
			Name:    p.Name,
			Address: p.Address,
			Status:  string(p.Status),
			Date:    p.Date,
		}
	}
}

// statusOf maps the error taxonomy onto http status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, keymanager.ErrUnknownSession):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrDocumentNotFound):
		return http.StatusNotFound
	}

	switch model.ErrorKind(err) {
	case "validation":
		return http.StatusBadRequest
	case "signature_declined":
		return http.StatusForbidden
	case "rejection":
		return http.StatusConflict
	case "upload", "confirmation":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (ser *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	response, err := json.Marshal(body)
	if err != nil {
		ser.serverError(w, "marshalling the response failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		ser.logger.Error("failed to write the response: " + err.Error())
	}
}

func (ser *Server) respondError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		ser.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		ser.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}

	kind := model.ErrorKind(err)
	switch status {
	case http.StatusUnauthorized:
		kind = "unauthorized"
	case http.StatusNotFound:
		kind = "not_found"
	}
	ser.respond(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (ser *Server) badRequest(w http.ResponseWriter, message string) {
	ser.logger.Warn(message)
	ser.respond(w, http.StatusBadRequest, errorResponse{Error: message, Kind: "validation"})
}

func (ser *Server) serverError(w http.ResponseWriter, message string) {
	ser.logger.Error(message)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(message))
}

func normalize(param string) string {
	return strings.TrimSpace(param)
}
