package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type connectRequest struct {
	PrivateKey string `json:"privateKey"`
}

func (ser *Server) connectSession(w http.ResponseWriter, r *http.Request) {
	var request connectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			ser.badRequest(w, "failed to decode the request: "+err.Error())
			return
		}
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	info, err := ser.app.ConnectSession(ctx, normalize(request.PrivateKey))
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	ser.logger.Info("session connected", zap.String("sessionID", info.ID), zap.String("address", info.Address))
	ser.respond(w, http.StatusCreated, sessionResponse{
		SessionID: info.ID,
		Address:   info.Address,
		PublicKey: info.PublicKey,
	})
}

func (ser *Server) disconnectSession(w http.ResponseWriter, r *http.Request) {
	sessionID := normalize(mux.Vars(r)["sessionID"])

	if err := ser.app.DisconnectSession(sessionID); err != nil {
		ser.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
