package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// max accepted upload, 10MB
const maxFileSize = 10 << 20

type createRequest struct {
	sessionID     string
	firstApprover string
	file          []byte
}

type approveRequest struct {
	NextApprover string `json:"nextApprover"`
}

type hashResponse struct {
	TransactionID string `json:"transactionID"`
}

func (ser *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	request, err := ser.readCreateParams(w, r)
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	view, err := ser.app.CreateDocument(ctx, request.sessionID, request.file, request.firstApprover)
	if err != nil {
		ser.respondError(w, err)
		return
	}

	var response documentResponse
	response.assign(view)
	ser.respond(w, http.StatusCreated, response)
}

func (ser *Server) readCreateParams(w http.ResponseWriter, r *http.Request) (createRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1<<20)
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		return createRequest{}, errors.New("failed to parse the form: " + err.Error())
	}

	var err error

	sessionID := normalize(r.Header.Get(sessionHeader))
	if sessionID == "" {
		err = multierr.Append(err, errors.New(sessionHeader+" header is missing"))
	}

	firstApprover := normalize(r.FormValue("firstApprover"))
	if firstApprover == "" {
		err = multierr.Append(err, errors.New("firstApprover is missing"))
	}

	file, handler, fileErr := r.FormFile("docFile")
	if fileErr != nil {
		return createRequest{}, multierr.Append(err, errors.New("failed to get the document file from form: "+fileErr.Error()))
	}
	defer file.Close()

	if err != nil {
		return createRequest{}, err
	}

	content, err := ioutil.ReadAll(file)
	if err != nil {
		return createRequest{}, errors.New("failed to read the document file: " + err.Error())
	}
	if len(content) != int(handler.Size) {
		return createRequest{}, fmt.Errorf("upload error: size of received file: %v, size declared in the header: %v", len(content), handler.Size)
	}

	ser.logger.Info(fmt.Sprintf("received file: %s, size %v", handler.Filename, handler.Size))

	return createRequest{
		sessionID:     sessionID,
		firstApprover: firstApprover,
		file:          content,
	}, nil
}

func (ser *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	docID := normalize(mux.Vars(r)["docID"])

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	view, err := ser.app.GetDocument(ctx, docID)
	if err != nil {
		ser.respondError(w, err)
		return
	}

	var response documentResponse
	response.assign(view)
	ser.respond(w, http.StatusOK, response)
}

func (ser *Server) approveDocument(w http.ResponseWriter, r *http.Request) {
	docID := normalize(mux.Vars(r)["docID"])
	sessionID := normalize(r.Header.Get(sessionHeader))

	var request approveRequest
	if r.Body != http.NoBody {
		// a chunked request may still be empty
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
			ser.badRequest(w, "failed to decode the request: "+err.Error())
			return
		}
	}

	ser.logger.Debug("approving document", zap.String("docID", docID), zap.String("nextApprover", request.NextApprover))

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	view, err := ser.app.ApproveDocument(ctx, sessionID, docID, normalize(request.NextApprover))
	if err != nil {
		ser.respondError(w, err)
		return
	}

	var response documentResponse
	response.assign(view)
	ser.respond(w, http.StatusOK, response)
}

func (ser *Server) storeDocumentHash(w http.ResponseWriter, r *http.Request) {
	docID := normalize(mux.Vars(r)["docID"])
	sessionID := normalize(r.Header.Get(sessionHeader))

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	transactionID, err := ser.app.StoreDocumentHash(ctx, sessionID, docID)
	if err != nil {
		ser.respondError(w, err)
		return
	}

	ser.respond(w, http.StatusOK, hashResponse{TransactionID: transactionID})
}
