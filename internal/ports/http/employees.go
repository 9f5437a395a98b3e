package http

import (
	"chainsign/internal/model"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/multierr"
)

type addEmployeeRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

func (ser *Server) searchEmployees(w http.ResponseWriter, r *http.Request) {
	name := normalize(r.URL.Query().Get("name"))

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	employees, err := ser.app.SearchEmployees(ctx, name)
	if err != nil {
		ser.respondError(w, err)
		return
	}

	response := make([]employeeResponse, len(employees))
	for i, employee := range employees {
		response[i] = employeeResponse{Address: employee.Address, Name: employee.Name}
	}
	ser.respond(w, http.StatusOK, response)
}

func (ser *Server) addEmployee(w http.ResponseWriter, r *http.Request) {
	var request addEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		ser.badRequest(w, "failed to decode the request: "+err.Error())
		return
	}

	var err error
	sessionID := normalize(r.Header.Get(sessionHeader))
	if sessionID == "" {
		err = multierr.Append(err, errors.New(sessionHeader+" header is missing"))
	}
	if normalize(request.Address) == "" {
		err = multierr.Append(err, errors.New("address is missing"))
	}
	if normalize(request.Name) == "" {
		err = multierr.Append(err, errors.New("name is missing"))
	}
	if err != nil {
		ser.badRequest(w, err.Error())
		return
	}

	ctx, cancel := ser.requestContext(r)
	defer cancel()

	employee := model.Employee{Address: normalize(request.Address), Name: normalize(request.Name)}
	if err := ser.app.AddEmployee(ctx, sessionID, employee); err != nil {
		ser.respondError(w, err)
		return
	}

	ser.respond(w, http.StatusCreated, employeeResponse{Address: employee.Address, Name: employee.Name})
}
