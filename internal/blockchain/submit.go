package blockchain

import (
	"bytes"
	"chainsign/internal/blockchain/chainsignfamily"
	"chainsign/internal/metrics"
	"chainsign/internal/model"
	"chainsign/internal/wallet"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperledger/sawtooth-sdk-go/protobuf/transaction_pb2"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

const (
	batchSubmitAPI         string = "batches"
	batchStatusAPI         string = "batch_statuses"
	receiptsAPI            string = "receipts"
	stateAPI               string = "state"
	contentTypeOctetStream string = "application/octet-stream"

	statusCommitted = "COMMITTED"
	statusInvalid   = "INVALID"
	statusPending   = "PENDING"
)

// statusError is a non successful REST API response.
type statusError struct {
	code    int
	message string
}

func (e statusError) Error() string {
	return fmt.Sprintf("error %d: %s", e.code, e.message)
}

// Submit signs the call with the wallet session, submits it and waits for the
// batch to be committed. An unconfirmed receipt is returned if the batch is still
// pending when the wait budget runs out.
func (c *Client) Submit(ctx context.Context, call model.Call, session wallet.Session) (receipt model.Receipt, err error) {
	started := time.Now()
	defer func() {
		outcome := model.ErrorKind(err)
		if err == nil && !receipt.Confirmed {
			outcome = "unconfirmed"
		}
		metrics.ObserveSubmission(call.EntryPoint, outcome, started)
	}()

	payloadDump, err := encodePayload(c.contract.PackageID, call)
	if err != nil {
		return model.Receipt{}, err
	}

	transaction, err := NewTransaction(ctx, payloadDump, session, c.batcher.GetPublicKey().AsHex(), []string{chainsignfamily.Namespace()})
	if err != nil {
		return model.Receipt{}, signatureError(call.EntryPoint, err)
	}

	rawBatchList, err := createBatchList([]*transaction_pb2.Transaction{transaction}, c.batcher)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("unable to construct batch list: %v", err)
	}
	batchID := rawBatchList.Batches[0].HeaderSignature

	batchList, err := proto.Marshal(rawBatchList)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("unable to serialize batch list: %v", err)
	}

	c.logger.Debug("submitting contract call", zap.String("entryPoint", call.EntryPoint), zap.String("transactionID", transaction.HeaderSignature))

	if _, err := c.sendRequest(ctx, batchSubmitAPI, batchList, contentTypeOctetStream); err != nil {
		var status statusError
		if errors.As(err, &status) && status.code >= 400 && status.code < 500 && status.code != http.StatusTooManyRequests {
			return model.Receipt{}, model.NewRejectionError(call.EntryPoint, status.message)
		}
		return model.Receipt{}, err
	}

	receipt = model.Receipt{TransactionID: transaction.HeaderSignature}

	confirmed, err := c.waitForCommit(ctx, call.EntryPoint, batchID)
	if err != nil || !confirmed {
		return receipt, err
	}

	events, err := c.getEvents(ctx, receipt.TransactionID)
	if err != nil {
		return receipt, model.NewConfirmationError(call.EntryPoint, "batch committed but reading the receipt failed: "+err.Error())
	}
	receipt.Confirmed = true
	receipt.Events = events

	c.logger.Info("contract call committed", zap.String("entryPoint", call.EntryPoint), zap.String("transactionID", receipt.TransactionID), zap.Int("events", len(events)))

	return receipt, nil
}

func signatureError(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrSignatureDeclined):
		return model.NewSignatureDeclinedError(op)
	case errors.Is(err, model.ErrSessionClosed):
		return model.WrapValidationError(op, "wallet session", err)
	default:
		return errors.New("failed to sign the transaction: " + err.Error())
	}
}

func (c *Client) waitForCommit(ctx context.Context, op, batchID string) (bool, error) {
	deadline := time.Now().Add(c.wait)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.logger.Warn("batch not committed within the wait time", zap.String("batchID", batchID), zap.Duration("wait", c.wait))
			return false, nil
		}

		status, err := c.getStatus(ctx, batchID, remaining)
		if err != nil {
			return false, err
		}

		switch status.Status {
		case statusCommitted:
			return true, nil
		case statusInvalid:
			message := "transaction invalid"
			if len(status.InvalidTransactions) > 0 && status.InvalidTransactions[0].Message != "" {
				message = status.InvalidTransactions[0].Message
			}
			return false, model.NewRejectionError(op, message)
		}

		// PENDING or UNKNOWN, the validator may not have seen the batch yet
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval(remaining)):
		}
	}
}

func pollInterval(remaining time.Duration) time.Duration {
	interval := 100 * time.Millisecond
	if remaining < interval {
		return remaining
	}
	return interval
}

func (c *Client) getStatus(ctx context.Context, batchID string, wait time.Duration) (batchStatus, error) {
	waitSeconds := int(wait / time.Second)
	if waitSeconds < 1 {
		waitSeconds = 1
	}

	query := url.Values{}
	query.Set("id", batchID)
	query.Set("wait", fmt.Sprint(waitSeconds))

	response, err := c.sendRequest(ctx, batchStatusAPI+"?"+query.Encode(), nil, "")
	if err != nil {
		return batchStatus{}, err
	}

	var unmarshalled batchStatusResponse
	if err := yaml.Unmarshal(response, &unmarshalled); err != nil {
		return batchStatus{}, fmt.Errorf("error reading response: %v", err)
	}
	if len(unmarshalled.Data) == 0 {
		return batchStatus{}, errors.New("batch status response has no data")
	}

	return unmarshalled.Data[0], nil
}

func (c *Client) getEvents(ctx context.Context, transactionID string) ([]model.Event, error) {
	query := url.Values{}
	query.Set("id", transactionID)

	response, err := c.sendRequest(ctx, receiptsAPI+"?"+query.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var unmarshalled receiptsResponse
	if err := yaml.Unmarshal(response, &unmarshalled); err != nil {
		return nil, fmt.Errorf("error reading response: %v", err)
	}

	events := []model.Event{}
	for _, r := range unmarshalled.Data {
		if r.TransactionID != "" && r.TransactionID != transactionID {
			continue
		}
		for _, e := range r.Events {
			event := model.Event{
				Type:       e.EventType,
				Attributes: make(map[string]string, len(e.Attributes)),
			}
			for _, attr := range e.Attributes {
				event.Attributes[attr.Key] = attr.Value
			}
			if e.Data != "" {
				data, err := base64.StdEncoding.DecodeString(e.Data)
				if err != nil {
					return nil, errors.New("event data is not base64 encoded: " + err.Error())
				}
				event.Data = data
			}
			events = append(events, event)
		}
	}

	return events, nil
}

func (c *Client) sendRequest(
	ctx context.Context,
	apiSuffix string,
	data []byte,
	contentType string) ([]byte, error) {

	endpoint := fmt.Sprintf("%s/%s", c.url, apiSuffix)

	var (
		r   *http.Request
		err error
	)
	if len(data) > 0 {
		r, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(data))
		if err == nil {
			r.Header.Set("Content-Type", contentType)
		}
	} else {
		r, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.Do(r)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to REST API: %v", err)
	}
	defer response.Body.Close()

	responseBody, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %v", err)
	}

	if response.StatusCode >= 400 {
		message := response.Status
		var apiErr submitErrorResponse
		if yaml.Unmarshal(responseBody, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		c.logger.Debug("REST API error", zap.String("url", endpoint), zap.Int("status", response.StatusCode), zap.String("message", message))
		return nil, statusError{code: response.StatusCode, message: message}
	}

	return responseBody, nil
}
