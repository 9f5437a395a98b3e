package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	storeAPI = "v1/store"
	blobAPI  = "blob"

	formFileField = "file"
	defaultName   = "document.pdf"
)

// Client talks to a content addressed blob store over HTTP.
type Client struct {
	logger     *zap.Logger
	url        string
	httpClient *http.Client
}

func NewClient(logger *zap.Logger, endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		logger:     logger,
		url:        strings.TrimSuffix(endpoint, "/"),
		httpClient: httpClient,
	}
}

type storeResponse struct {
	BlobID string `json:"blob_id"`

	NewlyCreated *struct {
		BlobObject struct {
			BlobID string `json:"blobId"`
		} `json:"blobObject"`
	} `json:"newlyCreated,omitempty"`

	AlreadyCertified *struct {
		BlobID string `json:"blobId"`
	} `json:"alreadyCertified,omitempty"`
}

func (r storeResponse) blobID() string {
	switch {
	case r.BlobID != "":
		return r.BlobID
	case r.NewlyCreated != nil:
		return r.NewlyCreated.BlobObject.BlobID
	case r.AlreadyCertified != nil:
		return r.AlreadyCertified.BlobID
	}
	return ""
}

// Upload stores data and returns the blob identifier.
func (c *Client) Upload(ctx context.Context, data []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(formFileField, defaultName)
	if err != nil {
		return "", errors.New("failed to create the upload form: " + err.Error())
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.New("failed to write the upload form: " + err.Error())
	}
	if err := writer.Close(); err != nil {
		return "", errors.New("failed to close the upload form: " + err.Error())
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/"+storeAPI, body)
	if err != nil {
		return "", err
	}
	r.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return "", errors.New("failed to connect to the blob store: " + err.Error())
	}
	defer resp.Body.Close()

	responseBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New("reading response error: " + err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("blob store responded with status %s: %s", resp.Status, string(responseBody))
	}

	var unmarshalled storeResponse
	if err := json.Unmarshal(responseBody, &unmarshalled); err != nil {
		return "", errors.New("failed to unmarshal the response: " + err.Error())
	}

	blobID := unmarshalled.blobID()
	if blobID == "" {
		return "", errors.New("blob store response has no blob id")
	}

	c.logger.Debug("blob stored", zap.String("blobID", blobID), zap.Int("size", len(data)))

	return blobID, nil
}

// URL is where the stored blob can be read from.
func (c *Client) URL(blobID string) string {
	if blobID == "" {
		return ""
	}
	return c.url + "/" + blobAPI + "/" + blobID
}
