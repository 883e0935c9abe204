// Package scanapi is a client for the remote code scan service.
package scanapi

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // the service keys uploads by their md5
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7/pkg/encrypt"
	"github.com/tidwall/gjson"
)

const (
	UploadsEndpoint = "/v1/uploads"
	ScansEndpoint   = "/v1/scans"
)

type Client struct {
	HTTPClient *http.Client
	Config     ClientConfig
	BaseURL    string
	Token      string
}

// NewClient makes a client for the service at baseURL with the default
// config.
func NewClient(baseURL, token string) *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Config:     DefaultConfig(),
		BaseURL:    baseURL,
		Token:      token,
	}
}

// ContentMD5 returns the base64 encoded md5 of everything read from r, as
// used in Content-MD5 headers.
func ContentMD5(r io.Reader) (string, error) {
	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// CreateUploadURL asks for somewhere to upload an artifact of the given type
// with the given checksum.
func (c *Client) CreateUploadURL(ctx context.Context, contentMD5, artifactType string) (*UploadURL, error) {
	var result UploadURL

	err := c.doJSON(ctx, http.MethodPost, c.BaseURL+UploadsEndpoint, CreateUploadURLRequest{
		ContentMD5:   contentMD5,
		ArtifactType: artifactType,
	}, &result)
	if err != nil {
		return nil, err
	}

	if result.URL == "" || result.UploadID == "" {
		return nil, errors.New("upload url response is missing the url or upload id")
	}

	return &result, nil
}

// PutObject uploads size bytes of body to dest, asking for them to be
// encrypted at rest.
func (c *Client) PutObject(ctx context.Context, dest *UploadURL, body io.ReaderAt, size int64, contentMD5 string) error {
	sse, err := serverSideEncryption(dest)
	if err != nil {
		return err
	}

	resp, err := c.makeRetryRequest(ctx, func(hc *http.Client) (*http.Response, error) {
		// a fresh reader per attempt, so retries send the whole body again
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, dest.URL, io.NewSectionReader(body, 0, size))
		if err != nil {
			return nil, err
		}
		req.ContentLength = size
		req.Header.Set("Content-Type", "application/zip")
		req.Header.Set("Content-MD5", contentMD5)
		req.Header.Set("User-Agent", c.Config.UserAgent)
		sse.Marshal(req.Header)

		return hc.Do(req)
	})
	if err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Body.Close()
}

func serverSideEncryption(dest *UploadURL) (encrypt.ServerSide, error) {
	if dest.KMSKeyARN == "" {
		return encrypt.NewSSE(), nil
	}

	sse, err := encrypt.NewSSEKMS(dest.KMSKeyARN, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid kms key: %w", err)
	}

	return sse, nil
}

// CreateScan starts a scan job. The request body is encoded once, so
// retries carry the same client token.
func (c *Client) CreateScan(ctx context.Context, request CreateScanRequest) (*Scan, error) {
	var result Scan
	if err := c.doJSON(ctx, http.MethodPost, c.BaseURL+ScansEndpoint, request, &result); err != nil {
		return nil, err
	}

	if result.JobID == "" {
		return nil, errors.New("create scan response is missing the job id")
	}

	return &result, nil
}

// GetScan returns the current status of a scan job.
func (c *Client) GetScan(ctx context.Context, jobID string) (*Scan, error) {
	var result Scan
	if err := c.doJSON(ctx, http.MethodGet, c.BaseURL+ScansEndpoint+"/"+url.PathEscape(jobID), nil, &result); err != nil {
		return nil, err
	}

	if result.JobID == "" {
		result.JobID = jobID
	}

	return &result, nil
}

// ListFindings fetches one page of findings. The findings may be sent either
// as a JSON array or as a string holding one.
func (c *Client) ListFindings(ctx context.Context, jobID, schemaVersion, nextToken string) (*FindingsPage, error) {
	query := url.Values{}
	query.Set("schemaVersion", schemaVersion)
	if nextToken != "" {
		query.Set("nextToken", nextToken)
	}

	endpoint := c.BaseURL + ScansEndpoint + "/" + url.PathEscape(jobID) + "/findings?" + query.Encode()

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.New("findings response is not valid json")
	}

	result := gjson.ParseBytes(body)
	findings := result.Get("codeAnalysisFindings")

	page := &FindingsPage{NextToken: result.Get("nextToken").String()}

	switch findings.Type {
	case gjson.String:
		page.Findings = findings.Str
	case gjson.Null:
		page.Findings = "[]"
	default:
		page.Findings = findings.Raw
	}

	return page, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, request any, result any) error {
	var requestBytes []byte
	if request != nil {
		var err error
		if requestBytes, err = json.Marshal(request); err != nil {
			return err
		}
	}

	body, err := c.do(ctx, method, endpoint, requestBytes)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, result)
}

func (c *Client) do(ctx context.Context, method, endpoint string, requestBytes []byte) ([]byte, error) {
	resp, err := c.makeRetryRequest(ctx, func(hc *http.Client) (*http.Response, error) {
		// Make sure request buffer is inside retry, if outside
		// http request would finish the buffer, and retried requests would be empty
		var body io.Reader
		if requestBytes != nil {
			body = bytes.NewReader(requestBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}
		if requestBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.Config.UserAgent)
		if c.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}

		return hc.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// makeRetryRequest will return an error on both network errors, and if the
// response is not a success. Client errors are not retried.
func (c *Client) makeRetryRequest(ctx context.Context, action func(hc *http.Client) (*http.Response, error)) (*http.Response, error) {
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	var lastErr error

	for i := range max(c.Config.MaxRetryAttempts, 1) {
		if i > 0 {
			// we do not need to use a cryptographically secure random jitter, this is just to spread out the retry requests
			// #nosec G404
			jitterAmount := rand.Float64() * c.Config.JitterMultiplier * float64(i)
			backoff := float64(i*i)*c.Config.BackoffDurationMultiplier + jitterAmount

			if err := sleep(ctx, time.Duration(backoff*float64(time.Second))); err != nil {
				return nil, err
			}
		}

		resp, err := action(hc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err

			continue
		}

		err = checkResponseError(resp)
		if err == nil {
			return resp, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkResponseError checks if the response has an error, consuming and
// closing the body if it does.
func checkResponseError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	respBuf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response from server: %w", err)
	}

	return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(respBuf)}
}
