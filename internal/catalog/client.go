package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Upstream is the read side of the institution catalog API.
type Upstream interface {
	FetchPrograms(ctx context.Context) ([]Level, error)
	FetchProgram(ctx context.Context, id int) (*ProgramDetail, error)
	FetchGroups(ctx context.Context, programID int) ([]Group, error)
	FetchCurriculum(ctx context.Context, programID int) ([]CurriculumLevel, error)
}

// Client talks to the institution catalog API over HTTP. It does not retry.
type Client struct {
	baseURL    string
	paymentURL string
	client     *http.Client
}

// NewClient creates a catalog client. paymentURL is used to build a payment
// link when the enrollment endpoint does not return one.
func NewClient(baseURL, paymentURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		paymentURL: paymentURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type programsResponse struct {
	Levels []Level `json:"levels"`
}

type groupsResponse struct {
	Data []Group `json:"data"`
}

type curriculumResponse struct {
	Data []CurriculumLevel `json:"data"`
}

func (c *Client) FetchPrograms(ctx context.Context) ([]Level, error) {
	var out programsResponse
	if err := c.do(ctx, http.MethodGet, "/programs", nil, &out); err != nil {
		return nil, err
	}
	return out.Levels, nil
}

func (c *Client) FetchProgram(ctx context.Context, id int) (*ProgramDetail, error) {
	var out ProgramDetail
	if err := c.do(ctx, http.MethodGet, "/programs/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchGroups(ctx context.Context, programID int) ([]Group, error) {
	var out groupsResponse
	if err := c.do(ctx, http.MethodGet, "/groups/"+strconv.Itoa(programID), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) FetchCurriculum(ctx context.Context, programID int) ([]CurriculumLevel, error) {
	var out curriculumResponse
	if err := c.do(ctx, http.MethodGet, "/curriculum/"+strconv.Itoa(programID), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SubmitEnrollment posts a complete enrollment.
func (c *Client) SubmitEnrollment(ctx context.Context, e Enrollment) (*EnrollmentReceipt, error) {
	var out EnrollmentReceipt
	if err := c.do(ctx, http.MethodPost, "/enrollments", e, &out); err != nil {
		return nil, err
	}
	if out.PaymentURL == "" && c.paymentURL != "" {
		out.PaymentURL = c.paymentURL + "?carrera=" + url.QueryEscape(e.Program)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("catalog API error %d on %s: %s", resp.StatusCode, path, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
