package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/raphi011/pinpoint/internal/model"
)

type RunRecord = model.RunRecord
type Class = model.ClassHTTP

type Client struct {
	http *http.Client
	host string
}

type RequestError struct {
	ResponseCode int
	// Message is the error reported by the server, if any.
	Message string
}

func (e RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.ResponseCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.ResponseCode)
}

func New(host string, c *http.Client) Client {
	return Client{http: c, host: host}
}

// CreateRun executes a test method on the server and returns the finished run.
func (c Client) CreateRun(ctx context.Context, class, method string) (RunRecord, error) {
	req, err := http.NewRequest("POST", c.url("/classes/%s/methods/%s/runs", class, method), nil)
	if err != nil {
		return RunRecord{}, err
	}

	var rec RunRecord

	if err = c.do(ctx, req, &rec); err != nil {
		return RunRecord{}, err
	}

	return rec, nil
}

func (c Client) GetRuns(ctx context.Context, class, method string) ([]RunRecord, error) {
	req, err := http.NewRequest("GET", c.url("/classes/%s/methods/%s/runs", class, method), nil)
	if err != nil {
		return nil, err
	}

	var records []RunRecord

	if err = c.do(ctx, req, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func (c Client) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	req, err := http.NewRequest("GET", c.url("/runs/%s", runID), nil)
	if err != nil {
		return RunRecord{}, err
	}

	var rec RunRecord

	if err = c.do(ctx, req, &rec); err != nil {
		return RunRecord{}, err
	}

	return rec, nil
}

func (c Client) GetClasses(ctx context.Context) ([]Class, error) {
	req, err := http.NewRequest("GET", c.url("/classes"), nil)
	if err != nil {
		return nil, err
	}

	var classes []Class

	if err = c.do(ctx, req, &classes); err != nil {
		return nil, err
	}

	return classes, nil
}

func (c Client) url(path string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}

	return fmt.Sprintf(c.host+path, escaped...)
}

func (c Client) do(ctx context.Context, req *http.Request, body any) error {
	req = req.WithContext(ctx)
	req.Header.Add("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var e model.ErrorHTTP
		_ = json.NewDecoder(res.Body).Decode(&e)

		return RequestError{ResponseCode: res.StatusCode, Message: e.Error}
	}

	if body != nil {
		d := json.NewDecoder(res.Body)

		if err = d.Decode(body); err != nil {
			return err
		}
	}

	return nil
}
