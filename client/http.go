package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// httpGetJSON performs a GET request and decodes the JSON response.
func httpGetJSON(url string, result any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if err := statusError(resp); err != nil {
		return err
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpGetText performs a GET request and returns the response body as text.
func httpGetText(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body:\n%w", err)
	}

	return strings.TrimSpace(string(body)), nil
}

// httpPostJSON performs a POST request with JSON body and decodes the JSON response.
func httpPostJSON(url string, body any, result any) error {
	resp, err := postJSON(url, body)
	if err != nil {
		return err
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if err := statusError(resp); err != nil {
		return err
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpPostText performs a POST request with JSON body and returns the
// response body as text.
func httpPostText(url string, body any) (string, error) {
	resp, err := postJSON(url, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return "", err
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body:\n%w", err)
	}

	return strings.TrimSpace(string(text)), nil
}

func postJSON(url string, body any) (*http.Response, error) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body:\n%w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("POST %s:\n%w", url, err)
	}

	return resp, nil
}

// statusError maps non-200 gateway responses to errors.
// A 404 becomes ErrNotAnchored so callers can test with errors.Is.
func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotAnchored, detail)
	}

	return fmt.Errorf("gateway status %d: %s", resp.StatusCode, detail)
}
