package client

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrNotAnchored is returned when the ledger holds no record for a fileId.
var ErrNotAnchored = errors.New("client: file not anchored")

// Client connects to an anchor gateway via HTTP.
type Client struct {
	gatewayAddr string // gatewayAddr is the HTTP address (e.g. "127.0.0.1:8080")
}

// HistoryEntry is one committed anchor for a file.
type HistoryEntry struct {
	FileID   string    `json:"fileId"`   // FileID is the anchored file identifier
	FileHash string    `json:"fileHash"` // FileHash is the hash committed by this entry
	TxID     string    `json:"txId"`     // TxID is the hex transaction ID
	Height   uint64    `json:"height"`   // Height is the batch height of the commit
	Time     time.Time `json:"time"`     // Time is the commit time
}

// NewClient creates a client connected to a gateway.
// It checks the gateway's /health endpoint before returning.
func NewClient(gatewayAddr string) (*Client, error) {
	c := &Client{gatewayAddr: gatewayAddr}

	if _, err := httpGetText(c.url("/health")); err != nil {
		return nil, fmt.Errorf("gateway unreachable:\n%w", err)
	}

	return c, nil
}

// Store anchors fileHash under fileId and returns the confirmation text.
func (c *Client) Store(fileID, fileHash string) (string, error) {
	body := map[string]string{
		"fileId":   fileID,
		"fileHash": fileHash,
	}

	confirmation, err := httpPostText(c.url("/store"), body)
	if err != nil {
		return "", fmt.Errorf("store:\n%w", err)
	}

	return confirmation, nil
}

// Query returns the hash currently anchored under fileId.
// Returns ErrNotAnchored if the file was never stored.
func (c *Client) Query(fileID string) (string, error) {
	var resp struct {
		StoredHash string `json:"storedHash"`
	}

	if err := httpGetJSON(c.url("/query/"+url.PathEscape(fileID)), &resp); err != nil {
		return "", fmt.Errorf("query:\n%w", err)
	}

	return resp.StoredHash, nil
}

// Verify checks hashToCheck against the anchored hash for fileId.
// Returns ErrNotAnchored if the file was never stored.
func (c *Client) Verify(fileID, hashToCheck string) (bool, error) {
	body := map[string]string{
		"fileId":      fileID,
		"hashToCheck": hashToCheck,
	}

	var resp struct {
		Verified bool `json:"verified"`
	}

	if err := httpPostJSON(c.url("/verify"), body, &resp); err != nil {
		return false, fmt.Errorf("verify:\n%w", err)
	}

	return resp.Verified, nil
}

// History returns all anchors ever committed for fileId, oldest first.
// Returns ErrNotAnchored if the file was never stored.
func (c *Client) History(fileID string) ([]HistoryEntry, error) {
	var resp struct {
		History []HistoryEntry `json:"history"`
	}

	if err := httpGetJSON(c.url("/history/"+url.PathEscape(fileID)), &resp); err != nil {
		return nil, fmt.Errorf("history:\n%w", err)
	}

	return resp.History, nil
}

// AnchorFile hashes the file at path and anchors the hash under fileId.
func (c *Client) AnchorFile(fileID, path string) (string, error) {
	hash, err := HashFile(path)
	if err != nil {
		return "", fmt.Errorf("anchor file:\n%w", err)
	}

	return c.Store(fileID, hash)
}

// VerifyFile hashes the file at path and verifies it against the anchor
// stored under fileId.
func (c *Client) VerifyFile(fileID, path string) (bool, error) {
	hash, err := HashFile(path)
	if err != nil {
		return false, fmt.Errorf("verify file:\n%w", err)
	}

	return c.Verify(fileID, hash)
}

func (c *Client) url(path string) string {
	return "http://" + c.gatewayAddr + path
}
