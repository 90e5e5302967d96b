package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	commonhttp "wholesale-crm/internal/common/http"
)

const DefaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *commonhttp.Client
}

type Contact struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email,omitempty"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Phone       string `json:"Phone,omitempty"`
	AccountName string `json:"Account_Name,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Description string `json:"Description,omitempty"`
}

type mutationResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(apiKey, oauthToken, baseURL string) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    baseURL,
		httpClient: commonhttp.NewClient(30 * time.Second),
	}
}

// IsConfigured reports whether credentials are present.
func (c *CRMClient) IsConfigured() bool {
	return c != nil && c.oauthToken != ""
}

func (c *CRMClient) CreateContact(ctx context.Context, contact *Contact) (string, error) {
	resp, err := c.send(ctx, http.MethodPost, c.baseURL+"/Contacts", contact)
	if err != nil {
		return "", err
	}
	return c.mutationID(resp, "create")
}

func (c *CRMClient) UpdateContact(ctx context.Context, contactID string, contact *Contact) error {
	resp, err := c.send(ctx, http.MethodPut, c.baseURL+"/Contacts/"+url.PathEscape(contactID), contact)
	if err != nil {
		return err
	}
	_, err = c.mutationID(resp, "update")
	return err
}

func (c *CRMClient) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	contacts, err := c.list(ctx, c.baseURL+"/Contacts/"+url.PathEscape(contactID))
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("contact not found")
	}
	return &contacts[0], nil
}

// SearchContacts looks contacts up by email. No match yields an empty slice.
func (c *CRMClient) SearchContacts(ctx context.Context, email string) ([]Contact, error) {
	return c.list(ctx, c.baseURL+"/Contacts/search?email="+url.QueryEscape(email))
}

func (c *CRMClient) send(ctx context.Context, method, endpoint string, contact *Contact) (*http.Response, error) {
	jsonData, err := json.Marshal(map[string]interface{}{"data": []Contact{*contact}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

func (c *CRMClient) mutationID(resp *http.Response, op string) (string, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to %s contact (status %d): %s", op, resp.StatusCode, string(body))
	}

	var r mutationResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(r.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if r.Data[0].Status != "success" {
		return "", fmt.Errorf("contact %s failed: %s", op, r.Data[0].Message)
	}
	return r.Data[0].Details.ID, nil
}

func (c *CRMClient) list(ctx context.Context, endpoint string) ([]Contact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return []Contact{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("contact lookup failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []Contact `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Data == nil {
		return []Contact{}, nil
	}
	return result.Data, nil
}

func (c *CRMClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
