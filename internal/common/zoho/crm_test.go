package zoho

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *CRMClient {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCRMClient("key", "token", srv.URL)
}

func TestCRMClient_CreateContact(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Contacts", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken token", r.Header.Get("Authorization"))

		var payload struct {
			Data []Contact `json:"data"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Investor", payload.Data[0].LastName)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"data":[{"code":"SUCCESS","status":"success","details":{"id":"z-1"}}]}`)
	})

	id, err := client.CreateContact(context.Background(), &Contact{FirstName: "Ann", LastName: "Investor"})
	require.NoError(t, err)
	assert.Equal(t, "z-1", id)
}

func TestCRMClient_CreateContactRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"code":"INVALID_DATA","status":"error","message":"invalid email"}]}`)
	})

	_, err := client.CreateContact(context.Background(), &Contact{LastName: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email")
}

func TestCRMClient_SearchContacts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Contacts/search", r.URL.Path)
		if r.URL.Query().Get("email") == "a+b@test.io" {
			io.WriteString(w, `{"data":[{"id":"z-9","Email":"a+b@test.io","Last_Name":"B"}]}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	found, err := client.SearchContacts(context.Background(), "a+b@test.io")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "z-9", found[0].ID)

	none, err := client.SearchContacts(context.Background(), "nobody@test.io")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCRMClient_UpdateContact(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/Contacts/z-1", r.URL.Path)
		io.WriteString(w, `{"data":[{"status":"success","details":{"id":"z-1"}}]}`)
	})

	assert.NoError(t, client.UpdateContact(context.Background(), "z-1", &Contact{LastName: "Y"}))
}

func TestCRMClient_IsConfigured(t *testing.T) {
	assert.True(t, NewCRMClient("", "token", "").IsConfigured())
	assert.False(t, NewCRMClient("key", "", "").IsConfigured())

	var nilClient *CRMClient
	assert.False(t, nilClient.IsConfigured())
}
