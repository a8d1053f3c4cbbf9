package api

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsphere-labs/dsptool/internal/testutil"
)

const testHost = "https://tenant.example.hanacloud.ondemand.com"

func newTestClient(t *testing.T) *Client {
	t.Helper()

	creds := &Credentials{
		Host:         testHost,
		AccessToken:  "test-token",
		TokenExpiry:  time.Now().Add(time.Hour),
		TokenURL:     testHost + "/oauth/token",
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	}
	client := NewClient(creds, testutil.NewTestLogger(t))
	client.SetRetry(0, 0, 0)

	httpmock.ActivateNonDefault(client.RestyClient().GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	return client
}

func TestClient_Spaces_BareList(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/dwaas-core/api/v1/spaces",
		httpmock.NewStringResponder(200, `["SALES", "FINANCE"]`))

	spaces, err := client.Spaces(context.Background())
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	assert.Equal(t, "SALES", spaces[0].ID)
	assert.Equal(t, "FINANCE", spaces[1].ID)
}

func TestClient_Spaces_WrappedObjects(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/dwaas-core/api/v1/spaces",
		httpmock.NewStringResponder(200, `{"spaces": [{"spaceId": "SALES", "label": "Sales Space"}]}`))

	spaces, err := client.Spaces(context.Background())
	require.NoError(t, err)
	require.Len(t, spaces, 1)
	assert.Equal(t, "SALES", spaces[0].ID)
	assert.Equal(t, "Sales Space", spaces[0].BusinessName)
	assert.Equal(t, "SALES [Sales Space]", spaces[0].String())
}

func TestClient_Spaces_ExpiredToken(t *testing.T) {
	client := newTestClient(t)
	client.creds.TokenExpiry = time.Now().Add(-time.Minute)

	_, err := client.Spaces(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
	// No request may have gone out.
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestClient_Spaces_StatusErrors(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		wantMsg string
	}{
		{401, `{}`, "authentication failed"},
		{403, `{}`, "access forbidden"},
		{404, `{}`, "resource not found"},
		{422, `{"message": "bad filter"}`, "bad filter"},
	}

	for _, tt := range tests {
		client := newTestClient(t)
		httpmock.RegisterResponder("GET", testHost+"/dwaas-core/api/v1/spaces",
			httpmock.NewStringResponder(tt.status, tt.body))

		_, err := client.Spaces(context.Background())
		require.Error(t, err, "status %d", tt.status)
		assert.Contains(t, err.Error(), tt.wantMsg)

		var apiError *Error
		require.ErrorAs(t, err, &apiError)
		assert.Equal(t, tt.status, apiError.StatusCode)
		httpmock.DeactivateAndReset()
	}
}

func TestClient_SpaceBusinessNames(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/dwaas-core/repository/spaces",
		httpmock.NewStringResponder(200, `{"results": [
			{"name": "SALES", "businessName": "Sales"},
			{"name": "FINANCE"},
			{"qualifiedName": "HR", "business_name": "Human Resources"}
		]}`))

	names, err := client.SpaceBusinessNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"SALES": "Sales",
		"HR":    "Human Resources",
	}, names)
}

func TestClient_SpaceObjects(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/deepsea/repository/SALES/designObjects",
		httpmock.NewStringResponder(200, `{"results": [
			{"technicalName": "SALES_VIEW", "kind": "sap.dwc.view", "name": "Sales View", "id": "0x01"},
			{"name": "ORDERS", "type": "sap.dwc.localtable"}
		]}`))

	objects, err := client.SpaceObjects(context.Background(), "SALES")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "SALES_VIEW", objects[0].TechnicalName)
	assert.Equal(t, "sap.dwc.view", objects[0].Kind)
	assert.Equal(t, "0x01", objects[0].ID)
	assert.Equal(t, "SALES", objects[0].SpaceID)
	// Fallbacks: technical name from name, kind from type.
	assert.Equal(t, "ORDERS", objects[1].TechnicalName)
	assert.Equal(t, "sap.dwc.localtable", objects[1].Kind)
}

func TestClient_FindObjectID(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/dwaas-core/api/v1/spaces",
		httpmock.NewStringResponder(200, `["SALES", "FINANCE"]`))
	httpmock.RegisterResponder("GET", testHost+"/deepsea/repository/SALES/designObjects",
		httpmock.NewStringResponder(403, `{}`)) // unreadable space is skipped
	httpmock.RegisterResponder("GET", testHost+"/deepsea/repository/FINANCE/designObjects",
		httpmock.NewStringResponder(200, `[{"technicalName": "LEDGER", "kind": "sap.dwc.view", "id": "0xff"}]`))

	id, found, err := client.FindObjectID(context.Background(), "LEDGER", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0xff", id)

	_, found, err = client.FindObjectID(context.Background(), "MISSING", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Lineage(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/deepsea/repository/dependencies/",
		httpmock.NewStringResponder(200, `[{
			"id": "root",
			"qualifiedName": "SALES_VIEW",
			"name": "Sales View",
			"kind": "sap.dwc.view",
			"folderId": "SALES",
			"dependencies": [
				{"id": "c1", "qualifiedName": "ORDERS", "kind": "sap.dwc.localtable", "dependencyType": "csn.query.from"}
			]
		}]`))

	tree, err := client.Lineage(context.Background(), "root", DefaultLineageOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, tree.CountObjects())
	assert.Equal(t, "SALES_VIEW", tree.Root.QualifiedName)
	require.Len(t, tree.Root.Children, 1)
	assert.True(t, tree.Root.Children[0].IsTransactional())
	assert.False(t, tree.FetchedAt.IsZero())
}

func TestClient_Lineage_EmptyResponse(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/deepsea/repository/dependencies/",
		httpmock.NewStringResponder(200, `[]`))

	_, err := client.Lineage(context.Background(), "root", DefaultLineageOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty lineage response")
}

func TestClient_RefreshAccessToken(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("POST", testHost+"/oauth/token",
		httpmock.NewStringResponder(200, `{"access_token": "new-token", "refresh_token": "new-refresh", "expires_in": 7200}`))

	require.NoError(t, client.RefreshAccessToken(context.Background()))
	assert.Equal(t, "new-token", client.creds.AccessToken)
	assert.Equal(t, "new-refresh", client.creds.RefreshToken)
	assert.True(t, client.creds.TokenValid())
}

func TestClient_RefreshAccessToken_NoRefreshToken(t *testing.T) {
	client := newTestClient(t)
	client.creds.RefreshToken = ""

	err := client.RefreshAccessToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no refresh token")
}

func TestClient_Users(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/dwaas-core/api/v1/users",
		httpmock.NewStringResponder(200, `{"users": [{"userName": "ADMIN"}]}`))

	users, err := client.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ADMIN", users[0]["userName"])
}

func TestClient_TestConnection(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", testHost+"/dwaas-core/api/v1/spaces",
		httpmock.NewStringResponder(200, `["SALES"]`))

	assert.NoError(t, client.TestConnection(context.Background()))
}
