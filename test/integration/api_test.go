// Package integration provides end-to-end tests for the fleetvault API.
// Every flow runs against both PostgreSQL and MySQL and is skipped when the database is down.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/fleetvault/internal/app"
	auditDTO "github.com/allisson/fleetvault/internal/audit/http/dto"
	"github.com/allisson/fleetvault/internal/config"
	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
	cryptoDTO "github.com/allisson/fleetvault/internal/crypto/http/dto"
	"github.com/allisson/fleetvault/internal/testutil"
)

const testActor = "integration-suite"

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	dbDriver  string
}

var drivers = []struct {
	name     string
	dbDriver string
}{
	{"PostgreSQL", "postgres"},
	{"MySQL", "mysql"},
}

func testSecret(b byte) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{b}, 32))
}

// newConfig returns a configuration for driver with a fixed secret per keyed classification.
func newConfig(driver string) *config.Config {
	return &config.Config{
		DBDriver:             driver,
		DBConnectionString:   testutil.GetTestDSN(driver),
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		ClassificationSecrets: "INTERNAL:" + testSecret('i') +
			",CONFIDENTIAL:" + testSecret('c') +
			",RESTRICTED:" + testSecret('r'),
		KeyDerivationSalt:          "fleetvault-integration",
		PBKDF2Iterations:           cryptoDomain.MinPBKDF2Iterations,
		CipherAlgorithm:            string(cryptoDomain.AESGCM),
		KeyStateTTL:                time.Second,
		SecretRetryMaxAttempts:     1,
		SecretRetryInitialInterval: time.Millisecond,
		SecretRetryMaxInterval:     time.Millisecond,
		ForwarderMaxAttempts:       1,
		ForwarderInitialInterval:   time.Millisecond,
		ForwarderMaxInterval:       time.Millisecond,
		ForwarderPause:             time.Millisecond,
		MetricsNamespace:           "fleetvault_integration",
	}
}

// setupIntegrationTest migrates and empties the database, then serves the full router.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := testutil.SetupDB(t, dbDriver)

	container := app.NewContainer(newConfig(dbDriver))

	chain, err := container.AuditChain()
	require.NoError(t, err, "failed to get audit chain")
	require.NoError(t, chain.Load(context.Background()), "failed to load audit chain")

	httpSrv, err := container.HTTPServer(context.Background())
	require.NoError(t, err, "failed to get HTTP server")

	handler := httpSrv.GetHandler()
	require.NotNil(t, handler, "handler should not be nil after SetupRouter")

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    httptest.NewServer(handler),
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}
}

// makeRequest performs an HTTP request as testActor and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body any,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-Id", testActor)
	req.Header.Set("X-Tenant-Id", "fleet-east")

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// listEvents returns the committed audit events matching query.
func (ctx *integrationTestContext) listEvents(t *testing.T, query string) []auditDTO.AuditEventResponse {
	t.Helper()

	resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/audit/events"+query, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var list auditDTO.ListAuditEventsResponse
	require.NoError(t, json.Unmarshal(body, &list))
	return list.Data
}

func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			t.Run("01_HealthCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]string
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, "healthy", response["status"])
			})

			t.Run("02_ReadinessCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/ready", nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response struct {
					Status     string            `json:"status"`
					Components map[string]string `json:"components"`
				}
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, "ready", response.Status)
				assert.Equal(t, "ok", response.Components["database"])
			})
		})
	}
}

// TestIntegration_Crypto_CompleteFlow seals and opens single values, rotates the key and
// checks that every step landed in the audit chain.
func TestIntegration_Crypto_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			plaintext := []byte("4111-1111-1111-1111")
			aad := base64.StdEncoding.EncodeToString([]byte("payment:77"))
			var firstEnvelope json.RawMessage

			t.Run("01_Encrypt", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/encrypt", cryptoDTO.EncryptRequest{
					Classification: "RESTRICTED",
					Plaintext:      base64.StdEncoding.EncodeToString(plaintext),
					AAD:            aad,
				})
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var envelope cryptoDomain.EncryptedEnvelope
				require.NoError(t, json.Unmarshal(body, &envelope))
				assert.Equal(t, cryptoDomain.Restricted, envelope.Classification)
				assert.Equal(t, uint(1), envelope.KeyVersion)
				assert.Equal(t, cryptoDomain.AESGCM, envelope.Algorithm)
				assert.Len(t, envelope.IV, 12)
				assert.NotContains(t, string(body), string(plaintext))

				firstEnvelope = body
			})

			t.Run("02_Decrypt", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/decrypt", cryptoDTO.DecryptRequest{
					Envelope: firstEnvelope,
					AAD:      aad,
				})
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var response cryptoDTO.DecryptResponse
				require.NoError(t, json.Unmarshal(body, &response))
				decoded, err := base64.StdEncoding.DecodeString(response.Plaintext)
				require.NoError(t, err)
				assert.Equal(t, plaintext, decoded)
			})

			t.Run("03_DecryptWithWrongAAD", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/decrypt", cryptoDTO.DecryptRequest{
					Envelope: firstEnvelope,
					AAD:      base64.StdEncoding.EncodeToString([]byte("payment:78")),
				})
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})

			t.Run("04_EncryptPublicRejected", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/encrypt", cryptoDTO.EncryptRequest{
					Classification: "PUBLIC",
					Plaintext:      base64.StdEncoding.EncodeToString(plaintext),
				})
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})

			t.Run("05_RotateKeys", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/keys/rotate", cryptoDTO.RotateKeysRequest{
					Classification: "RESTRICTED",
				})
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var response cryptoDTO.RotateKeysResponse
				require.NoError(t, json.Unmarshal(body, &response))
				require.Len(t, response.Data, 1)
				assert.Equal(t, uint(2), response.Data[0].Version)
				assert.Equal(t, "active", response.Data[0].State)
			})

			t.Run("06_KeyStatus", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/keys/RESTRICTED", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var response cryptoDTO.KeyStatusResponse
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, uint(2), response.ActiveVersion)
				require.Len(t, response.Versions, 2)
				assert.Equal(t, "active", response.Versions[0].State)
				assert.Equal(t, "retired", response.Versions[1].State)
			})

			t.Run("07_DecryptAfterRotation", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/decrypt", cryptoDTO.DecryptRequest{
					Envelope: firstEnvelope,
					AAD:      aad,
				})
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			})

			t.Run("08_NewEnvelopesUseActiveVersion", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/encrypt", cryptoDTO.EncryptRequest{
					Classification: "RESTRICTED",
					Plaintext:      base64.StdEncoding.EncodeToString(plaintext),
				})
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var envelope cryptoDomain.EncryptedEnvelope
				require.NoError(t, json.Unmarshal(body, &envelope))
				assert.Equal(t, uint(2), envelope.KeyVersion)
			})

			t.Run("09_AuditTrail", func(t *testing.T) {
				// The PUBLIC request failed validation and never reached the transformer.
				encrypts := ctx.listEvents(t, "?type=crypto.encrypt")
				require.Len(t, encrypts, 2)
				assert.Equal(t, "success", encrypts[0].Status)
				assert.Equal(t, testActor, encrypts[0].ActorID)
				assert.Equal(t, "fleet-east", encrypts[0].TenantID)

				decrypts := ctx.listEvents(t, "?type=crypto.decrypt")
				require.Len(t, decrypts, 3)
				assert.Equal(t, "failure", decrypts[1].Status)

				rotations := ctx.listEvents(t, "?type=keys.rotate")
				require.Len(t, rotations, 1)
				assert.Equal(t, "high", rotations[0].Severity)

				for _, event := range append(encrypts, decrypts...) {
					assert.NotContains(t, event.Details, "plaintext")
				}
			})

			t.Run("10_VerifyChain", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/audit/verify", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var report auditDTO.VerificationResponse
				require.NoError(t, json.Unmarshal(body, &report))
				assert.True(t, report.Valid)
				assert.Equal(t, uint64(6), report.Length)
				assert.Equal(t, int64(-1), report.BreakIndex)
			})
		})
	}
}

// TestIntegration_Objects_CompleteFlow drives whole-record encryption through the
// compiled-in classification table.
func TestIntegration_Objects_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			record := map[string]any{
				"name":          "Dana Whitfield",
				"email":         "dana@fleet.example",
				"licenseNumber": "D1234-5678",
				"bankAccount":   "000123456789",
				"vehicleId":     "truck-42",
			}
			var sealed map[string]any

			t.Run("01_EncryptObject", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/objects/encrypt", cryptoDTO.ObjectRequest{
					Classification: "RESTRICTED",
					Object:         record,
				})
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var response cryptoDTO.ObjectResponse
				require.NoError(t, json.Unmarshal(body, &response))
				sealed = response.Object

				// Only RESTRICTED selectors apply; lower tiers are sealed by their own requests.
				for _, field := range []string{"name", "vehicleId", "email", "licenseNumber"} {
					assert.Equal(t, record[field], sealed[field], field)
				}
				assert.IsType(t, map[string]any{}, sealed["bankAccount"])
				assert.False(t, strings.Contains(string(body), "000123456789"))
			})

			t.Run("02_DecryptObject", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/crypto/objects/decrypt", cryptoDTO.ObjectRequest{
					Classification: "RESTRICTED",
					Object:         sealed,
				})
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var response cryptoDTO.ObjectResponse
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, record, response.Object)
			})

			t.Run("03_AuditTrail", func(t *testing.T) {
				assert.Len(t, ctx.listEvents(t, "?type=crypto.encrypt_object"), 1)
				assert.Len(t, ctx.listEvents(t, "?type=crypto.decrypt_object"), 1)
			})
		})
	}
}

// TestIntegration_Audit_CompleteFlow appends client events, walks the chain and records
// a deletion.
func TestIntegration_Audit_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			var created []auditDTO.AuditEventResponse

			t.Run("01_CreateEvents", func(t *testing.T) {
				for _, vehicle := range []string{"vehicle:1", "vehicle:2", "vehicle:3"} {
					resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/audit/events", auditDTO.CreateEventRequest{
						EventType: "fleet.vehicle_viewed",
						Resource:  vehicle,
						Action:    "view",
						Status:    "success",
						Severity:  "low",
						Details:   map[string]any{"screen": "dispatch"},
					})
					require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

					var event auditDTO.AuditEventResponse
					require.NoError(t, json.Unmarshal(body, &event))
					created = append(created, event)
				}

				require.Len(t, created, 3)
				assert.Empty(t, created[0].PreviousHash)
				assert.Equal(t, created[0].Hash, created[1].PreviousHash)
				assert.Equal(t, created[1].Hash, created[2].PreviousHash)
				assert.Equal(t, created[0].Sequence+1, created[1].Sequence)
			})

			t.Run("02_ReservedTypeRejected", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/audit/events", auditDTO.CreateEventRequest{
					EventType: "keys.rotate",
					Status:    "success",
					Severity:  "low",
				})
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})

			t.Run("03_GetEvent", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/audit/events/"+created[1].ID, nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var event auditDTO.AuditEventResponse
				require.NoError(t, json.Unmarshal(body, &event))
				assert.Equal(t, created[1].Hash, event.Hash)
				assert.Equal(t, "vehicle:2", event.Resource)
			})

			t.Run("04_GetEventChain", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/audit/events/"+created[1].ID+"/chain", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var list auditDTO.ListAuditEventsResponse
				require.NoError(t, json.Unmarshal(body, &list))
				require.Len(t, list.Data, 2)
				assert.Equal(t, created[0].ID, list.Data[0].ID)
				assert.Equal(t, created[1].ID, list.Data[1].ID)
			})

			t.Run("05_TamperCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/audit/events/"+created[2].ID+"/tamper", nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var response auditDTO.TamperResponse
				require.NoError(t, json.Unmarshal(body, &response))
				assert.False(t, response.Tampered)
			})

			t.Run("06_RecordDeletion", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodDelete, "/v1/audit/events/"+created[0].ID, auditDTO.DeleteEventRequest{
					Reason: "driver erasure request",
				})
				require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

				var event auditDTO.AuditEventResponse
				require.NoError(t, json.Unmarshal(body, &event))
				assert.Equal(t, "record.deleted", event.EventType)
				assert.Equal(t, created[2].Hash, event.PreviousHash)

				// The target stays readable.
				resp, _ = ctx.makeRequest(t, http.MethodGet, "/v1/audit/events/"+created[0].ID, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			})

			t.Run("07_ListFilteredByActor", func(t *testing.T) {
				events := ctx.listEvents(t, "?actor="+testActor)
				assert.Len(t, events, 4)
			})

			t.Run("08_UnknownEvent", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/audit/events/0195e9d4-7d2a-7c3e-9b1a-000000000000", nil)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			})
		})
	}
}
