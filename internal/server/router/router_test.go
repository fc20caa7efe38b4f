package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DGouron/billed/internal/logger"
	"github.com/DGouron/billed/internal/receipts"
	"github.com/DGouron/billed/internal/server/models"
	"github.com/DGouron/billed/internal/storage/inmemory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := inmemory.NewStorage()

	vault, err := receipts.NewVault(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)

	t.Cleanup(func() { vault.Close() }) //nolint:errcheck

	r := NewRouter(store, vault,
		WithSecret([]byte("testsecret")),
		WithLogger(logger.NewLogger(logger.WithOutput(io.Discard))),
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader

	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck

	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func registerUser(t *testing.T, srv *httptest.Server, email, password, role string) string {
	t.Helper()

	resp := doJSON(t, srv, http.MethodPost, "/api/user/register", "", models.RegisterRequest{
		Email:    email,
		Password: password,
		Type:     role,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	login := decodeJSON[models.LoginResponse](t, resp)
	require.NotEmpty(t, login.JWT)

	return login.JWT
}

func newBillPayload() models.BillPayload {
	return models.BillPayload{
		Name:     "Nouvelle facture",
		Type:     "Hôtel et logement",
		Date:     "2023-03-22",
		Amount:   decimal.NewFromInt(150),
		VAT:      "30",
		Pct:      20,
		FileName: "test.png",
		FileURL:  "/api/receipts/key-1",
	}
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/ping")
	require.NoError(t, err)

	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	registerUser(t, srv, "johndoe@email.com", "azerty", "Employee")

	// Registering the same email twice conflicts.
	resp := doJSON(t, srv, http.MethodPost, "/api/user/register", "", models.RegisterRequest{
		Email:    "johndoe@email.com",
		Password: "azerty",
		Type:     "Employee",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Login with the right password.
	resp = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", models.UserRequest{
		Email:    "johndoe@email.com",
		Password: "azerty",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	login := decodeJSON[models.LoginResponse](t, resp)
	assert.NotEmpty(t, login.JWT)
	assert.NotEmpty(t, resp.Header.Get("Authorization"))

	// Wrong password.
	resp = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", models.UserRequest{
		Email:    "johndoe@email.com",
		Password: "qwerty",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Unknown user.
	resp = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", models.UserRequest{
		Email:    "nobody@email.com",
		Password: "azerty",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/user/register", "", models.RegisterRequest{
		Email:    "johndoe@email.com",
		Password: "azerty",
		Type:     "Superuser",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/api/user/register", "", models.RegisterRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBillsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/bills", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/api/bills", "", newBillPayload())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListBills(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "johndoe@email.com", "azerty", "Employee")

	payload := newBillPayload()
	// The payload email is ignored; bills are scoped to the token subject.
	payload.Email = "someoneelse@email.com"

	resp := doJSON(t, srv, http.MethodPost, "/api/bills", token, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeJSON[models.BillPayload](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "johndoe@email.com", created.Email)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "30", created.VAT)

	resp = doJSON(t, srv, http.MethodGet, "/api/bills", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	billList := decodeJSON[[]models.BillPayload](t, resp)
	require.Len(t, billList, 1)
	assert.Equal(t, created.ID, billList[0].ID)

	// Another employee sees none of them.
	otherToken := registerUser(t, srv, "janedoe@email.com", "secret", "Employee")

	resp = doJSON(t, srv, http.MethodGet, "/api/bills", otherToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeJSON[[]models.BillPayload](t, resp))
}

func TestCreateBillRejectsBadPayload(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "johndoe@email.com", "azerty", "Employee")

	payload := newBillPayload()
	payload.FileName = "test.pdf"

	resp := doJSON(t, srv, http.MethodPost, "/api/bills", token, payload)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	payload = newBillPayload()
	payload.Name = ""

	resp = doJSON(t, srv, http.MethodPost, "/api/bills", token, payload)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdminRoutesForbiddenForEmployees(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "johndoe@email.com", "azerty", "Employee")

	resp := doJSON(t, srv, http.MethodGet, "/api/dashboard/bills", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPut, "/api/bills/some-id", token, newBillPayload())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReviewBill(t *testing.T) {
	srv := newTestServer(t)
	employeeToken := registerUser(t, srv, "johndoe@email.com", "azerty", "Employee")
	adminToken := registerUser(t, srv, "admin@test.tld", "admin", "Admin")

	resp := doJSON(t, srv, http.MethodPost, "/api/bills", employeeToken, newBillPayload())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[models.BillPayload](t, resp)

	// The admin sees every bill on the dashboard.
	resp = doJSON(t, srv, http.MethodGet, "/api/dashboard/bills", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decodeJSON[[]models.BillPayload](t, resp), 1)

	// Accept the bill.
	decision := created
	decision.Status = "accepted"
	decision.CommentAdmin = "ok"

	resp = doJSON(t, srv, http.MethodPut, "/api/bills/"+created.ID, adminToken, decision)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reviewed := decodeJSON[models.BillPayload](t, resp)
	assert.Equal(t, "accepted", reviewed.Status)
	assert.Equal(t, "ok", reviewed.CommentAdmin)

	// The decision shows up on the submitter's own list.
	resp = doJSON(t, srv, http.MethodGet, "/api/bills", employeeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	billList := decodeJSON[[]models.BillPayload](t, resp)
	require.Len(t, billList, 1)
	assert.Equal(t, "accepted", billList[0].Status)

	// A decided bill never goes back to pending.
	decision.Status = "pending"

	resp = doJSON(t, srv, http.MethodPut, "/api/bills/"+created.ID, adminToken, decision)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Unknown bill.
	decision.Status = "refused"

	resp = doJSON(t, srv, http.MethodPut, "/api/bills/ghost", adminToken, decision)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func uploadReceipt(t *testing.T, srv *httptest.Server, token, fileName string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)

	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/receipts", &buf)
	require.NoError(t, err)

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck

	return resp
}

func TestReceiptUploadAndDownload(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "johndoe@email.com", "azerty", "Employee")

	resp := uploadReceipt(t, srv, token, "test.png", []byte("png-bytes"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	receipt := decodeJSON[models.ReceiptResponse](t, resp)
	assert.NotEmpty(t, receipt.Key)
	assert.Equal(t, "/api/receipts/"+receipt.Key, receipt.FileURL)

	resp = doJSON(t, srv, http.MethodGet, receipt.FileURL, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)

	resp = doJSON(t, srv, http.MethodGet, "/api/receipts/ghost", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceiptUploadRejectsBadExtension(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "johndoe@email.com", "azerty", "Employee")

	resp := uploadReceipt(t, srv, token, "test.pdf", []byte("pdf-bytes"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeJSON[models.JSONResponse](t, resp)
	assert.Equal(t, "Formats acceptés : jpg, jpeg et png", body.Error)
}
