package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eaglebank/ledger/ledger-service/internal/command"
	"github.com/eaglebank/ledger/ledger-service/internal/handler"
	"github.com/eaglebank/ledger/ledger-service/internal/query"
	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var e2eSecret = []byte("e2e-secret")

func newTestServer(t *testing.T, requireTransferAuth bool) *gin.Engine {
	t.Helper()
	return newTestServerWithHasher(t, utils.PlainHasher{}, requireTransferAuth)
}

func newTestServerWithHasher(t *testing.T, hasher utils.PinHasher, requireTransferAuth bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := repository.NewAccountStore()
	cmds := command.NewLedgerCommandService(store, hasher, nil, command.WithLogger(logger))
	h := handler.NewLedgerHandler(cmds, query.NewLedgerQueryService(store), query.NewTokenService(e2eSecret, time.Hour),
		handler.Options{RequireTransferAuth: requireTransferAuth}, logger)
	return setupRouter(h, store, e2eSecret, requireTransferAuth, logger)
}

func call(t *testing.T, router *gin.Engine, method, url, body string, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestHealthAndWelcome(t *testing.T) {
	router := newTestServer(t, false)

	code, body := call(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["accounts"])

	call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"Alice","pin_number":"1"}`)
	call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"alice","pin_number":"1"}`)
	_, body = call(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, float64(1), body["accounts"])

	code, _ = call(t, router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestLedgerFlow(t *testing.T) {
	router := newTestServer(t, false)

	code, body := call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"Alice","pin_number":"1234"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User 'Alice' registered and authenticated with an initial balance of $1000.00.", body["message"])
	assert.NotEmpty(t, body["token"])

	code, body = call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"Bob","pin_number":"0000","bank_balance":50}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "$50.00", body["bank_balance"])

	code, body = call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"ALICE","pin_number":"1234"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Welcome back, ALICE!", body["message"])

	code, body = call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"alice","pin_number":"9999"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials.", body["message"])

	code, body = call(t, router, http.MethodPost, "/v1/bank-transfer", `{"sender":"alice","recipient_name":"BOB","amount":10.25}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Transfer successful!", body["message"])
	assert.Equal(t, "$989.75", body["sender_balance"])
	assert.Equal(t, "$60.25", body["recipient_balance"])

	code, body = call(t, router, http.MethodPost, "/v1/bank-transfer", `{"sender":"Bob","recipient_name":"Alice","amount":1000}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Insufficient funds.", body["message"])

	code, body = call(t, router, http.MethodPost, "/v1/bank-transfer", `{"sender":"Zed","recipient_name":"Nobody","amount":1}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Sender 'Zed' not found.", body["message"])

	code, body = call(t, router, http.MethodPost, "/v1/bank-transfer", `{"sender":"Alice","recipient_name":"Nobody","amount":1}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Recipient 'Nobody' not found.", body["message"])

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"name":"Alice","pin_number":"1234","bank_balance":989.75},
		{"name":"Bob","pin_number":"0000","bank_balance":60.25}
	]`, w.Body.String())
}

func TestTransferWithRequiredToken(t *testing.T) {
	router := newTestServer(t, true)

	_, alice := call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"Alice","pin_number":"1"}`)
	_, bob := call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"Bob","pin_number":"2"}`)
	transfer := `{"sender":"Alice","recipient_name":"Bob","amount":5}`

	code, _ := call(t, router, http.MethodPost, "/v1/bank-transfer", transfer)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, router, http.MethodPost, "/v1/bank-transfer", transfer, "Authorization", "Bearer "+bob["token"].(string))
	assert.Equal(t, http.StatusForbidden, code)

	code, body := call(t, router, http.MethodPost, "/v1/bank-transfer", transfer, "Authorization", "Bearer "+alice["token"].(string))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "$995.00", body["sender_balance"])
}

func TestConcurrentTransfersOverHTTPConserveMoney(t *testing.T) {
	router := newTestServer(t, false)
	call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"A","pin_number":"1","bank_balance":100}`)
	call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"B","pin_number":"1","bank_balance":100}`)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			call(t, router, http.MethodPost, "/v1/bank-transfer", `{"sender":"A","recipient_name":"B","amount":3}`)
		}()
		go func() {
			defer wg.Done()
			call(t, router, http.MethodPost, "/v1/bank-transfer", `{"sender":"B","recipient_name":"A","amount":2}`)
		}()
	}
	wg.Wait()

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var users []struct {
		BankBalance json.Number `json:"bank_balance"`
	}
	dec := json.NewDecoder(strings.NewReader(w.Body.String()))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&users))
	require.Len(t, users, 2)

	var total float64
	for _, u := range users {
		v, err := u.BankBalance.Float64()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0)
		total += v
	}
	assert.InDelta(t, 200.0, total, 0.001)
}

func TestMultibytePinWithBcrypt(t *testing.T) {
	router := newTestServerWithHasher(t, utils.NewBcryptHasher(bcrypt.MinCost), false)

	code, body := call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"Eve","pin_number":"`+strings.Repeat("é", 40)+`"}`)
	assert.Equal(t, http.StatusBadRequest, code, body)

	pin := strings.Repeat("é", 36)
	code, body = call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"Eve","pin_number":"`+pin+`"}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = call(t, router, http.MethodPost, "/v1/authenticate", `{"name":"eve","pin_number":"`+pin+`"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Welcome back, eve!", body["message"])
}
