package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"citizenly-registry/internal/auth"
	"citizenly-registry/internal/config"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/service"
	"citizenly-registry/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMaxBodyBytes = 1 << 20

// testServer wires the full handler stack over the memory repositories,
// the same shape the DB-less dev mode runs.
type testServer struct {
	router *Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	psgc := repository.NewMemoryPSGCRepo()
	psgc.SeedSample()
	psoc := repository.NewMemoryPSOCRepo()
	psoc.SeedSample()
	roles := repository.NewMemoryRolesRepo()
	users := repository.NewMemoryUsersRepo(roles)
	residents := repository.NewMemoryResidentsRepo()
	households := repository.NewMemoryHouseholdsRepo(residents)
	stats := repository.NewMemoryStatsRepo(residents, households, psgc)

	kv := store.NewMemoryKV()
	audit := store.NewMemoryAuditPublisher()
	resolver := geo.NewChainResolver(psgc, kv, logger)
	tokens := auth.NewTokenService(config.AuthConfig{
		SigningKey: "handler-test-signing-key",
		Issuer:     "citizenly-registry",
		TokenTTL:   time.Hour,
	})

	authService := service.NewAuthService(users, roles, resolver, tokens, logger)
	residentService := service.NewResidentService(residents, households, psoc, psgc, resolver, audit, logger)
	householdService := service.NewHouseholdService(households, residents, resolver, audit, logger)
	addressService := service.NewAddressService(psgc, resolver, logger)
	occupationService := service.NewOccupationService(psoc)
	dashboardService := service.NewDashboardService(stats, kv, logger)
	exportService := service.NewExportService(residents, residentService, logger)

	mw := NewAuthMiddleware(tokens, users, logger)
	router := NewRouter(logger)
	router.RegisterAuthRoutes(NewAuthHandler(authService, testMaxBodyBytes, logger), mw)
	router.RegisterResidentRoutes(NewResidentHandler(residentService, exportService, testMaxBodyBytes, logger), mw)
	router.RegisterHouseholdRoutes(NewHouseholdHandler(householdService, testMaxBodyBytes, logger), mw)
	router.RegisterAddressRoutes(NewAddressHandler(addressService, logger), mw)
	router.RegisterOccupationRoutes(NewOccupationHandler(occupationService, logger), mw)
	router.RegisterRoleRoutes(NewRolesHandler(roles, logger), mw)
	router.RegisterDashboardRoutes(NewDashboardHandler(dashboardService, logger), mw)
	router.RegisterOpsRoutes(NewHealthHandler(nil, logger), false)

	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"fields"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Nil(t, env.Error, "unexpected error envelope: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// signupAndLogin registers a barangay admin for the given barangay and
// returns a bearer token.
func (s *testServer) signupAndLogin(t *testing.T, email, barangayCode string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email":         email,
		"password":      "long-enough-password",
		"first_name":    "Ana",
		"last_name":     "Reyes",
		"barangay_code": barangayCode,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    email,
		"password": "long-enough-password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, rec, &login)
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken
}

func residentPayload() map[string]any {
	return map[string]any{
		"first_name":    "Juan",
		"last_name":     "Dela Cruz",
		"birthdate":     "1990-01-01",
		"sex":           "male",
		"civil_status":  "single",
		"barangay_code": "042114014",
	}
}

func TestResidents_RequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/residents", "/households", "/dashboard/summary", "/addresses/regions", "/roles", "/auth/me"} {
		rec := srv.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		env := decodeEnvelope(t, rec)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "unauthorized", env.Error.Code)
	}

	rec := srv.do(t, http.MethodGet, "/residents", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResidents_CreateGetDelete(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodPost, "/residents", token, residentPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID           string `json:"id"`
		BarangayCode string `json:"barangay_code"`
		CityCode     string `json:"city_code"`
		ProvinceCode string `json:"province_code"`
		RegionCode   string `json:"region_code"`
		Age          int    `json:"age"`
	}
	decodeData(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "042114014", created.BarangayCode)
	assert.Equal(t, "042114", created.CityCode)
	assert.Equal(t, "0421", created.ProvinceCode)
	assert.Equal(t, "04", created.RegionCode)
	assert.Positive(t, created.Age)

	rec = srv.do(t, http.MethodGet, "/residents/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/residents", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	decodeData(t, rec, &list)
	assert.Equal(t, 1, list.Total)

	rec = srv.do(t, http.MethodDelete, "/residents/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/residents/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResidents_MinimalPayloadAccepted(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "minimal@barangay.gov.ph", "042114014")

	payload := residentPayload()
	delete(payload, "civil_status")
	rec := srv.do(t, http.MethodPost, "/residents", token, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID          string `json:"id"`
		CivilStatus string `json:"civil_status"`
		Citizenship string `json:"citizenship"`
	}
	decodeData(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "single", created.CivilStatus)
	assert.Equal(t, "Filipino", created.Citizenship)
}

func TestResidents_MalformedIDReadsAsMissing(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "ids@barangay.gov.ph", "042114014")

	for _, path := range []string{"/residents/not-a-uuid", "/residents/not-a-uuid/migration", "/households/not-a-uuid"} {
		rec := srv.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := srv.do(t, http.MethodDelete, "/residents/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResidents_ValidationErrorsCarryFields(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	payload := residentPayload()
	payload["sex"] = "unknown"
	payload["birthdate"] = "01-01-1990"

	rec := srv.do(t, http.MethodPost, "/residents", token, payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)

	seen := map[string]bool{}
	for _, f := range env.Error.Fields {
		seen[f.Field] = true
	}
	assert.True(t, seen["sex"])
	assert.True(t, seen["birthdate"])
}

func TestResidents_ScopeIsolationBetweenBarangays(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.signupAndLogin(t, "owner@barangay.gov.ph", "042114014")
	neighbor := srv.signupAndLogin(t, "neighbor@barangay.gov.ph", "042114015")

	rec := srv.do(t, http.MethodPost, "/residents", owner, residentPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)

	// the neighboring barangay admin cannot see or create here
	rec = srv.do(t, http.MethodGet, "/residents/"+created.ID, neighbor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/residents", neighbor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	decodeData(t, rec, &list)
	assert.Zero(t, list.Total)

	rec = srv.do(t, http.MethodPost, "/residents", neighbor, residentPayload())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResidents_MigrationSubresource(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodPost, "/residents", token, residentPayload())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)

	migrationPath := fmt.Sprintf("/residents/%s/migration", created.ID)

	rec = srv.do(t, http.MethodGet, migrationPath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPut, migrationPath, token, map[string]any{
		"previous_barangay_code": "042114015",
		"date_of_transfer":       "2024-06-15",
		"reason_for_transfer":    "employment",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, migrationPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var migration struct {
		PreviousBarangayCode string `json:"previous_barangay_code"`
	}
	decodeData(t, rec, &migration)
	assert.Equal(t, "042114015", migration.PreviousBarangayCode)

	rec = srv.do(t, http.MethodDelete, migrationPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, migrationPath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResidents_ExportWorkbook(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodPost, "/residents", token, residentPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodGet, "/residents/export", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())

	rec = srv.do(t, http.MethodGet, "/residents/import/template", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())
}

func TestHouseholds_CreateAndHeadAssignment(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodPost, "/households", token, map[string]any{
		"code":          "HH-001",
		"name":          "Dela Cruz Residence",
		"barangay_code": "042114014",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var household struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &household)

	payload := residentPayload()
	payload["household_id"] = household.ID
	rec = srv.do(t, http.MethodPost, "/residents", token, payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	var member struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &member)

	rec = srv.do(t, http.MethodGet, "/households/"+household.ID+"/residents", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPut, "/households/"+household.ID+"/head", token, map[string]any{
		"resident_id": member.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		HeadResidentID string `json:"head_resident_id"`
		MemberCount    int    `json:"member_count"`
	}
	decodeData(t, rec, &updated)
	assert.Equal(t, member.ID, updated.HeadResidentID)
	assert.Equal(t, 1, updated.MemberCount)

	// deletion is refused while the member remains
	rec = srv.do(t, http.MethodDelete, "/households/"+household.ID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddresses_BrowseAndResolve(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodGet, "/addresses/regions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var regions []struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	decodeData(t, rec, &regions)
	assert.NotEmpty(t, regions)

	rec = srv.do(t, http.MethodGet, "/addresses/resolve?barangay_code=042114014", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved struct {
		BarangayCode string `json:"barangay_code"`
		RegionCode   string `json:"region_code"`
	}
	decodeData(t, rec, &resolved)
	assert.Equal(t, "042114014", resolved.BarangayCode)
	assert.Equal(t, "04", resolved.RegionCode)

	rec = srv.do(t, http.MethodGet, "/addresses/resolve?barangay_code=999999999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOccupations_SearchAndChildren(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodGet, "/occupations?search=teacher", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/occupations/2/children", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var children []struct {
		Code string `json:"code"`
	}
	decodeData(t, rec, &children)
	require.NotEmpty(t, children)
	assert.Equal(t, "23", children[0].Code)
}

func TestDashboard_SummaryForCaller(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodPost, "/residents", token, residentPayload())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodGet, "/dashboard/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		TotalResidents int `json:"total_residents"`
	}
	decodeData(t, rec, &summary)
	assert.Equal(t, 1, summary.TotalResidents)
}

func TestHealthz_WithoutDatabase(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignup_DuplicateEmailAndOversizedBody(t *testing.T) {
	srv := newTestServer(t)
	srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email":         "admin@barangay.gov.ph",
		"password":      "another-long-password",
		"first_name":    "Ana",
		"last_name":     "Reyes",
		"barangay_code": "042114014",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)

	oversized := map[string]any{
		"email":      "big@barangay.gov.ph",
		"first_name": strings.Repeat("x", testMaxBodyBytes+1),
	}
	rec = srv.do(t, http.MethodPost, "/auth/signup", "", oversized)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signupAndLogin(t, "admin@barangay.gov.ph", "042114014")

	rec := srv.do(t, http.MethodDelete, "/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = srv.do(t, http.MethodPost, "/dashboard/summary", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
