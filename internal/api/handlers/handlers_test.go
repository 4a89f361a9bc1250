package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voltroute/voltroute/internal/api/handlers"
	"github.com/voltroute/voltroute/internal/catalog"
	"github.com/voltroute/voltroute/internal/models"
	"github.com/voltroute/voltroute/internal/planner"
	"github.com/voltroute/voltroute/internal/state"
	"github.com/voltroute/voltroute/internal/store"
	"github.com/voltroute/voltroute/internal/upstream"
	"github.com/voltroute/voltroute/pkg/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAPI emulates the remote optimization service.
func fakeAPI() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ev-data", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Catalog{
			"Tata": {
				"Nexon EV": {BatteryCapacity: 40.5, Range: 465},
				"Tigor EV": {BatteryCapacity: 26, Range: 315},
			},
			"MG": {
				"ZS EV": {BatteryCapacity: 50.3, Range: 461},
			},
		})
	})

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			VehicleNumber string `json:"vehicle_number"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.VehicleNumber != "KA-01-AB-1234" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Vehicle number not found. Please sign up first."})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Login successful",
			"user": models.Session{
				VehicleNumber:   "KA-01-AB-1234",
				Company:         "Tata",
				Model:           "Nexon EV",
				BatteryCapacity: 40.5,
				VehicleRange:    465,
			},
		})
	})

	mux.HandleFunc("POST /api/signup", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "Signup successful"})
	})

	mux.HandleFunc("POST /api/optimize", func(w http.ResponseWriter, r *http.Request) {
		var req models.OptimizeRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(models.OptimizeResult{
			Algorithm:      req.Algorithm,
			OptimizedRoute: req.CustomerData,
			TotalDistance:  120,
			EstimatedTime:  95,
		})
	})

	return mux
}

func newEnv(t *testing.T) *gin.Engine {
	t.Helper()

	api := httptest.NewServer(fakeAPI())
	t.Cleanup(api.Close)

	logger := zap.NewNop()
	mem := store.NewMemory()
	client := upstream.NewClient(api.URL, 5*time.Second)
	cache := catalog.NewCache(client, 5*time.Minute, logger)
	hub := ws.NewHub(logger)
	machines := state.NewManager(nil)
	pipeline := planner.NewPipeline(logger, client, mem, machines, 5*time.Second, 100, 100)
	editors := planner.NewEditors()

	h := handlers.NewHandler(logger, mem, cache, editors, pipeline, client, hub)

	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

// do issues a request pinned to a client identity via the header.
func do(t *testing.T, router *gin.Engine, clientID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func login(t *testing.T, router *gin.Engine, clientID string) {
	t.Helper()
	w := do(t, router, clientID, http.MethodPost, "/api/login", map[string]string{"vehicle_number": "KA-01-AB-1234"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
}

func importSample(t *testing.T, router *gin.Engine, clientID string) {
	t.Helper()
	w := do(t, router, clientID, http.MethodPost, "/api/customers/import", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d", w.Code)
	}
}

func TestCookieIssuedWithoutHeader(t *testing.T) {
	router := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/theme", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "voltroute_client=") {
		t.Errorf("Set-Cookie = %q, want voltroute_client", cookie)
	}
}

func TestThemeDefaultAndToggle(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodGet, "/api/theme", nil)
	data := decode(t, w)["data"].(map[string]interface{})
	if data["theme"] != "light" || data["glyph"] != "🌙" {
		t.Errorf("default theme = %v", data)
	}

	w = do(t, router, "c1", http.MethodPost, "/api/theme/toggle", nil)
	data = decode(t, w)["data"].(map[string]interface{})
	if data["theme"] != "dark" || data["glyph"] != "☀️" {
		t.Errorf("after toggle = %v", data)
	}

	// Toggle round trip lands back on light.
	do(t, router, "c1", http.MethodPost, "/api/theme/toggle", nil)
	w = do(t, router, "c1", http.MethodGet, "/api/theme", nil)
	data = decode(t, w)["data"].(map[string]interface{})
	if data["theme"] != "light" {
		t.Errorf("after double toggle theme = %v", data["theme"])
	}

	w = do(t, router, "c1", http.MethodPut, "/api/theme", map[string]string{"theme": "neon"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid theme status = %d", w.Code)
	}
}

func TestThemeScopedPerClient(t *testing.T) {
	router := newEnv(t)

	do(t, router, "c1", http.MethodPost, "/api/theme/toggle", nil)

	w := do(t, router, "c2", http.MethodGet, "/api/theme", nil)
	data := decode(t, w)["data"].(map[string]interface{})
	if data["theme"] != "light" {
		t.Errorf("c2 theme = %v, want light", data["theme"])
	}
}

func TestLoginPersistsSession(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodGet, "/api/session", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("session before login status = %d", w.Code)
	}

	login(t, router, "c1")

	w = do(t, router, "c1", http.MethodGet, "/api/session", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session status = %d", w.Code)
	}
	data := decode(t, w)["data"].(map[string]interface{})
	if data["vehicle_number"] != "KA-01-AB-1234" {
		t.Errorf("vehicle_number = %v", data["vehicle_number"])
	}
}

func TestLoginServerMessagePassesThrough(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodPost, "/api/login", map[string]string{"vehicle_number": "XX-00-XX-0000"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "Vehicle number not found. Please sign up first." {
		t.Errorf("error = %v", msg)
	}
}

func TestCustomerEditor(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodPost, "/api/customers", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d", w.Code)
	}

	w = do(t, router, "c1", http.MethodPost, "/api/customers", models.CustomerEntry{Name: "Asha", Address: "MG Road"})
	data := decode(t, w)["data"].(map[string]interface{})
	if data["index"].(float64) != 1 {
		t.Errorf("second row index = %v", data["index"])
	}

	w = do(t, router, "c1", http.MethodPut, "/api/customers/0", models.CustomerEntry{Name: "Ravi", Address: "Koramangala"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}

	w = do(t, router, "c1", http.MethodDelete, "/api/customers/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = do(t, router, "c1", http.MethodGet, "/api/customers", nil)
	rows := decode(t, w)["data"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].(map[string]interface{})["name"] != "Ravi" {
		t.Errorf("remaining row = %v", rows[0])
	}

	w = do(t, router, "c1", http.MethodPut, "/api/customers/9", models.CustomerEntry{Name: "X", Address: "Y"})
	if w.Code != http.StatusNotFound {
		t.Errorf("out-of-range update status = %d", w.Code)
	}
}

func TestImportWithoutRowsInjectsSample(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodPost, "/api/customers/import", nil)
	rows := decode(t, w)["data"].([]interface{})
	if len(rows) != 3 {
		t.Fatalf("sample rows = %d, want 3", len(rows))
	}
	if rows[0].(map[string]interface{})["name"] != "Customer 1" {
		t.Errorf("first sample row = %v", rows[0])
	}
}

func TestCatalogEndpoints(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodGet, "/api/catalog/companies", nil)
	companies := decode(t, w)["data"].([]interface{})
	if len(companies) != 2 || companies[0] != "MG" || companies[1] != "Tata" {
		t.Errorf("companies = %v, want sorted [MG Tata]", companies)
	}

	w = do(t, router, "c1", http.MethodGet, "/api/catalog/companies/Tata/models", nil)
	names := decode(t, w)["data"].([]interface{})
	if len(names) != 2 || names[0] != "Nexon EV" {
		t.Errorf("models = %v", names)
	}

	w = do(t, router, "c1", http.MethodGet, "/api/catalog/companies/Tata/models/Nexon%20EV", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("specs status = %d", w.Code)
	}
	specs := decode(t, w)["data"].(map[string]interface{})
	if specs["battery_capacity"].(float64) != 40.5 {
		t.Errorf("battery_capacity = %v", specs["battery_capacity"])
	}

	w = do(t, router, "c1", http.MethodGet, "/api/catalog/companies/Tata/models/Cybertruck", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown model status = %d", w.Code)
	}
}

func TestOptimizeRequiresLogin(t *testing.T) {
	router := newEnv(t)
	importSample(t, router, "c1")

	w := do(t, router, "c1", http.MethodPost, "/api/optimize", map[string]interface{}{
		"algorithm": "SA",
		"params":    models.RuntimeParams{BatteryPercentage: 80},
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "please login before requesting a route" {
		t.Errorf("error = %v", msg)
	}
}

func TestOptimizeRequiresCustomers(t *testing.T) {
	router := newEnv(t)
	login(t, router, "c1")

	w := do(t, router, "c1", http.MethodPost, "/api/optimize", map[string]interface{}{
		"algorithm": "SA",
		"params":    models.RuntimeParams{BatteryPercentage: 80},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestOptimizeEndToEnd(t *testing.T) {
	router := newEnv(t)
	login(t, router, "c1")
	importSample(t, router, "c1")

	w := do(t, router, "c1", http.MethodPost, "/api/optimize", map[string]interface{}{
		"algorithm": "ACO",
		"params":    models.RuntimeParams{BatteryPercentage: 80, Temperature: 25, LoadCarry: 10},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("optimize status = %d, body %s", w.Code, w.Body.String())
	}
	result := decode(t, w)["data"].(map[string]interface{})
	if len(result["optimized_route"].([]interface{})) != 3 {
		t.Errorf("optimized_route = %v", result["optimized_route"])
	}

	w = do(t, router, "c1", http.MethodGet, "/api/optimize/state", nil)
	stateData := decode(t, w)["data"].(map[string]interface{})
	if stateData["state"] != "completed" {
		t.Errorf("pipeline state = %v", stateData["state"])
	}

	w = do(t, router, "c1", http.MethodGet, "/api/results", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("results status = %d", w.Code)
	}
	view := decode(t, w)["data"].(map[string]interface{})
	if view["algorithm"] != "Ant Colony Optimization" {
		t.Errorf("algorithm = %v", view["algorithm"])
	}
	if view["total_distance"] != "120 km" {
		t.Errorf("total_distance = %v", view["total_distance"])
	}
	// The server omitted the effective range, so the view derives it.
	if view["effective_range"] != "144 km" {
		t.Errorf("effective_range = %v", view["effective_range"])
	}

	w = do(t, router, "c1", http.MethodGet, "/api/results/maps-url", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("maps-url status = %d", w.Code)
	}
	mapsURL := decode(t, w)["data"].(map[string]interface{})["url"].(string)
	if !strings.Contains(mapsURL, "origin=") || !strings.Contains(mapsURL, "travelmode=driving") {
		t.Errorf("maps url = %q", mapsURL)
	}

	w = do(t, router, "c1", http.MethodGet, "/api/results/summary", nil)
	if disp := w.Header().Get("Content-Disposition"); !strings.Contains(disp, "attachment") {
		t.Errorf("Content-Disposition = %q", disp)
	}
	if !strings.HasPrefix(w.Body.String(), "EV Route Optimization Results\n") {
		t.Errorf("summary body = %q", w.Body.String())
	}

	w = do(t, router, "c1", http.MethodGet, "/api/routes", nil)
	records := decode(t, w)["data"].([]interface{})
	if len(records) != 1 {
		t.Fatalf("route history = %d records, want 1", len(records))
	}
	record := records[0].(map[string]interface{})
	if record["vehicle_number"] != "KA-01-AB-1234" {
		t.Errorf("archived vehicle_number = %v", record["vehicle_number"])
	}
}

func TestResultsBeforeAnyRun(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodGet, "/api/results", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if msg := decode(t, w)["error"]; msg != "No optimization results found. Please run an optimization first." {
		t.Errorf("error = %v", msg)
	}
}

func TestLogoutClearsSessionAndResults(t *testing.T) {
	router := newEnv(t)
	login(t, router, "c1")
	importSample(t, router, "c1")

	w := do(t, router, "c1", http.MethodPost, "/api/optimize", map[string]interface{}{
		"algorithm": "SA",
		"params":    models.RuntimeParams{BatteryPercentage: 90},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("optimize status = %d", w.Code)
	}

	w = do(t, router, "c1", http.MethodPost, "/api/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}

	if w = do(t, router, "c1", http.MethodGet, "/api/session", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("session after logout status = %d", w.Code)
	}
	if w = do(t, router, "c1", http.MethodGet, "/api/results", nil); w.Code != http.StatusNotFound {
		t.Errorf("results after logout status = %d", w.Code)
	}
	w = do(t, router, "c1", http.MethodGet, "/api/customers", nil)
	if rows := decode(t, w)["data"].([]interface{}); len(rows) != 0 {
		t.Errorf("customers after logout = %v", rows)
	}
}

func TestCancelWithNothingInFlight(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "c1", http.MethodPost, "/api/optimize/cancel", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("cancel status = %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	router := newEnv(t)

	w := do(t, router, "", http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if decode(t, w)["status"] != "ok" {
		t.Errorf("health body = %s", w.Body.String())
	}
}
