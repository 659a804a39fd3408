// README: Handler tests for status mapping and request validation.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	httptransport "taxisync/internal/http"
	"taxisync/internal/modules/booking"
	"taxisync/internal/modules/telemetry"
	"taxisync/internal/platform"
	"taxisync/internal/types"
)

// stubBookings answers every call with the configured result and error.
type stubBookings struct {
	create   *booking.CreateResult
	update   *booking.UpdateResult
	cancel   *booking.CancelResult
	bulk     *booking.BulkResult
	err      error
	lastIDs  []types.ID
	lastEdit booking.Changes
}

func (s *stubBookings) Create(context.Context, booking.CreateRequest) (*booking.CreateResult, error) {
	return s.create, s.err
}
func (s *stubBookings) Read(_ context.Context, id types.ID) (*booking.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &booking.Booking{ID: 374403, RowVersion: "AAAAAACXrwc="}, nil
}
func (s *stubBookings) Update(_ context.Context, _ types.ID, ch booking.Changes) (*booking.UpdateResult, error) {
	s.lastEdit = ch
	return s.update, s.err
}
func (s *stubBookings) Cancel(context.Context, types.ID) (*booking.CancelResult, error) {
	return s.cancel, s.err
}
func (s *stubBookings) Quote(context.Context, booking.QuoteRequest) (*booking.QuoteResult, error) {
	return &booking.QuoteResult{Price: types.MoneyFromMajor(12.5, "GBP")}, s.err
}
func (s *stubBookings) SubmitMany(context.Context, []booking.CreateRequest) (*booking.BulkResult, error) {
	return s.bulk, s.err
}
func (s *stubBookings) CancelMany(_ context.Context, ids []types.ID) (*booking.BulkResult, error) {
	s.lastIDs = ids
	return s.bulk, s.err
}

type staticFeed struct {
	kind telemetry.Kind
	obs  map[string]telemetry.Observation
}

func (f staticFeed) Name() string         { return string(f.kind) }
func (f staticFeed) Kind() telemetry.Kind { return f.kind }
func (f staticFeed) Fetch(context.Context) (telemetry.PartialView, error) {
	return telemetry.PartialView{Kind: f.kind, Vehicles: f.obs}, nil
}

func newVehicles(t *testing.T, refresh bool) *telemetry.Aggregator {
	t.Helper()
	yes := true
	feed := staticFeed{kind: telemetry.KindCombined, obs: map[string]telemetry.Observation{
		"101": {Callsign: "101", Position: &types.Point{Lat: 51.501, Lng: -0.125}},
		"202": {Callsign: "202", Position: &types.Point{Lat: 51.505, Lng: -0.121}, BusyMeterOn: &yes},
	}}
	agg := telemetry.NewAggregator([]telemetry.Feed{feed}, nil, zaptest.NewLogger(t), telemetry.Options{
		Geofence: telemetry.Geofence{MinLat: 49.5, MaxLat: 61.0, MinLng: -8.5, MaxLng: 2.0},
	})
	if refresh {
		agg.Refresh(context.Background())
	}
	return agg
}

func buildTestRouter(t *testing.T, bookings *stubBookings, vehicles *telemetry.Aggregator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return httptransport.NewRouter(httptransport.RouterDeps{
		Bookings: bookings,
		Vehicles: vehicles,
		Logger:   zaptest.NewLogger(t),
	})
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookingErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", booking.ErrBadRequest, http.StatusBadRequest},
		{"address", booking.ErrAddressResolutionFailed, http.StatusUnprocessableEntity},
		{"not found", booking.ErrRemoteNotFound, http.StatusNotFound},
		{"conflict", booking.ErrRemoteConflict, http.StatusConflict},
		{"unavailable", booking.ErrRemoteUnavailable, http.StatusBadGateway},
		{"upstream", &platform.APIError{StatusCode: 422, Body: "zone closed"}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		r := buildTestRouter(t, &stubBookings{err: tc.err}, newVehicles(t, true))
		w := doRequest(r, http.MethodGet, "/api/bookings/374403", nil)
		if w.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}
}

func TestUpstreamErrorBodyIsSurfaced(t *testing.T) {
	r := buildTestRouter(t, &stubBookings{err: &platform.APIError{StatusCode: 422, Body: "zone closed"}}, newVehicles(t, true))
	w := doRequest(r, http.MethodDelete, "/api/bookings/9", nil)

	var resp struct {
		Error          string `json:"error"`
		UpstreamStatus int    `json:"upstream_status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UpstreamStatus != 422 || !bytes.Contains([]byte(resp.Error), []byte("zone closed")) {
		t.Fatalf("upstream error not surfaced: %+v", resp)
	}
}

func TestSubmitPartialSplitIs207(t *testing.T) {
	stub := &stubBookings{
		create: &booking.CreateResult{Reference: "R", Groups: []booking.GroupOutcome{
			{Index: 0, Passengers: 8, Booking: &booking.Booking{ID: 1}},
			{Index: 1, Passengers: 2, Err: booking.ErrRemoteUnavailable, Error: "unavailable"},
		}},
		err: &booking.BatchError{Succeeded: 1, Failed: 1, Errs: []error{booking.ErrRemoteUnavailable}},
	}
	r := buildTestRouter(t, stub, newVehicles(t, true))
	w := doRequest(r, http.MethodPost, "/api/bookings", map[string]any{
		"pickup":     map[string]any{"address": "A"},
		"passengers": 10,
	})
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", w.Code, w.Body.String())
	}
	var res booking.CreateResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || len(res.Groups) != 2 || res.Groups[1].Error == "" {
		t.Fatalf("per-group outcomes missing: %v %s", err, w.Body.String())
	}
}

func TestSubmitSuccessIs201(t *testing.T) {
	stub := &stubBookings{create: &booking.CreateResult{Reference: "R", Groups: []booking.GroupOutcome{
		{Index: 0, Passengers: 2, Booking: &booking.Booking{ID: 1}},
	}}}
	r := buildTestRouter(t, stub, newVehicles(t, true))
	w := doRequest(r, http.MethodPost, "/api/bookings", map[string]any{"pickup": map[string]any{"address": "A"}, "passengers": 2})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestInvalidJSONIs400(t *testing.T) {
	r := buildTestRouter(t, &stubBookings{}, newVehicles(t, true))
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdatePassesChanges(t *testing.T) {
	stub := &stubBookings{update: &booking.UpdateResult{Replaced: true, PreviousID: "374403"}}
	r := buildTestRouter(t, stub, newVehicles(t, true))
	w := doRequest(r, http.MethodPatch, "/api/bookings/374403", map[string]any{"price": "45.00", "passengers": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.lastEdit.Price == nil || *stub.lastEdit.Price != "45.00" || stub.lastEdit.Passengers == nil || stub.lastEdit.Luggage != nil {
		t.Fatalf("changes not decoded: %+v", stub.lastEdit)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"replaced":true`)) {
		t.Fatalf("replacement flag missing: %s", w.Body.String())
	}
}

func TestUpdateFailedReplacementKeepsResult(t *testing.T) {
	stub := &stubBookings{
		update: &booking.UpdateResult{Replaced: true, PreviousID: "374403"},
		err: fmt.Errorf("booking 374403 not found upstream; replacement failed: %w: %w",
			booking.ErrRemoteNotFound, booking.ErrRemoteUnavailable),
	}
	r := buildTestRouter(t, stub, newVehicles(t, true))
	w := doRequest(r, http.MethodPatch, "/api/bookings/374403", map[string]any{"passengers": 3})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body struct {
		Error  string `json:"error"`
		Result struct {
			Replaced   bool   `json:"replaced"`
			PreviousID string `json:"previous_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" || !body.Result.Replaced || body.Result.PreviousID != "374403" {
		t.Fatalf("replacement outcome missing: %s", w.Body.String())
	}
}

func TestBulkCancelPartialFailure(t *testing.T) {
	stub := &stubBookings{
		bulk: &booking.BulkResult{Successful: 4, Failed: 1},
		err:  &booking.BatchError{Succeeded: 4, Failed: 1, Errs: []error{booking.ErrRemoteUnavailable}},
	}
	r := buildTestRouter(t, stub, newVehicles(t, true))
	w := doRequest(r, http.MethodPost, "/api/bookings/cancel", map[string]any{"ids": []string{"1", "2", "3", "4", "5"}})
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", w.Code)
	}
	if len(stub.lastIDs) != 5 {
		t.Fatalf("ids not passed through: %v", stub.lastIDs)
	}

	w = doRequest(r, http.MethodPost, "/api/bookings/cancel", map[string]any{"ids": []string{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty bulk should be 400, got %d", w.Code)
	}
}

func TestBulkAllFailedTakesItemStatus(t *testing.T) {
	stub := &stubBookings{
		bulk: &booking.BulkResult{Failed: 2},
		err:  &booking.BatchError{Failed: 2, Errs: []error{booking.ErrRemoteUnavailable, booking.ErrRemoteUnavailable}},
	}
	r := buildTestRouter(t, stub, newVehicles(t, true))
	w := doRequest(r, http.MethodPost, "/api/bookings/cancel", map[string]any{"ids": []string{"1", "2"}})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestVehiclesBeforeFirstSnapshot(t *testing.T) {
	r := buildTestRouter(t, &stubBookings{}, newVehicles(t, false))
	if w := doRequest(r, http.MethodGet, "/api/vehicles", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/readyz", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: expected 503, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}
}

func TestVehicleQueries(t *testing.T) {
	r := buildTestRouter(t, &stubBookings{}, newVehicles(t, true))

	w := doRequest(r, http.MethodGet, "/api/vehicles?status=in_job", nil)
	var list struct {
		Generation uint64                  `json:"generation"`
		Counts     map[string]int          `json:"counts"`
		Vehicles   []telemetry.VehicleView `json:"vehicles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || w.Code != http.StatusOK {
		t.Fatalf("list: %d %v", w.Code, err)
	}
	if list.Generation != 1 || len(list.Vehicles) != 1 || list.Vehicles[0].Callsign != "202" || list.Counts["available"] != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	if w := doRequest(r, http.MethodGet, "/api/vehicles?status=busy", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status should be 400, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/vehicles/101", nil); w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/vehicles/999", nil); w.Code != http.StatusNotFound {
		t.Fatalf("get missing: expected 404, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/vehicles/nearby?lat=51.5007&lng=-0.1246&radius_km=2", nil)
	var near struct {
		Vehicles []telemetry.NearbyVehicle `json:"vehicles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &near); err != nil || w.Code != http.StatusOK {
		t.Fatalf("nearby: %d %v", w.Code, err)
	}
	if len(near.Vehicles) != 2 || near.Vehicles[0].Callsign != "101" {
		t.Fatalf("unexpected nearby %+v", near.Vehicles)
	}
	if w := doRequest(r, http.MethodGet, "/api/vehicles/nearby?lat=abc&lng=1", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad lat should be 400, got %d", w.Code)
	}
}
