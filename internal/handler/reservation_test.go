package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/repository"
	"github.com/iliyamo/session-booking/internal/service"
)

// stubStore is a minimal service.Store seeded with one session and a
// handful of AVAILABLE seats, enough to drive the HTTP surface.
type stubStore struct {
	mu           sync.Mutex
	session      model.Session
	seats        map[uint64]*model.Seat
	reservations map[uint64]*model.Reservation
	nextID       uint64
}

func newStubStore(seatCount int) *stubStore {
	s := &stubStore{
		session:      model.Session{ID: 1, MovieName: "test", RoomNumber: "1", PriceCents: 1200},
		seats:        make(map[uint64]*model.Seat),
		reservations: make(map[uint64]*model.Reservation),
	}
	for i := 1; i <= seatCount; i++ {
		id := uint64(100 + i)
		s.seats[id] = &model.Seat{ID: id, SessionID: 1, Status: model.SeatAvailable}
	}
	return s
}

func (s *stubStore) GetSession(_ context.Context, id uint64) (*model.Session, error) {
	if id != s.session.ID {
		return nil, repository.ErrNotFound
	}
	cp := s.session
	return &cp, nil
}

func (s *stubStore) GetSeat(_ context.Context, id uint64) (*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *seat
	return &cp, nil
}

func (s *stubStore) SeatsBySession(_ context.Context, sessionID uint64) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.SessionID == sessionID {
			out = append(out, *seat)
		}
	}
	return out, nil
}

func (s *stubStore) HoldSeat(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[res.SeatID]
	if !ok || seat.Status != model.SeatAvailable {
		return repository.ErrSeatUnavailable
	}
	seat.Status = model.SeatReserved
	s.nextID++
	res.ID = s.nextID
	res.Status = model.ReservationPending
	res.CreatedAt = time.Now().UTC()
	cp := *res
	s.reservations[res.ID] = &cp
	return nil
}

func (s *stubStore) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *stubStore) ReservationsByRequester(_ context.Context, requesterID string) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.RequesterID == requesterID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubStore) ReservationsByGroup(_ context.Context, groupID string) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.GroupID == groupID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubStore) ListExpiredReservations(context.Context) ([]model.Reservation, error) {
	return nil, nil
}

func (s *stubStore) CancelReservation(_ context.Context, id, seatID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != model.ReservationPending {
		return repository.ErrNotPending
	}
	r.Status = model.ReservationCancelled
	s.seats[seatID].Status = model.SeatAvailable
	return nil
}

func (s *stubStore) ExpireReservation(context.Context, uint64, uint64) (bool, error) {
	return false, nil
}

func (s *stubStore) ConfirmGroup(context.Context, string, string, time.Time) ([]model.Sale, error) {
	return nil, repository.ErrNotPending
}

type stubLocker struct{}

func (stubLocker) Acquire(context.Context, string) (bool, error) { return true, nil }
func (stubLocker) Release(context.Context, string) error         { return nil }
func (stubLocker) Exists(context.Context, string) (bool, error)  { return false, nil }

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, string, string, any) error { return nil }

func newTestServer(store *stubStore) *echo.Echo {
	svc := service.NewReservationService(store, stubLocker{}, stubPublisher{}, 30*time.Second)
	h := NewReservationHandler(svc)

	e := echo.New()
	e.Validator = NewValidator()
	e.POST("/v1/reservations", h.Create)
	e.POST("/v1/reservations/:id/seats", h.AddSeats)
	e.DELETE("/v1/reservations/:id", h.Cancel)
	e.GET("/v1/reservations/:id", h.Get)
	e.GET("/v1/reservations", h.List)
	e.GET("/v1/reservations/groups/:group_id", h.Group)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateReservation_HTTP(t *testing.T) {
	store := newStubStore(3)
	e := newTestServer(store)

	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101,102],"requester_id":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		GroupID  string `json:"group_id"`
		Created  []struct {
			ID     uint64 `json:"id"`
			SeatID uint64 `json:"seat_id"`
			Status string `json:"status"`
		} `json:"created"`
		Rejected []uint64 `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.GroupID)
	require.Len(t, resp.Created, 2)
	assert.Equal(t, "PENDING", resp.Created[0].Status)
	assert.NotNil(t, resp.Rejected)
	assert.Empty(t, resp.Rejected)
}

func TestCreateReservation_PartialSuccessIs201(t *testing.T) {
	store := newStubStore(2)
	e := newTestServer(store)

	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101],"requester_id":"bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101,102],"requester_id":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Created  []json.RawMessage `json:"created"`
		Rejected []uint64          `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Created, 1)
	assert.Equal(t, []uint64{101}, resp.Rejected)
}

func TestCreateReservation_FullConflictIs409(t *testing.T) {
	store := newStubStore(1)
	e := newTestServer(store)

	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101],"requester_id":"bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101],"requester_id":"alice"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateReservation_UnknownSessionIs404(t *testing.T) {
	e := newTestServer(newStubStore(1))

	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":42,"seat_ids":[101],"requester_id":"alice"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateReservation_ValidationFailures(t *testing.T) {
	e := newTestServer(newStubStore(1))

	cases := []struct {
		name string
		body string
	}{
		{"missing seat_ids", `{"session_id":1,"requester_id":"alice"}`},
		{"empty seat_ids", `{"session_id":1,"seat_ids":[],"requester_id":"alice"}`},
		{"missing requester", `{"session_id":1,"seat_ids":[101]}`},
		{"zero seat id", `{"session_id":1,"seat_ids":[0],"requester_id":"alice"}`},
		{"not json", `seat please`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/v1/reservations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCancelReservation_HTTP(t *testing.T) {
	store := newStubStore(1)
	e := newTestServer(store)

	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101],"requester_id":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/v1/reservations/1?requester_id=alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Cancelling an already cancelled reservation is 422.
	rec = doJSON(e, http.MethodDelete, "/v1/reservations/1?requester_id=alice", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCancelReservation_MissingRequester(t *testing.T) {
	e := newTestServer(newStubStore(1))

	rec := doJSON(e, http.MethodDelete, "/v1/reservations/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReservation_HTTP(t *testing.T) {
	store := newStubStore(1)
	e := newTestServer(store)

	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101],"requester_id":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/reservations/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID          uint64 `json:"id"`
		RequesterID string `json:"requester_id"`
		Status      string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.ID)
	assert.Equal(t, "alice", resp.RequesterID)
	assert.Equal(t, "PENDING", resp.Status)

	rec = doJSON(e, http.MethodGet, "/v1/reservations/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/reservations/zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupLookup_HTTP(t *testing.T) {
	store := newStubStore(2)
	e := newTestServer(store)

	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"session_id":1,"seat_ids":[101,102],"requester_id":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		GroupID string `json:"group_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(e, http.MethodGet, "/v1/reservations/groups/"+created.GroupID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var siblings []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &siblings))
	assert.Len(t, siblings, 2)

	rec = doJSON(e, http.MethodGet, "/v1/reservations/groups/no-such-group", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondError_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: x", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", service.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: x", service.ErrInvalidState), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: x", service.ErrExpired), http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, respondError(c, tc.err))
		assert.Equal(t, tc.code, rec.Code)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, respondError(c, errors.New("dsn user:pass@tcp leaked")))
	assert.NotContains(t, rec.Body.String(), "pass")
	assert.Contains(t, rec.Body.String(), "internal error")
}
