package handler

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/wave-plaza-bot/internal/model"
    "github.com/iliyamo/wave-plaza-bot/internal/queue"
    "github.com/iliyamo/wave-plaza-bot/internal/repository"
    "github.com/iliyamo/wave-plaza-bot/internal/utils"
)

type fakeStore struct {
    rows      map[uint64]*model.Reservation
    listArgs  []interface{}
    updateErr error
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
    r, ok := f.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *r
    return &cp, nil
}

func (f *fakeStore) List(_ context.Context, status model.ReservationStatus, limit int) ([]model.Reservation, error) {
    f.listArgs = []interface{}{status, limit}
    var out []model.Reservation
    for _, r := range f.rows {
        if status == "" || r.Status == status {
            out = append(out, *r)
        }
    }
    return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uint64, to model.ReservationStatus) (*model.Reservation, error) {
    if f.updateErr != nil {
        return nil, f.updateErr
    }
    r, ok := f.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    if r.Status != model.StatusPending {
        return nil, repository.ErrConflict
    }
    r.Status = to
    cp := *r
    return &cp, nil
}

type fakePublisher struct {
    events []queue.ReservationStatusChangedEvent
    err    error
}

func (f *fakePublisher) PublishStatusChanged(_ context.Context, ev queue.ReservationStatusChangedEvent) error {
    if f.err != nil {
        return f.err
    }
    f.events = append(f.events, ev)
    return nil
}

func newAdmin() (*echo.Echo, *fakeStore, *fakePublisher) {
    store := &fakeStore{rows: map[uint64]*model.Reservation{
        1: {ID: 1, UserID: 42, Phone: "+998901234567", Zone: "VIP зал", Table: "VIP 1", Date: "2024-06-01", Time: "19:30", Status: model.StatusPending},
        2: {ID: 2, UserID: 43, Phone: "+998901234568", Zone: "Терраса", Table: "Терраса 2", Date: "2024-06-02", Time: "20:00", Status: model.StatusApproved},
    }}
    pub := &fakePublisher{}
    h := NewAdminReservationHandler(store, pub)
    e := echo.New()
    e.GET("/reservations", h.List)
    e.GET("/reservations/:id", h.Get)
    e.PATCH("/reservations/:id/status", h.UpdateStatus)
    return e, store, pub
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, path, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, path, nil)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestAdminUpdateStatus(t *testing.T) {
    e, store, pub := newAdmin()

    rec := do(e, http.MethodPatch, "/reservations/1/status", `{"status":"approved"}`)
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
    }
    if store.rows[1].Status != model.StatusApproved {
        t.Fatalf("row status = %s", store.rows[1].Status)
    }
    if len(pub.events) != 1 || pub.events[0].UserID != 42 || pub.events[0].Status != string(model.StatusApproved) || pub.events[0].ReservationID != 1 {
        t.Fatalf("published = %+v", pub.events)
    }

    cases := []struct {
        name string
        path string
        body string
        want int
    }{
        {"already decided", "/reservations/2/status", `{"status":"canceled"}`, http.StatusConflict},
        {"unknown id", "/reservations/99/status", `{"status":"canceled"}`, http.StatusNotFound},
        {"back to pending", "/reservations/1/status", `{"status":"pending"}`, http.StatusBadRequest},
        {"garbage status", "/reservations/1/status", `{"status":"maybe"}`, http.StatusBadRequest},
        {"bad id", "/reservations/abc/status", `{"status":"approved"}`, http.StatusBadRequest},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if rec := do(e, http.MethodPatch, tc.path, tc.body); rec.Code != tc.want {
                t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
            }
        })
    }
    if len(pub.events) != 1 {
        t.Fatalf("rejected updates published events: %+v", pub.events)
    }
}

func TestAdminUpdateStatusPublishFailure(t *testing.T) {
    e, store, pub := newAdmin()
    pub.err = errors.New("broker down")

    rec := do(e, http.MethodPatch, "/reservations/1/status", `{"status":"canceled"}`)
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d", rec.Code)
    }
    var body struct {
        Published bool `json:"published"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
        t.Fatal(err)
    }
    if body.Published {
        t.Fatal("published = true with a failing broker")
    }
    if store.rows[1].Status != model.StatusCanceled {
        t.Fatalf("row status = %s", store.rows[1].Status)
    }
}

func TestAdminUpdateStatusDatabaseError(t *testing.T) {
    e, store, pub := newAdmin()
    store.updateErr = errors.New("connection reset")
    if rec := do(e, http.MethodPatch, "/reservations/1/status", `{"status":"approved"}`); rec.Code != http.StatusInternalServerError {
        t.Fatalf("status = %d", rec.Code)
    }
    if len(pub.events) != 0 {
        t.Fatalf("published = %+v", pub.events)
    }
}

func TestAdminGetAndList(t *testing.T) {
    e, store, _ := newAdmin()

    rec := do(e, http.MethodGet, "/reservations/1", "")
    if rec.Code != http.StatusOK {
        t.Fatalf("get status = %d", rec.Code)
    }
    var got model.Reservation
    if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
        t.Fatal(err)
    }
    if got.Table != "VIP 1" || got.UserID != 42 {
        t.Fatalf("got %+v", got)
    }
    if rec := do(e, http.MethodGet, "/reservations/7", ""); rec.Code != http.StatusNotFound {
        t.Fatalf("missing status = %d", rec.Code)
    }

    rec = do(e, http.MethodGet, "/reservations?status=PENDING&limit=10", "")
    if rec.Code != http.StatusOK {
        t.Fatalf("list status = %d", rec.Code)
    }
    if store.listArgs[0] != model.StatusPending || store.listArgs[1] != 10 {
        t.Fatalf("list args = %v", store.listArgs)
    }
    var list struct {
        Count int `json:"count"`
    }
    _ = json.Unmarshal(rec.Body.Bytes(), &list)
    if list.Count != 1 {
        t.Fatalf("count = %d", list.Count)
    }

    if rec := do(e, http.MethodGet, "/reservations?status=lost", ""); rec.Code != http.StatusBadRequest {
        t.Fatalf("bad status filter = %d", rec.Code)
    }
    if rec := do(e, http.MethodGet, "/reservations?limit=-1", ""); rec.Code != http.StatusBadRequest {
        t.Fatalf("bad limit = %d", rec.Code)
    }
}

func TestLogin(t *testing.T) {
    hash, err := utils.HashPassword("s3cret", 4)
    if err != nil {
        t.Fatal(err)
    }
    h := NewAuthHandler(hash, "jwt-secret", time.Hour)
    e := echo.New()
    e.POST("/login", h.Login)

    rec := do(e, http.MethodPost, "/login", `{"password":"s3cret"}`)
    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
    }
    var tok utils.AccessToken
    if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
        t.Fatal(err)
    }
    claims := jwt.MapClaims{}
    if _, err := jwt.ParseWithClaims(tok.Token, claims, func(*jwt.Token) (interface{}, error) { return []byte("jwt-secret"), nil }); err != nil {
        t.Fatalf("token does not verify: %v", err)
    }
    if claims["role"] != utils.RoleAdmin {
        t.Fatalf("role = %v", claims["role"])
    }

    if rec := do(e, http.MethodPost, "/login", `{"password":"nope"}`); rec.Code != http.StatusUnauthorized {
        t.Fatalf("wrong password = %d", rec.Code)
    }
    if rec := do(e, http.MethodPost, "/login", `{"password":""}`); rec.Code != http.StatusBadRequest {
        t.Fatalf("empty password = %d", rec.Code)
    }

    disabled := echo.New()
    disabled.POST("/login", NewAuthHandler("", "jwt-secret", time.Hour).Login)
    if rec := do(disabled, http.MethodPost, "/login", `{"password":"s3cret"}`); rec.Code != http.StatusServiceUnavailable {
        t.Fatalf("disabled login = %d", rec.Code)
    }
}

func TestTelegramWebhook(t *testing.T) {
    var got []tgbotapi.Update
    var fail error
    h := &TelegramWebhook{Secret: "hook", Handle: func(_ context.Context, u tgbotapi.Update) error {
        if fail != nil {
            return fail
        }
        got = append(got, u)
        return nil
    }}
    e := echo.New()
    e.POST("/telegram/webhook", h.Receive)

    send := func(secret, body string) int {
        req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
        if secret != "" {
            req.Header.Set(SecretTokenHeader, secret)
        }
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec.Code
    }

    update := `{"update_id":7,"message":{"message_id":1,"from":{"id":42,"first_name":"A"},"chat":{"id":42,"type":"private"},"date":0,"text":"/start","entities":[{"type":"bot_command","offset":0,"length":6}]}}`
    if code := send("hook", update); code != http.StatusOK {
        t.Fatalf("status = %d", code)
    }
    if len(got) != 1 || got[0].UpdateID != 7 || got[0].Message == nil || !got[0].Message.IsCommand() {
        t.Fatalf("got %+v", got)
    }
    if code := send("wrong", update); code != http.StatusUnauthorized {
        t.Fatalf("wrong secret = %d", code)
    }
    if code := send("", update); code != http.StatusUnauthorized {
        t.Fatalf("missing secret = %d", code)
    }
    if code := send("hook", "{not json"); code != http.StatusOK {
        t.Fatalf("malformed body = %d", code)
    }
    fail = errors.New("queue full")
    if code := send("hook", update); code != http.StatusServiceUnavailable {
        t.Fatalf("busy = %d", code)
    }
    if len(got) != 1 {
        t.Fatalf("handled %d updates", len(got))
    }
}

func TestHealthWithoutStores(t *testing.T) {
    e := echo.New()
    e.GET("/healthz", (&HealthHandler{}).Health)
    rec := do(e, http.MethodGet, "/healthz", "")
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
        t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
    }
}
