package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"health-record-portal/internal/adapters/auth/jwtauth"
	"health-record-portal/internal/router"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newServer(t *testing.T, reg *prometheus.Registry) (*httptest.Server, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	tokens, err := jwtauth.New(jwtauth.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "router-test",
		TTL:    365 * 24 * time.Hour,
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("jwtauth: %v", err)
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{
		Verifier: tokens,
		Issuer:   tokens,
		Registry: reg,
		Now:      clock.Now,
	}))
	t.Cleanup(ts.Close)
	return ts, clock
}

func TestHTTP_Health(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts, _ := newServer(t, reg)

	res, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if res.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}

	st, body := doReq(t, ts.URL, "GET", "/metrics", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", st)
	}
	if !strings.Contains(string(body), "portal_http_requests_total") {
		t.Fatalf("metrics missing request counter: %s", string(body))
	}
}

func TestHTTP_RequiresAuth(t *testing.T) {
	ts, _ := newServer(t, nil)

	st, _ := doReq(t, ts.URL, "GET", "/profile", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "GET", "/profile", "not-a-token", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", st)
	}
}

func TestHTTP_RegisterLogin(t *testing.T) {
	ts, _ := newServer(t, nil)

	register(t, ts.URL, "ana@example.com", "PATIENT")

	st, _ := doReq(t, ts.URL, "POST", "/auth/register", "", map[string]any{
		"email": "ANA@example.com", "password": "s3cretpass", "name": "Ana", "role": "PATIENT",
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 duplicate email, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
		"email": "ana@example.com", "password": "wrong-password",
	})
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 bad password, got %d", st)
	}

	st, body := doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
		"email": "ana@example.com", "password": "s3cretpass",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 login, got %d body=%s", st, string(body))
	}
	var sess struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(body, &sess)

	st, body = doReq(t, ts.URL, "GET", "/me", sess.Token, nil)
	if st != http.StatusOK || !strings.Contains(string(body), `"role":"PATIENT"`) {
		t.Fatalf("expected 200 me as patient, got %d body=%s", st, string(body))
	}
}

func TestHTTP_AccessRequest_UnassignedIsForbidden(t *testing.T) {
	ts, _ := newServer(t, nil)

	patient, patientID := register(t, ts.URL, "p@example.com", "PATIENT")
	doctor, _ := register(t, ts.URL, "d@example.com", "DOCTOR")
	completeDoctorBasic(t, ts.URL, doctor)

	st, _ := doReq(t, ts.URL, "POST", "/access-request", doctor, map[string]any{"patientId": patientID})
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 for unassigned pair, got %d", st)
	}

	st, body := doReq(t, ts.URL, "GET", "/patient/access", patient, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list access, got %d", st)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected no grant rows, got %s", string(body))
	}
}

func TestHTTP_ApprovedGrantExpires(t *testing.T) {
	ts, clock := newServer(t, nil)

	patient, patientID := register(t, ts.URL, "p@example.com", "PATIENT")
	doctor, doctorID := register(t, ts.URL, "d@example.com", "DOCTOR")
	completeDoctorBasic(t, ts.URL, doctor)
	completePatientBasic(t, ts.URL, patient)
	assignDoctor(t, ts.URL, patient, doctorID)

	grantID := requestAccess(t, ts.URL, doctor, patientID)

	st, body := doReq(t, ts.URL, "PUT", "/patient/access/"+grantID, patient, map[string]any{
		"status":        "APPROVED",
		"expiresInDays": 30,
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 approve, got %d body=%s", st, string(body))
	}
	if !strings.Contains(string(body), `"active":true`) {
		t.Fatalf("expected active grant, got %s", string(body))
	}

	path := "/doctor/health-metrics?patientId=" + patientID
	if st, _ := doReq(t, ts.URL, "GET", path, doctor, nil); st != http.StatusOK {
		t.Fatalf("expected 200 doctor read under grant, got %d", st)
	}

	clock.Advance(31 * 24 * time.Hour)

	if st, _ := doReq(t, ts.URL, "GET", path, doctor, nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 after expiry, got %d", st)
	}

	st, body = doReq(t, ts.URL, "GET", "/patient/access", patient, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list access, got %d", st)
	}
	var grants []struct {
		Status string `json:"status"`
		Active bool   `json:"active"`
	}
	_ = json.Unmarshal(body, &grants)
	if len(grants) != 1 || grants[0].Status != "APPROVED" || grants[0].Active {
		t.Fatalf("expected one inactive APPROVED grant, got %s", string(body))
	}

	// Expired grants can be requested again.
	requestAccess(t, ts.URL, doctor, patientID)
}

func TestHTTP_DoubleRequestConflicts(t *testing.T) {
	ts, _ := newServer(t, nil)

	patient, patientID := register(t, ts.URL, "p@example.com", "PATIENT")
	doctor, doctorID := register(t, ts.URL, "d@example.com", "DOCTOR")
	completeDoctorBasic(t, ts.URL, doctor)
	completePatientBasic(t, ts.URL, patient)
	assignDoctor(t, ts.URL, patient, doctorID)

	requestAccess(t, ts.URL, doctor, patientID)

	st, _ := doReq(t, ts.URL, "POST", "/access-request", doctor, map[string]any{"patientId": patientID})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 second request, got %d", st)
	}

	st, body := doReq(t, ts.URL, "GET", "/access-request", doctor, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 doctor list, got %d", st)
	}
	var view struct {
		Pending  []json.RawMessage `json:"pending"`
		Approved []json.RawMessage `json:"approved"`
	}
	_ = json.Unmarshal(body, &view)
	if len(view.Pending) != 1 || len(view.Approved) != 0 {
		t.Fatalf("expected exactly one pending row, got %s", string(body))
	}
}

func TestHTTP_ProfileLevelUnlocksFeatures(t *testing.T) {
	ts, _ := newServer(t, nil)

	patient, _ := register(t, ts.URL, "p@example.com", "PATIENT")

	st, body := doReq(t, ts.URL, "POST", "/profile/basic", patient, map[string]any{
		"age":            34,
		"gender":         "female",
		"primaryProblem": "migraine",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 partial basic, got %d body=%s", st, string(body))
	}
	if level := profileLevel(t, body); level != 0 {
		t.Fatalf("expected level 0 with 3 of 5 fields, got %d", level)
	}

	reading := map[string]any{"heartRate": 72}
	st, body = doReq(t, ts.URL, "POST", "/patient/health-metrics", patient, reading)
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 below level 1, got %d", st)
	}
	if !strings.Contains(string(body), "level 1") {
		t.Fatalf("expected remediation message, got %s", string(body))
	}

	st, body = doReq(t, ts.URL, "POST", "/profile/basic", patient, map[string]any{
		"symptoms":               []string{"headache", "nausea"},
		"consultationPreference": "BOTH",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 rest of basic, got %d body=%s", st, string(body))
	}
	if level := profileLevel(t, body); level != 1 {
		t.Fatalf("expected level 1, got %d", level)
	}

	st, body = doReq(t, ts.URL, "POST", "/patient/health-metrics", patient, reading)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 at level 1, got %d body=%s", st, string(body))
	}

	// Records still need level 2.
	st, _ = doReq(t, ts.URL, "POST", "/patient/records", patient, map[string]any{"title": "Blood panel"})
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 records below level 2, got %d", st)
	}
}

func TestHTTP_DoctorReadErrors(t *testing.T) {
	ts, _ := newServer(t, nil)

	patient, patientID := register(t, ts.URL, "p@example.com", "PATIENT")
	doctor, doctorID := register(t, ts.URL, "d@example.com", "DOCTOR")

	// Doctor below level 1.
	if st, _ := doReq(t, ts.URL, "GET", "/doctor/health-metrics?patientId="+patientID, doctor, nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 below level 1, got %d", st)
	}

	completeDoctorBasic(t, ts.URL, doctor)
	completePatientBasic(t, ts.URL, patient)
	assignDoctor(t, ts.URL, patient, doctorID)

	cases := []struct {
		name string
		path string
		want int
	}{
		{"missing patient id", "/doctor/health-metrics", http.StatusBadRequest},
		{"unknown patient", "/doctor/health-metrics?patientId=nope", http.StatusNotFound},
		{"no grant", "/doctor/health-metrics?patientId=" + patientID, http.StatusForbidden},
		{"no grant records", "/doctor/patient-records?patientId=" + patientID, http.StatusForbidden},
		{"no grant profile", "/doctor/patient-profile?patientId=" + patientID, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if st, body := doReq(t, ts.URL, "GET", tc.path, doctor, nil); st != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, st, string(body))
			}
		})
	}

	// Patients cannot use doctor endpoints.
	if st, _ := doReq(t, ts.URL, "GET", "/doctor/health-metrics?patientId="+patientID, patient, nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 for patient caller, got %d", st)
	}
}

func TestHTTP_MessagesAndAppointments(t *testing.T) {
	ts, clock := newServer(t, nil)

	patient, _ := register(t, ts.URL, "p@example.com", "PATIENT")
	doctor, doctorID := register(t, ts.URL, "d@example.com", "DOCTOR")
	completeDoctorBasic(t, ts.URL, doctor)
	completePatientBasic(t, ts.URL, patient)
	assignDoctor(t, ts.URL, patient, doctorID)

	st, body := doReq(t, ts.URL, "POST", "/messages", patient, map[string]any{
		"recipientId": doctorID,
		"body":        "Is the new dose fine?",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 send, got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/messages?with="+doctorID, patient, nil)
	if st != http.StatusOK || !strings.Contains(string(body), "new dose") {
		t.Fatalf("expected conversation with message, got %d body=%s", st, string(body))
	}

	at := clock.Now().Add(48 * time.Hour)
	st, body = doReq(t, ts.URL, "POST", "/appointments", patient, map[string]any{
		"doctorId":    doctorID,
		"scheduledAt": at,
		"reason":      "follow-up",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 book, got %d body=%s", st, string(body))
	}
	var appt struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &appt)
	if appt.Status != "REQUESTED" {
		t.Fatalf("expected REQUESTED, got %s", appt.Status)
	}

	st, _ = doReq(t, ts.URL, "POST", "/appointments", patient, map[string]any{
		"doctorId":    doctorID,
		"scheduledAt": at,
	})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 same slot, got %d", st)
	}

	st, body = doReq(t, ts.URL, "PUT", "/appointments/"+appt.ID, doctor, map[string]any{"status": "CONFIRMED"})
	if st != http.StatusOK || !strings.Contains(string(body), `"status":"CONFIRMED"`) {
		t.Fatalf("expected 200 confirmed, got %d body=%s", st, string(body))
	}

	st, _ = doReq(t, ts.URL, "PUT", "/appointments/"+appt.ID, patient, map[string]any{"status": "CONFIRMED"})
	if st != http.StatusConflict {
		t.Fatalf("expected 409 patient confirm, got %d", st)
	}
}

func TestHTTP_DevModeDebugHeader(t *testing.T) {
	tokens, err := jwtauth.New(jwtauth.Config{Secret: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("jwtauth: %v", err)
	}
	ts := httptest.NewServer(router.NewRouter(router.Options{Issuer: tokens}))
	defer ts.Close()

	_, userID := register(t, ts.URL, "dev@example.com", "DOCTOR")

	req, _ := http.NewRequest("GET", ts.URL+"/profile", nil)
	req.Header.Set("X-Debug-User-ID", userID)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with debug header, got %d", res.StatusCode)
	}

	// Unknown debug ids are not accounts.
	req, _ = http.NewRequest("GET", ts.URL+"/profile", nil)
	req.Header.Set("X-Debug-User-ID", "ghost")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown debug user, got %d", res.StatusCode)
	}
}

func register(t *testing.T, baseURL, email, role string) (token, id string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/auth/register", "", map[string]any{
		"email":    email,
		"password": "s3cretpass",
		"name":     strings.Split(email, "@")[0],
		"role":     role,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 register, got %d body=%s", st, string(body))
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Token == "" || resp.User.ID == "" {
		t.Fatalf("register: missing token or id body=%s", string(body))
	}
	return resp.Token, resp.User.ID
}

func completePatientBasic(t *testing.T, baseURL, token string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/profile/basic", token, map[string]any{
		"age":                    41,
		"gender":                 "male",
		"primaryProblem":         "hypertension",
		"symptoms":               []string{"dizziness"},
		"consultationPreference": "BOTH",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 patient basic, got %d body=%s", st, string(body))
	}
}

func completeDoctorBasic(t *testing.T, baseURL, token string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/profile/basic", token, map[string]any{
		"specialization":    "Cardiology",
		"experienceYears":   12,
		"conditionsTreated": []string{"hypertension", "arrhythmia"},
		"consultationMode":  "BOTH",
		"availability":      "Mon-Fri 9-17",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 doctor basic, got %d body=%s", st, string(body))
	}
}

func assignDoctor(t *testing.T, baseURL, patientToken, doctorID string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patient/doctors", patientToken, map[string]any{"doctorId": doctorID})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 assign, got %d body=%s", st, string(body))
	}
}

func requestAccess(t *testing.T, baseURL, doctorToken, patientID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/access-request", doctorToken, map[string]any{"patientId": patientID})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 access request, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" || resp.Status != "PENDING" {
		t.Fatalf("access request: unexpected body=%s", string(body))
	}
	return resp.ID
}

func profileLevel(t *testing.T, body []byte) int {
	t.Helper()

	var resp struct {
		ProfileLevel int `json:"profileLevel"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("profile body: %v", err)
	}
	return resp.ProfileLevel
}

func doReq(t *testing.T, baseURL, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
