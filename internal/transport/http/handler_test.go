package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"deadline-quiz-service/internal/app"
	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/infra/memory"
	"deadline-quiz-service/internal/log"
	logtest "github.com/sirupsen/logrus/hooks/test"
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

func newTestServer(t *testing.T) (*httptest.Server, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)}
	questions := memory.NewQuestionStore(domain.Question{ID: 1, Text: "Capital of France?", CorrectAnswer: "Paris"})
	service := app.NewQuizServiceWithClock(questions, memory.NewResponseStore(), memory.NewSessionStore(), clock.Now)
	handler := NewHandler(service, Options{
		DefaultDuration: 10,
		Author:          questions,
		TimerInterval:   10 * time.Millisecond,
	})
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server, clock
}

func startQuiz(t *testing.T, server *httptest.Server, body string) stateResponse {
	t.Helper()
	resp, err := http.Post(server.URL+"/quiz", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var state stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	var cookieSet bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie && c.Value == state.Token {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Fatalf("expected %s cookie to carry the token", SessionCookie)
	}
	return state
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(v)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestQuizHTTPFlow(t *testing.T) {
	server, _ := newTestServer(t)

	state := startQuiz(t, server, "")
	if state.DurationMinutes != 10 || state.RemainingSeconds != 600 {
		t.Fatalf("expected default 10 minute session, got %+v", state)
	}

	resp, err := http.Get(server.URL + "/quiz/" + state.Token)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	var current stateResponse
	_ = json.NewDecoder(resp.Body).Decode(&current)
	resp.Body.Close()
	if len(current.Questions) != 1 || current.Questions[0].CorrectAnswer != "" {
		t.Fatalf("expected questions without answers, got %+v", current.Questions)
	}

	resp = postJSON(t, server.URL+"/quiz/"+state.Token+"/answers", map[string]any{
		"answers": map[string]string{"1": "paris", "999": "x"},
	})
	var result domain.SubmissionResult
	_ = json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || result.Recorded != 1 {
		t.Fatalf("expected 1 recorded, got status=%d result=%+v", resp.StatusCode, result)
	}

	resp, err = http.Get(server.URL + "/quiz/" + state.Token + "/result")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	var report domain.Report
	_ = json.NewDecoder(resp.Body).Decode(&report)
	resp.Body.Close()
	if report.TotalQuestions != 1 || report.CorrectCount != 1 || report.AnsweredCount != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestQuizHTTPErrors(t *testing.T) {
	server, clock := newTestServer(t)

	resp := postJSON(t, server.URL+"/quiz", map[string]int{"duration": 0})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero duration, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/quiz", map[string]int{"duration": app.MaxDurationMinutes + 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for overflowing duration, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(server.URL + "/quiz/unknown/result")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.StatusCode)
	}

	state := startQuiz(t, server, `{"duration":1}`)
	clock.Advance(61 * time.Second)
	resp = postJSON(t, server.URL+"/quiz/"+state.Token+"/answers", map[string]any{
		"answers": map[string]string{"1": "Paris"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 after expiry, got %d", resp.StatusCode)
	}
}

func TestCurrentTokenFromCookie(t *testing.T) {
	server, _ := newTestServer(t)
	state := startQuiz(t, server, `{"duration":5}`)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/quiz/current", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: state.Token})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	defer resp.Body.Close()
	var current stateResponse
	_ = json.NewDecoder(resp.Body).Decode(&current)
	if resp.StatusCode != http.StatusOK || current.Token != state.Token {
		t.Fatalf("expected current session %s, got status=%d token=%s", state.Token, resp.StatusCode, current.Token)
	}
}

func TestResultThroughCookieAfterDeadline(t *testing.T) {
	server, clock := newTestServer(t)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}

	resp, err := client.Post(server.URL+"/quiz", "application/json", strings.NewReader(`{"duration":1}`))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie && (!c.Expires.IsZero() || c.MaxAge != 0) {
			t.Fatalf("expected a browser-session cookie, got expires=%v maxAge=%d", c.Expires, c.MaxAge)
		}
	}

	resp, err = client.Post(server.URL+"/quiz/current/answers", "application/json", strings.NewReader(`{"answers":{"1":"Paris"}}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 submitting through cookie, got %d", resp.StatusCode)
	}

	clock.Advance(2 * time.Minute)
	resp, err = client.Get(server.URL + "/quiz/current/result")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	defer resp.Body.Close()
	var report domain.Report
	_ = json.NewDecoder(resp.Body).Decode(&report)
	if resp.StatusCode != http.StatusOK || report.CorrectCount != 1 {
		t.Fatalf("expected result after deadline, got status=%d report=%+v", resp.StatusCode, report)
	}
}

func TestAddQuestion(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/questions", questionRequest{Text: "What is 2 + 2?", CorrectAnswer: "4"})
	var q domain.Question
	_ = json.NewDecoder(resp.Body).Decode(&q)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || q.ID != 2 {
		t.Fatalf("expected created question 2, got status=%d %+v", resp.StatusCode, q)
	}

	resp = postJSON(t, server.URL+"/questions", questionRequest{Text: "", CorrectAnswer: "4"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty question, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(server.URL + "/questions")
	var questions []domain.Question
	_ = json.NewDecoder(resp.Body).Decode(&questions)
	resp.Body.Close()
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}

type failingResponses struct {
	app.ResponseStore
	failOn int
}

func (f *failingResponses) UpsertResponse(ctx context.Context, r domain.Response) error {
	if r.QuestionID == f.failOn {
		return errors.New("disk full")
	}
	return f.ResponseStore.UpsertResponse(ctx, r)
}

func TestPartialFailureLoggedOnce(t *testing.T) {
	hook := logtest.NewLocal(log.Logger)
	defer hook.Reset()

	questions := memory.NewQuestionStore(
		domain.Question{ID: 1, Text: "Capital of France?", CorrectAnswer: "Paris"},
		domain.Question{ID: 2, Text: "What is 2 + 2?", CorrectAnswer: "4"},
	)
	responses := &failingResponses{ResponseStore: memory.NewResponseStore(), failOn: 2}
	service := app.NewQuizService(questions, responses, memory.NewSessionStore())
	server := httptest.NewServer(NewHandler(service, Options{DefaultDuration: 10, Author: questions}).Routes())
	defer server.Close()

	state := startQuiz(t, server, "")
	hook.Reset()

	resp := postJSON(t, server.URL+"/quiz/"+state.Token+"/answers", map[string]any{
		"answers": map[string]string{"1": "Paris", "2": "4"},
	})
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError || payload.Recorded == nil || *payload.Recorded != 1 {
		t.Fatalf("expected 500 with 1 recorded, got status=%d payload=%+v", resp.StatusCode, payload)
	}

	var failures int
	for _, entry := range hook.AllEntries() {
		if strings.Contains(entry.Message, "disk full") {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected the failure logged once, got %d entries", failures)
	}
}
