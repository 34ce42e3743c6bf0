package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"deadline-quiz-service/internal/app"
	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/log"
	"deadline-quiz-service/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "quiz_session"

// currentToken in a path resolves to the token stored in SessionCookie.
const currentToken = "current"

// Options configures optional handler behavior.
type Options struct {
	// DefaultDuration applies when a start request carries no duration.
	DefaultDuration int
	// Author enables question authoring routes when set.
	Author          app.QuestionAuthor
	// OnQuestionAdded runs after a question is authored, e.g. to drop catalog caches.
	OnQuestionAdded func(ctx context.Context)
	// TimerInterval is the tick period of the timer websocket.
	TimerInterval   time.Duration
}

type Handler struct {
	service  *app.QuizService
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(service *app.QuizService, opts Options) *Handler {
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 10
	}
	if opts.TimerInterval <= 0 {
		opts.TimerInterval = time.Second
	}
	return &Handler{
		service: service,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes wires the quiz endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/quiz", func(r chi.Router) {
		r.Post("/", h.startQuiz)
		r.Get("/{token}", h.getState)
		r.Post("/{token}/answers", h.submitAnswers)
		r.Get("/{token}/result", h.getResult)
		r.Get("/{token}/timer", h.serveTimer)
	})

	r.Get("/questions", h.listQuestions)
	if h.opts.Author != nil {
		r.Post("/questions", h.addQuestion)
	}
	return r
}

type startRequest struct {
	Duration *int `json:"duration"`
}

type stateResponse struct {
	Token            string               `json:"token"`
	StartTime        time.Time            `json:"startTime"`
	EndTime          time.Time            `json:"endTime"`
	DurationMinutes  int                  `json:"durationMinutes"`
	RemainingSeconds int64                `json:"remainingSeconds"`
	Status           domain.SessionStatus `json:"status"`
	Questions        []domain.Question    `json:"questions,omitempty"`
}

type answersRequest struct {
	Answers map[int]string `json:"answers"`
}

type questionRequest struct {
	Text          string `json:"text"`
	CorrectAnswer string `json:"correctAnswer"`
}

type errorPayload struct {
	Message  string `json:"message"`
	Recorded *int   `json:"recorded,omitempty"`
	Failed   []int  `json:"failed,omitempty"`
}

func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, r, http.StatusBadRequest, "invalid start payload")
		return
	}
	minutes := h.opts.DefaultDuration
	if req.Duration != nil {
		minutes = *req.Duration
	}

	state, err := h.service.Start(r.Context(), minutes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithField("session", state.Session.Token).Infof("quiz started for %d minutes", minutes)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    state.Session.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toStateResponse(state, nil))
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context(), tokenFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var questions []domain.Question
	if state.Status == domain.StatusActive {
		if questions, err = h.service.Questions(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}
	render.JSON(w, r, toStateResponse(state, questions))
}

func (h *Handler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid answers payload")
		return
	}

	result, err := h.service.Submit(r.Context(), tokenFromRequest(r), req.Answers)
	if err != nil {
		if errors.Is(err, domain.ErrStorage) {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, errorPayload{Message: "some answers could not be saved", Recorded: &result.Recorded, Failed: result.Failed})
			return
		}
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Score(r.Context(), tokenFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.Questions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, questions)
}

func (h *Handler) addQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid question payload")
		return
	}
	q, err := h.opts.Author.AddQuestion(r.Context(), req.Text, req.CorrectAnswer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.opts.OnQuestionAdded != nil {
		h.opts.OnQuestionAdded(r.Context())
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, q)
}

func tokenFromRequest(r *http.Request) string {
	token := chi.URLParam(r, "token")
	if token != currentToken {
		return token
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func toStateResponse(state domain.SessionState, questions []domain.Question) stateResponse {
	return stateResponse{
		Token:            state.Session.Token,
		StartTime:        state.Session.StartTime,
		EndTime:          state.EndTime,
		DurationMinutes:  state.Session.DurationMinutes,
		RemainingSeconds: int64(state.Remaining / time.Second),
		Status:           state.Status,
		Questions:        questions,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDuration), errors.Is(err, domain.ErrInvalidQuestion):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		message = http.StatusText(status)
	} else {
		log.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeMessage(w, r, status, message)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorPayload{Message: message})
}
