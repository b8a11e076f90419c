// Package ai builds prompts, calls the configured language model and turns
// its replies into results. A Facade serializes requests: while one is in
// flight, every other request fails fast with apperr.ErrBusy.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/pkg/models"
)

// Phase is the request state of a Facade
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseRequesting:
		return "requesting"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Role is the speaker of a transcript message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r Role) label() string {
	if r == RoleModel {
		return "Assistant"
	}
	return "User"
}

// Message is one transcript entry
type Message struct {
	Role    Role
	Content string
}

// Status is a snapshot of the facade state
type Status struct {
	Phase  Phase
	Result any
	// Type is the output type of Result; empty for chat replies
	Type   models.OutputType
	Err    error
	// Prompt is the prompt of the last request
	Prompt string
}

// OutputWriter persists AI outputs, normally a gateway collection
type OutputWriter interface {
	Create(ctx context.Context, item models.AIOutput) (string, error)
}

// Facade mediates every language-model request of one session
type Facade struct {
	model Model
	log   *slog.Logger
	now   func() time.Time

	mu         sync.Mutex
	phase      Phase
	result     any
	resultType models.OutputType
	err        error
	prompt     string
	transcript []Message
}

func NewFacade(model Model, log *slog.Logger) *Facade {
	if log == nil {
		log = slog.Default()
	}
	return &Facade{model: model, log: log.With("component", "ai"), now: time.Now}
}

// Status returns the current phase with the last result or error
func (f *Facade) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{Phase: f.phase, Result: f.result, Type: f.resultType, Err: f.err, Prompt: f.prompt}
}

// Transcript returns a copy of the chat so far
func (f *Facade) Transcript() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.transcript...)
}

// Reset discards the chat transcript
func (f *Facade) Reset() {
	f.mu.Lock()
	f.transcript = nil
	f.mu.Unlock()
}

func (f *Facade) begin(prompt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == PhaseRequesting {
		return apperr.New(apperr.ErrBusy, "ai", "a request is already in flight")
	}
	f.phase = PhaseRequesting
	f.err = nil
	f.prompt = prompt
	return nil
}

// finish records the outcome of a request. typ is the output type the result
// may be saved as.
func (f *Facade) finish(result any, typ models.OutputType, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.phase = PhaseFailed
		f.result = nil
		f.resultType = ""
		f.err = err
		return
	}
	f.phase = PhaseSuccess
	f.result = result
	f.resultType = typ
	f.err = nil
}

// generate runs one gated request. The caller must call finish on success.
func (f *Facade) generate(ctx context.Context, op, prompt string) (string, error) {
	if err := f.begin(prompt); err != nil {
		return "", err
	}

	start := f.now()
	text, err := f.model.Generate(ctx, prompt)
	if err != nil {
		err = apperr.Wrap(apperr.ErrAIRequest, op, err)
		f.log.Warn("model request failed", slog.String("op", op), slog.String("error", err.Error()))
		f.finish(nil, "", err)
		return "", err
	}
	f.log.Debug("model request done", slog.String("op", op), slog.Duration("took", f.now().Sub(start)))
	return text, nil
}

// Analyze extracts structured facts from a job posting
func (f *Facade) Analyze(ctx context.Context, jobText string) (*JobAnalysis, error) {
	if strings.TrimSpace(jobText) == "" {
		return nil, apperr.New(apperr.ErrInvalidArgument, "analyze", "job description is empty")
	}
	text, err := f.generate(ctx, "analyze", AnalyzePrompt(jobText))
	if err != nil {
		return nil, err
	}
	analysis, err := ParseAnalysis(text)
	if err != nil {
		f.finish(nil, "", err)
		return nil, err
	}
	f.finish(analysis, models.OutputAnalysis, nil)
	return analysis, nil
}

// GenerateCoverLetter drafts a letter for jobText from the selected profile or CV
func (f *Facade) GenerateCoverLetter(ctx context.Context, jobText string, source any) (string, error) {
	if strings.TrimSpace(jobText) == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "cover letter", "job description is empty")
	}
	prompt, err := CoverLetterPrompt(jobText, source)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidArgument, "cover letter", err)
	}
	text, err := f.generate(ctx, "cover letter", prompt)
	if err != nil {
		return "", err
	}
	f.finish(text, models.OutputCoverLetter, nil)
	return text, nil
}

// SuggestImprovements reviews a CV against a posting
func (f *Facade) SuggestImprovements(ctx context.Context, cvText, jobText string) (string, error) {
	if strings.TrimSpace(cvText) == "" || strings.TrimSpace(jobText) == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "improve cv", "cv text and job description are required")
	}
	text, err := f.generate(ctx, "improve cv", ImprovementPrompt(cvText, jobText))
	if err != nil {
		return "", err
	}
	f.finish(text, models.OutputCVOptimization, nil)
	return text, nil
}

// Chat sends one turn grounded in docContext. Both sides of the turn are
// appended to the transcript only when the model answers.
func (f *Facade) Chat(ctx context.Context, message, docContext string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "chat", "message is empty")
	}
	history := f.Transcript()
	text, err := f.generate(ctx, "chat", ChatPrompt(docContext, history, message))
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.transcript = append(f.transcript,
		Message{Role: RoleUser, Content: message},
		Message{Role: RoleModel, Content: text},
	)
	f.mu.Unlock()
	f.finish(text, "", nil)
	return text, nil
}

// SaveResult stores the last successful result as an output of applicationID.
// Nothing is ever saved without this call. An empty typ means the type of the
// operation that produced the result; a different type is refused. Chat
// replies have no type of their own and need an explicit one.
func (f *Facade) SaveResult(ctx context.Context, outputs OutputWriter, applicationID string, typ models.OutputType) (string, error) {
	if applicationID == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "save result", "application id is required")
	}
	switch typ {
	case "", models.OutputAnalysis, models.OutputCoverLetter, models.OutputCVOptimization:
	default:
		return "", apperr.New(apperr.ErrInvalidArgument, "save result", "unknown output type "+string(typ))
	}

	st := f.Status()
	if st.Phase != PhaseSuccess || st.Result == nil {
		return "", apperr.New(apperr.ErrInvalidArgument, "save result", "no successful result to save")
	}
	switch {
	case typ == "" && st.Type == "":
		return "", apperr.New(apperr.ErrInvalidArgument, "save result", "name the output type of a chat reply")
	case typ == "":
		typ = st.Type
	case st.Type != "" && typ != st.Type:
		return "", apperr.New(apperr.ErrInvalidArgument, "save result",
			fmt.Sprintf("the last result is %s and cannot be saved as %s", st.Type, typ))
	}

	content, err := resultContent(st.Result)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrInvalidArgument, "save result", err)
	}

	return outputs.Create(ctx, models.AIOutput{
		ApplicationID:  applicationID,
		Type:           typ,
		Content:        content,
		OriginalPrompt: st.Prompt,
		UpdatedAt:      f.now().UTC().Format(time.RFC3339),
	})
}

func resultContent(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
