// Package pipeline implements the question-to-answer pipeline: validate the
// question, snapshot the schema, generate SQL, execute it, explain the
// results, format the rows. Stages run strictly sequentially; the first
// failure short-circuits everything after it.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/datachat/datachat/internal/genai"
	"github.com/datachat/datachat/internal/observability"
	"github.com/datachat/datachat/internal/store"
)

type Stage string

const (
	StageValidate Stage = "validate"
	StageSchema   Stage = "schema"
	StageNoTables Stage = "no_tables"
	StageGenerate Stage = "generate"
	StageExecute  Stage = "execute"
	StageEmpty    Stage = "empty"
)

// StageError reports which pipeline stage failed, with a user-facing
// message and suggestion. SQL is set once a candidate statement exists so
// the caller can see what was attempted.
type StageError struct {
	Stage      Stage
	Message    string
	Suggestion string
	SQL        string
	Err        error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return string(e.Stage) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Stage) + ": " + e.Message
}

func (e *StageError) Unwrap() error { return e.Err }

const ExampleSuggestion = "Try asking something like: 'What are the total sales?' or 'Show me orders from January 2024'"

type DataStore interface {
	Snapshot(ctx context.Context) ([]store.Table, error)
	Execute(ctx context.Context, sql string) (store.ResultSet, error)
	SaveConversation(ctx context.Context, question, sqlQuery, results, explanation string, now time.Time) error
}

type Service struct {
	Store          DataStore
	Generator      genai.Generator
	Logger         *slog.Logger
	CurrencySymbol string
	Now            func() time.Time
}

type Answer struct {
	SQL         string
	Data        []store.Row
	Explanation string
	RowCount    int
}

func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	observability.ObserveQuestion()

	if ok, reason := ValidateQuestion(question); !ok {
		observability.ObserveQuestionRejected()
		return Answer{}, &StageError{
			Stage:      StageValidate,
			Message:    reason,
			Suggestion: ExampleSuggestion,
		}
	}

	tables, err := s.Store.Snapshot(ctx)
	if err != nil {
		return Answer{}, s.fail(ctx, &StageError{
			Stage:      StageSchema,
			Message:    "Database error",
			Suggestion: "There was an error accessing the database",
			Err:        err,
		})
	}
	if len(tables) == 0 {
		return Answer{}, s.fail(ctx, &StageError{
			Stage:      StageNoTables,
			Message:    "No data tables available",
			Suggestion: "Please upload some data files first.",
		})
	}

	generateStart := s.now()
	rawSQL, err := s.Generator.Generate(ctx, BuildSQLPrompt(tables, question))
	observability.ObserveGeneration(s.now().Sub(generateStart))
	if err != nil {
		return Answer{}, s.fail(ctx, &StageError{
			Stage:      StageGenerate,
			Message:    "Error understanding the question",
			Suggestion: "Please try asking in a different way or check your question for typos",
			Err:        err,
		})
	}
	sqlText := genai.CleanSQL(rawSQL)
	if sqlText == "" {
		return Answer{}, s.fail(ctx, &StageError{
			Stage:      StageGenerate,
			Message:    "Error understanding the question",
			Suggestion: "Please try asking in a different way or check your question for typos",
		})
	}
	if s.Logger != nil {
		s.Logger.DebugContext(ctx, "generated sql", slog.String("sql", sqlText))
	}

	executeStart := s.now()
	result, err := s.Store.Execute(ctx, sqlText)
	observability.ObserveQueryExecution(s.now().Sub(executeStart))
	if err != nil {
		return Answer{}, s.fail(ctx, &StageError{
			Stage:      StageExecute,
			Message:    "Error executing the query",
			Suggestion: "There might be an issue with the generated SQL query",
			SQL:        sqlText,
			Err:        err,
		})
	}
	if len(result.Rows) == 0 {
		// Nothing to explain, so the second generation call is skipped.
		return Answer{}, s.fail(ctx, &StageError{
			Stage:      StageEmpty,
			Message:    "No results found",
			Suggestion: "Try modifying your question",
			SQL:        sqlText,
		})
	}

	generateStart = s.now()
	explanation, err := s.Generator.Generate(ctx, BuildExplanationPrompt(question, sqlText, result.Rows, s.CurrencySymbol))
	observability.ObserveGeneration(s.now().Sub(generateStart))
	if err != nil {
		return Answer{}, s.fail(ctx, &StageError{
			Stage:      StageGenerate,
			Message:    "Error explaining the results",
			Suggestion: "Please try asking in a different way",
			SQL:        sqlText,
			Err:        err,
		})
	}

	formatted := FormatRows(result, s.CurrencySymbol)
	s.saveConversation(ctx, question, sqlText, formatted, explanation)

	return Answer{
		SQL:         sqlText,
		Data:        formatted,
		Explanation: explanation,
		RowCount:    len(result.Rows),
	}, nil
}

// saveConversation is best-effort: history is a side record, never part of
// the answer contract, so a failed insert only logs a warning.
func (s *Service) saveConversation(ctx context.Context, question, sqlText string, rows []store.Row, explanation string) {
	serialized, err := json.Marshal(rows)
	if err != nil {
		serialized = []byte("[]")
	}
	if err := s.Store.SaveConversation(ctx, question, sqlText, string(serialized), explanation, s.now()); err != nil && s.Logger != nil {
		s.Logger.WarnContext(ctx, "failed to save conversation", slog.Any("error", err))
	}
}

func (s *Service) fail(ctx context.Context, stageErr *StageError) *StageError {
	observability.ObservePipelineFailure(string(stageErr.Stage))
	if s.Logger != nil && stageErr.Err != nil {
		s.Logger.ErrorContext(ctx, "pipeline stage failed",
			slog.String("stage", string(stageErr.Stage)),
			slog.Any("error", stageErr.Err),
		)
	}
	return stageErr
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
