package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pyvlad/quizzz-spa/internal/domain"
)

// QuizLoader reads quizzes with their questions and options from the catalog tables.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var (
		quiz     domain.Quiz
		authorID *int64
	)
	err := l.pool.QueryRow(ctx, `
		SELECT id, name, description, introduction, is_finalized, user_id, community_id, time_created
		FROM quizzes WHERE id = $1`, quizID,
	).Scan(&quiz.ID, &quiz.Name, &quiz.Description, &quiz.Introduction, &quiz.IsFinalized, &authorID, &quiz.CommunityID, &quiz.TimeCreated)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("quiz %d: %w", quizID, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if authorID != nil {
		quiz.AuthorID = *authorID
	}

	rows, err := l.pool.Query(ctx, `
		SELECT q.id, q.text, q.explanation, o.id, o.text, o.is_correct
		FROM quiz_questions q
		LEFT JOIN quiz_question_options o ON o.question_id = q.id
		WHERE q.quiz_id = $1
		ORDER BY q.position, q.id, o.position, o.id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			question  domain.Question
			optionID  *int64
			text      *string
			isCorrect *bool
		)
		if err := rows.Scan(&question.ID, &question.Text, &question.Explanation, &optionID, &text, &isCorrect); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		n := len(quiz.Questions)
		if n == 0 || quiz.Questions[n-1].ID != question.ID {
			question.Options = []domain.Option{}
			quiz.Questions = append(quiz.Questions, question)
			n++
		}
		if optionID != nil {
			quiz.Questions[n-1].Options = append(quiz.Questions[n-1].Options, domain.Option{
				ID:        *optionID,
				Text:      *text,
				IsCorrect: *isCorrect,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

// ListFinalizedQuizzes returns the community's finalized quizzes without questions, newest first.
func (l *QuizLoader) ListFinalizedQuizzes(ctx context.Context, communityID int64) ([]domain.Quiz, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, name, description, introduction, user_id, time_created
		FROM quizzes
		WHERE community_id = $1 AND is_finalized
		ORDER BY time_created DESC, id DESC`, communityID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz := domain.Quiz{CommunityID: communityID, IsFinalized: true}
		var authorID *int64
		if err := rows.Scan(&quiz.ID, &quiz.Name, &quiz.Description, &quiz.Introduction, &authorID, &quiz.TimeCreated); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		if authorID != nil {
			quiz.AuthorID = *authorID
		}
		out = append(out, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return out, nil
}
