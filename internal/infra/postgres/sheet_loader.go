package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"propsheet-service/internal/domain"
)

// SheetLoader reads a sheet with its propositions, options and submissions in one snapshot.
type SheetLoader struct {
	pool *pgxpool.Pool
}

func NewSheetLoader(pool *pgxpool.Pool) *SheetLoader {
	return &SheetLoader{pool: pool}
}

func (l *SheetLoader) LoadSheet(ctx context.Context, sheetID string) (domain.SheetSnapshot, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.SheetSnapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM sheets WHERE id=$1`, sheetID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SheetSnapshot{}, domain.ErrSheetNotFound
	}
	if err != nil {
		return domain.SheetSnapshot{}, fmt.Errorf("load sheet: %w", err)
	}

	snapshot := domain.SheetSnapshot{SheetID: id}
	if snapshot.Propositions, err = loadPropositions(ctx, tx, sheetID); err != nil {
		return domain.SheetSnapshot{}, err
	}
	if snapshot.Submissions, err = loadSubmissions(ctx, tx, sheetID); err != nil {
		return domain.SheetSnapshot{}, err
	}
	return snapshot, tx.Commit(ctx)
}

func loadPropositions(ctx context.Context, tx pgx.Tx, sheetID string) ([]domain.Proposition, error) {
	rows, err := tx.Query(ctx, `
		SELECT p.id, p.prompt, p.answer_id, o.id, o.label
		FROM propositions p
		LEFT JOIN options o ON o.proposition_id = p.id
		WHERE p.sheet_id = $1
		ORDER BY p.position, p.id, o.position, o.id`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("load propositions: %w", err)
	}
	defer rows.Close()

	var props []domain.Proposition
	index := map[string]int{}
	for rows.Next() {
		var (
			propID, prompt      string
			answerID            *string
			optionID, optionLbl *string
		)
		if err := rows.Scan(&propID, &prompt, &answerID, &optionID, &optionLbl); err != nil {
			return nil, fmt.Errorf("scan proposition: %w", err)
		}
		i, ok := index[propID]
		if !ok {
			props = append(props, domain.Proposition{ID: propID, Prompt: prompt, AnswerID: answerID})
			i = len(props) - 1
			index[propID] = i
		}
		if optionID != nil {
			props[i].Options = append(props[i].Options, domain.Option{ID: *optionID, Label: *optionLbl})
		}
	}
	return props, rows.Err()
}

func loadSubmissions(ctx context.Context, tx pgx.Tx, sheetID string) ([]domain.Submission, error) {
	rows, err := tx.Query(ctx, `
		SELECT s.id, s.user_id, s.tie_breaker, sel.proposition_id, sel.option_id
		FROM submissions s
		LEFT JOIN selections sel ON sel.submission_id = s.id
		WHERE s.sheet_id = $1
		ORDER BY s.created_at, s.id`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	index := map[string]int{}
	for rows.Next() {
		var (
			subID, userID    string
			tieBreaker       *float64
			propID, optionID *string
		)
		if err := rows.Scan(&subID, &userID, &tieBreaker, &propID, &optionID); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		i, ok := index[subID]
		if !ok {
			subs = append(subs, domain.Submission{ID: subID, UserID: userID, TieBreaker: tieBreaker})
			i = len(subs) - 1
			index[subID] = i
		}
		if propID != nil && optionID != nil {
			subs[i].Selections = append(subs[i].Selections, domain.Selection{PropositionID: *propID, OptionID: *optionID})
		}
	}
	return subs, rows.Err()
}
