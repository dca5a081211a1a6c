package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/rezervator/internal/model"
)

const operatorSelect = `SELECT id, username, password_hash, role, created_at, deleted_at FROM operators`

func scanOperator(row scanner) (*model.Operator, error) {
	o := &model.Operator{}
	if err := row.Scan(&o.ID, &o.Username, &o.PasswordHash, &o.Role, &o.CreatedAt, &o.DeletedAt); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOperator creates a new API operator.
func CreateOperator(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.Operator, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO operators (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operator: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting operator id: %w", err)
	}

	return GetOperator(ctx, db, id)
}

// GetOperator returns an operator by ID, including deleted ones.
func GetOperator(ctx context.Context, db *sql.DB, id int64) (*model.Operator, error) {
	o, err := scanOperator(db.QueryRowContext(ctx, operatorSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting operator: %w", err)
	}
	return o, nil
}

// GetOperatorByUsername returns the active operator with the given username.
func GetOperatorByUsername(ctx context.Context, db *sql.DB, username string) (*model.Operator, error) {
	o, err := scanOperator(db.QueryRowContext(ctx,
		operatorSelect+` WHERE username = ? AND deleted_at IS NULL`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting operator by username: %w", err)
	}
	return o, nil
}

// ListOperators returns all active operators.
func ListOperators(ctx context.Context, db *sql.DB) ([]model.Operator, error) {
	rows, err := db.QueryContext(ctx, operatorSelect+` WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing operators: %w", err)
	}
	defer rows.Close()

	var operators []model.Operator
	for rows.Next() {
		o, err := scanOperator(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning operator: %w", err)
		}
		operators = append(operators, *o)
	}
	return operators, rows.Err()
}

// DeleteOperator soft-deletes an operator. Their username becomes free again.
func DeleteOperator(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE operators SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting operator: %w", err)
	}
	return nil
}

// CountOperators returns the number of active operators with the given role.
func CountOperators(ctx context.Context, db *sql.DB, role string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM operators WHERE role = ? AND deleted_at IS NULL`, role,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting operators: %w", err)
	}
	return n, nil
}
