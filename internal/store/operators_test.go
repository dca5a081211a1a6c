package store

import (
	"context"
	"testing"

	"github.com/erazemk/rezervator/internal/db"
	"github.com/erazemk/rezervator/internal/model"
)

func TestCreateAndGetOperator(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	op, err := CreateOperator(ctx, database, "gateway-1", "hash123", model.RoleGateway)
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if op.Username != "gateway-1" || op.Role != model.RoleGateway {
		t.Errorf("unexpected operator %+v", op)
	}

	got, err := GetOperatorByUsername(ctx, database, "gateway-1")
	if err != nil || got == nil || got.ID != op.ID {
		t.Errorf("GetOperatorByUsername = %v, %v", got, err)
	}

	missing, err := GetOperatorByUsername(ctx, database, "nobody")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing operator, got %v, %v", missing, err)
	}

	if _, err := CreateOperator(ctx, database, "x", "hash", "superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestOperatorUsernameUnique(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	op, _ := CreateOperator(ctx, database, "alice", "hash", model.RoleAdmin)
	if _, err := CreateOperator(ctx, database, "alice", "hash", model.RoleManager); err == nil {
		t.Error("expected duplicate username to fail")
	}

	// A deleted operator frees the username.
	if err := DeleteOperator(ctx, database, op.ID); err != nil {
		t.Fatalf("DeleteOperator: %v", err)
	}
	if _, err := CreateOperator(ctx, database, "alice", "hash", model.RoleManager); err != nil {
		t.Errorf("expected username reuse after delete: %v", err)
	}

	deleted, _ := GetOperator(ctx, database, op.ID)
	if deleted == nil || deleted.DeletedAt == nil {
		t.Error("expected deleted operator to stay fetchable by ID")
	}
}

func TestListAndCountOperators(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateOperator(ctx, database, "a", "hash", model.RoleAdmin)
	b, _ := CreateOperator(ctx, database, "b", "hash", model.RoleManager)
	CreateOperator(ctx, database, "c", "hash", model.RoleManager)
	DeleteOperator(ctx, database, b.ID)

	operators, err := ListOperators(ctx, database)
	if err != nil {
		t.Fatalf("ListOperators: %v", err)
	}
	if len(operators) != 2 {
		t.Errorf("expected 2 operators, got %d", len(operators))
	}

	n, err := CountOperators(ctx, database, model.RoleManager)
	if err != nil || n != 1 {
		t.Errorf("CountOperators = %d, %v", n, err)
	}
}
