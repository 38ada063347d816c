package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matevzj/knjiznica/internal/db"
	"github.com/matevzj/knjiznica/internal/model"
)

func TestCreateMemberDefaults(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	member, err := CreateMember(ctx, database, model.Member{
		Name:    "Ana Novak",
		Email:   "ana@example.com",
		Phone:   "0123456789",
		Address: "1 Library Lane",
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}

	if !member.IsActive {
		t.Error("new member should be active")
	}
	if member.BooksBorrowed != 0 {
		t.Errorf("new member should have no loans, got %d", member.BooksBorrowed)
	}
	if member.MembershipDate.IsZero() {
		t.Error("membership date should be set at creation")
	}
}

func TestCreateMemberDuplicateEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedMember(t, database, "dup")

	_, err := CreateMember(ctx, database, model.Member{
		Name: "Another", Email: "dup@example.com",
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestUpdateMemberKeepsMembershipDate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	member := seedMember(t, database, "renamer")

	updated, err := UpdateMember(ctx, database, member.ID, model.Member{
		Name: "Renamed", Email: "renamer@example.com", Phone: "0987654321",
	})
	if err != nil {
		t.Fatalf("UpdateMember: %v", err)
	}
	if updated.Name != "Renamed" || updated.Phone != "0987654321" {
		t.Errorf("update not applied: %+v", updated)
	}
	if !updated.MembershipDate.Equal(member.MembershipDate) {
		t.Error("membership date must not change on update")
	}

	other := seedMember(t, database, "other")
	_, err = UpdateMember(ctx, database, member.ID, model.Member{
		Name: "Renamed", Email: other.Email,
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for taken email, got %v", err)
	}

	_, err = UpdateMember(ctx, database, 9999, model.Member{Name: "x", Email: "x@example.com"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActivateDeactivate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

	book := seedBook(t, database, "Toggled", 1)
	member := seedMember(t, database, "toggler")
	loan := mustBorrow(t, database, member.ID, book.ID, now)

	deactivated, err := SetMemberActive(ctx, database, member.ID, false)
	if err != nil {
		t.Fatalf("SetMemberActive: %v", err)
	}
	if deactivated.IsActive {
		t.Error("member should be inactive")
	}

	// Deactivation does not touch existing loans, and an inactive member
	// can still return.
	if deactivated.BooksBorrowed != 1 {
		t.Errorf("expected loan to survive deactivation, got %d", deactivated.BooksBorrowed)
	}
	if _, err := ReturnBook(ctx, database, loan.ID, now.AddDate(0, 0, 1)); err != nil {
		t.Errorf("inactive member should be able to return: %v", err)
	}

	reactivated, _ := SetMemberActive(ctx, database, member.ID, true)
	if !reactivated.IsActive {
		t.Error("member should be active again")
	}

	if _, err := SetMemberActive(ctx, database, 9999, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMemberGuardedByLoans(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

	book := seedBook(t, database, "Held", 1)
	member := seedMember(t, database, "leaver")
	loan := mustBorrow(t, database, member.ID, book.ID, now)

	if err := DeleteMember(ctx, database, member.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict with books out, got %v", err)
	}

	ReturnBook(ctx, database, loan.ID, now)
	if err := DeleteMember(ctx, database, member.ID); err != nil {
		t.Fatalf("DeleteMember after return: %v", err)
	}

	members, _ := ListMembers(ctx, database, "")
	if len(members) != 0 {
		t.Errorf("expected no members, got %d", len(members))
	}
}

func TestListAndSearchMembers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	active := seedMember(t, database, "amelia")
	inactive := seedMember(t, database, "boris")
	SetMemberActive(ctx, database, inactive.ID, false)

	all, err := ListMembers(ctx, database, "")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 members, got %d", len(all))
	}

	actives, _ := ListMembers(ctx, database, MemberStatusActive)
	if len(actives) != 1 || actives[0].ID != active.ID {
		t.Errorf("active filter returned %v", actives)
	}

	inactives, _ := ListMembers(ctx, database, MemberStatusInactive)
	if len(inactives) != 1 || inactives[0].ID != inactive.ID {
		t.Errorf("inactive filter returned %v", inactives)
	}

	if _, err := ListMembers(ctx, database, "banned"); err == nil {
		t.Error("expected error for unknown status filter")
	}

	found, _ := SearchMembers(ctx, database, "MEL")
	if len(found) != 1 || found[0].ID != active.ID {
		t.Errorf("search returned %v", found)
	}

	byEmail, _ := GetMemberByEmail(ctx, database, "boris@example.com")
	if byEmail == nil || byEmail.ID != inactive.ID {
		t.Errorf("GetMemberByEmail returned %v", byEmail)
	}
}
