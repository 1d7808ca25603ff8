package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
)

// Stored passwords are bcrypt hashes that verify against the original.
func TestProperty_StoredPasswordsAreHashed(t *testing.T) {
	requireDB(t)
	resetTables(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	counter := 0
	properties.Property("password hash is bcrypt and never the plaintext", prop.ForAll(
		func(password string) bool {
			counter++
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				return false
			}

			user := &domain.User{
				UserName:     "prop",
				Email:        fmt.Sprintf("prop-%d@example.com", counter),
				PasswordHash: string(hash),
				Role:         domain.RoleBuyer,
				Approved:     true,
			}
			if err := repo.Create(ctx, user); err != nil {
				t.Logf("FAIL: create: %v", err)
				return false
			}

			stored, err := repo.FindByEmail(ctx, user.Email)
			if err != nil {
				t.Logf("FAIL: find: %v", err)
				return false
			}

			return stored.PasswordHash != password &&
				bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil
		},
		gen.AlphaString().Map(func(s string) string {
			s = "secret" + s + "xx"
			if len(s) > 64 {
				s = s[:64]
			}
			return s
		}),
	))

	properties.TestingRun(t)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	requireDB(t)
	resetTables(t)

	seedUser(t, "dup@example.com")

	err := NewUserRepository(testDB).Create(context.Background(), &domain.User{
		UserName:     "other",
		Email:        "dup@example.com",
		PasswordHash: "x",
		Role:         domain.RoleBuyer,
	})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestUserRepository_ApproveListDelete(t *testing.T) {
	requireDB(t)
	resetTables(t)
	repo := NewUserRepository(testDB)
	ctx := context.Background()

	admin := &domain.User{UserName: "boss", Email: "boss@example.com", PasswordHash: "x", Role: domain.RoleAdmin}
	if err := repo.Create(ctx, admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	buyer := seedUser(t, "buyer@example.com")

	if err := repo.SetApproved(ctx, admin.ID, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := repo.FindByID(ctx, admin.ID)
	if err != nil || !got.Approved || !got.IsAdmin() {
		t.Fatalf("expected approved admin, got %+v (%v)", got, err)
	}

	users, err := repo.List(ctx)
	if err != nil || len(users) != 2 || users[0].ID != admin.ID {
		t.Fatalf("unexpected list %v (%v)", users, err)
	}

	if err := repo.Delete(ctx, buyer.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, buyer.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, buyer.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
	if err := repo.SetApproved(ctx, 9999, true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	requireDB(t)
	resetTables(t)
	repo := NewRefreshTokenRepository(testDB)
	ctx := context.Background()
	user := seedUser(t, "tokens@example.com")

	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindByToken(ctx, token.Token)
	if err != nil || found.UserID != user.ID {
		t.Fatalf("find: %+v (%v)", found, err)
	}

	other := seedUser(t, "intruder@example.com")
	if err := repo.Revoke(ctx, other.ID, token.Token); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound for another user, got %v", err)
	}
	if _, err := repo.FindByToken(ctx, token.Token); err != nil {
		t.Fatalf("token should still be live: %v", err)
	}

	if err := repo.Revoke(ctx, user.ID, token.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := repo.FindByToken(ctx, token.Token); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}
	if _, err := repo.FindByToken(ctx, "missing"); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}
