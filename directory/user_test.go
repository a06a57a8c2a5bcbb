package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	return directory.New(memory.New())
}

func registerStudent(t *testing.T, d *directory.Directory, email, studentID string) *directory.User {
	t.Helper()
	u, err := d.Register(context.Background(), directory.RegisterParams{
		Email:     email,
		Password:  "student123",
		Name:      "Emma Student",
		Role:      directory.RoleStudent,
		StudentID: mealcard.StudentID(studentID),
	})
	require.NoError(t, err)
	return u
}

// =============================================================================
// REGISTRATION
// =============================================================================

func TestDirectory_Register(t *testing.T) {
	// GIVEN: A fresh directory
	// WHEN: Registering a student
	// THEN: The account is active, the email normalized, the password hashed

	d := newTestDirectory(t)

	u, err := d.Register(context.Background(), directory.RegisterParams{
		Email:     "  Student@University.EDU ",
		Password:  "student123",
		Name:      " Emma Student ",
		Role:      directory.RoleStudent,
		StudentID: "STU001",
	})
	require.NoError(t, err)

	assert.Equal(t, "student@university.edu", u.Email)
	assert.Equal(t, "Emma Student", u.Name)
	assert.Equal(t, directory.RoleStudent, u.Role)
	assert.Equal(t, mealcard.StudentID("STU001"), u.StudentID)
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "student123", u.PasswordHash)
}

func TestDirectory_Register_DuplicateEmail(t *testing.T) {
	d := newTestDirectory(t)
	registerStudent(t, d, "student@university.edu", "STU001")

	// Same email, different case.
	_, err := d.Register(context.Background(), directory.RegisterParams{
		Email:    "STUDENT@university.edu",
		Password: "student123",
		Name:     "Impostor",
		Role:     directory.RoleStudent,
	})
	assert.ErrorIs(t, err, directory.ErrEmailTaken)
}

func TestDirectory_Register_Validation(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params directory.RegisterParams
	}{
		{"bad email", directory.RegisterParams{Email: "nope", Password: "secret123", Name: "Emma", Role: directory.RoleStudent}},
		{"short password", directory.RegisterParams{Email: "a@b.edu", Password: "abc", Name: "Emma", Role: directory.RoleStudent}},
		{"short name", directory.RegisterParams{Email: "a@b.edu", Password: "secret123", Name: " E ", Role: directory.RoleStudent}},
		{"bad role", directory.RegisterParams{Email: "a@b.edu", Password: "secret123", Name: "Emma", Role: "superuser"}},
	}
	for _, tc := range cases {
		_, err := d.Register(ctx, tc.params)
		assert.Error(t, err, tc.name)
	}
}

func TestDirectory_Register_StudentIDOnlyForStudents(t *testing.T) {
	d := newTestDirectory(t)

	u, err := d.Register(context.Background(), directory.RegisterParams{
		Email:     "manager@university.edu",
		Password:  "manager123",
		Name:      "Sarah Manager",
		Role:      directory.RoleManager,
		StudentID: "STU999",
	})
	require.NoError(t, err)
	assert.Empty(t, u.StudentID, "non-students don't carry a student ID")
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestDirectory_Authenticate(t *testing.T) {
	// GIVEN: A registered student
	// WHEN: Logging in with the right and then the wrong password
	// THEN: Only the right password authenticates, with one opaque error otherwise

	d := newTestDirectory(t)
	registerStudent(t, d, "student@university.edu", "STU001")
	ctx := context.Background()

	u, err := d.Authenticate(ctx, "student@university.edu", "student123")
	require.NoError(t, err)
	assert.Equal(t, "student@university.edu", u.Email)

	_, err = d.Authenticate(ctx, "student@university.edu", "wrong-password")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)

	_, err = d.Authenticate(ctx, "nobody@university.edu", "student123")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials, "unknown email and wrong password are indistinguishable")
}

func TestDirectory_Authenticate_DeactivatedAccount(t *testing.T) {
	d := newTestDirectory(t)
	u := registerStudent(t, d, "student@university.edu", "STU001")
	ctx := context.Background()

	_, err := d.Deactivate(ctx, u.ID)
	require.NoError(t, err)

	_, err = d.Authenticate(ctx, "student@university.edu", "student123")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)
}

// =============================================================================
// UPDATES AND LISTING
// =============================================================================

func TestDirectory_Update_Partial(t *testing.T) {
	d := newTestDirectory(t)
	u := registerStudent(t, d, "student@university.edu", "STU001")
	ctx := context.Background()

	name := "Emma S."
	updated, err := d.Update(ctx, u.ID, directory.UpdateParams{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Emma S.", updated.Name)
	assert.Equal(t, u.Email, updated.Email, "untouched fields stay put")
	assert.Equal(t, u.Role, updated.Role)
}

func TestDirectory_Update_EmailConflict(t *testing.T) {
	d := newTestDirectory(t)
	registerStudent(t, d, "first@university.edu", "STU001")
	second := registerStudent(t, d, "second@university.edu", "STU002")
	ctx := context.Background()

	taken := "first@university.edu"
	_, err := d.Update(ctx, second.ID, directory.UpdateParams{Email: &taken})
	assert.ErrorIs(t, err, directory.ErrEmailTaken)

	// Setting your own email is not a conflict.
	own := "second@university.edu"
	_, err = d.Update(ctx, second.ID, directory.UpdateParams{Email: &own})
	assert.NoError(t, err)
}

func TestDirectory_List_FilterAndStats(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	registerStudent(t, d, "student1@university.edu", "STU001")
	registerStudent(t, d, "student2@university.edu", "STU002")
	_, err := d.Register(ctx, directory.RegisterParams{
		Email: "manager@university.edu", Password: "manager123", Name: "Sarah Manager", Role: directory.RoleManager,
	})
	require.NoError(t, err)

	students, err := d.List(ctx, directory.Filter{Role: directory.RoleStudent}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, students.TotalUsers)

	bySearch, err := d.List(ctx, directory.Filter{Search: "stu002"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, bySearch.TotalUsers)

	stats, err := d.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 3, stats.ActiveUsers)
	assert.Equal(t, 2, stats.ByRole[directory.RoleStudent])
	assert.Equal(t, 1, stats.ByRole[directory.RoleManager])
}

// =============================================================================
// TOKENS
// =============================================================================

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	// GIVEN: A registered user and a token issuer
	// WHEN: Issuing a token and parsing it back
	// THEN: The claims round-trip

	d := newTestDirectory(t)
	u := registerStudent(t, d, "student@university.edu", "STU001")
	issuer := directory.NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue(u)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, directory.RoleStudent, claims.Role)
}

func TestTokenIssuer_RejectsForeignAndExpiredTokens(t *testing.T) {
	d := newTestDirectory(t)
	u := registerStudent(t, d, "student@university.edu", "STU001")

	issuer := directory.NewTokenIssuer("test-secret", time.Hour)
	other := directory.NewTokenIssuer("other-secret", time.Hour)

	token, err := other.Issue(u)
	require.NoError(t, err)
	_, err = issuer.ParseToken(token)
	assert.ErrorIs(t, err, directory.ErrInvalidToken)

	expiring := directory.NewTokenIssuer("test-secret", time.Nanosecond)
	expired, err := expiring.Issue(u)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = issuer.ParseToken(expired)
	assert.ErrorIs(t, err, directory.ErrExpiredToken)

	_, err = issuer.ParseToken("not-a-token")
	assert.ErrorIs(t, err, directory.ErrInvalidToken)
}
