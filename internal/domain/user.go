package domain

import "time"

// UserRole enumerates application roles.
type UserRole string

const (
	RoleCustomer      UserRole = "customer"
	RoleDeliveryAgent UserRole = "delivery_agent"
	RoleAdmin         UserRole = "admin"
	RoleSuperAdmin    UserRole = "super_admin"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBanned   UserStatus = "banned"
)

// AccountSecurity tracks failed login attempts and lockout state.
type AccountSecurity struct {
	LoginAttempts int
	LockUntil     *time.Time
}

// Locked reports whether the account rejects login attempts at the given time.
func (s AccountSecurity) Locked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// RegisterFailure records one failed login attempt. An attempt arriving after
// an expired lock restarts the counter at 1; reaching maxAttempts locks the
// account until now+lockout.
func (s *AccountSecurity) RegisterFailure(now time.Time, maxAttempts int, lockout time.Duration) {
	if s.LockUntil != nil && s.LockUntil.Before(now) {
		s.LoginAttempts = 1
		s.LockUntil = nil
		return
	}

	s.LoginAttempts++
	if s.LoginAttempts >= maxAttempts && !s.Locked(now) {
		until := now.Add(lockout)
		s.LockUntil = &until
	}
}

// Reset clears the attempt counter and any lock after a successful login.
func (s *AccountSecurity) Reset() {
	s.LoginAttempts = 0
	s.LockUntil = nil
}

// User is the domain model for application accounts.
type User struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	PasswordHash  string
	Role          UserRole
	Status        UserStatus
	EmailVerified bool
	Security      AccountSecurity
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}
