package sqlite

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/exfatt/films-server/database/model"
)

type userRow struct {
	ID        int64        `db:"id"`
	Username  string       `db:"username"`
	Password  string       `db:"password"`
	Role      string       `db:"role"`
	Created   time.Time    `db:"created"`
	LastLogin sql.NullTime `db:"lastlogin"`
}

func (r *userRow) toModel() model.User {
	u := model.User{
		ID:       r.ID,
		Username: r.Username,
		Password: r.Password,
		Role:     r.Role,
		Created:  r.Created,
	}
	if r.LastLogin.Valid {
		u.LastLogin = r.LastLogin.Time
	}
	return u
}

const userColumns = `id, username, password, role, created, lastlogin`

// GetUsers returns all users, oldest first. Password hashes are blanked.
func (s *SqliteRepo) GetUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	err := s.dbReadHandle.SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM users ORDER BY created, id`)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toModel()
		users[i].Password = ""
	}
	return users, nil
}

// GetUser retrieves a user by username.
func (s *SqliteRepo) GetUser(ctx context.Context, username string) (*model.User, error) {
	var row userRow
	err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT `+userColumns+` FROM users WHERE username=? LIMIT 1`, username)
	if err != nil {
		return nil, model.ErrNotFound
	}
	user := row.toModel()
	return &user, nil
}

// GetUserByID retrieves a user by id.
func (s *SqliteRepo) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	var row userRow
	err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, userID)
	if err != nil {
		return nil, model.ErrNotFound
	}
	user := row.toModel()
	return &user, nil
}

// ValidateUser checks if the user exists and the password is correct.
// On success the user's lastlogin timestamp is updated.
func (s *SqliteRepo) ValidateUser(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, model.ErrInvalidPassword
	}

	user.LastLogin = time.Now().UTC()
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET lastlogin = ? WHERE id = ?`, user.LastLogin, user.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// No need to return the hashed pw
	user.Password = ""
	return user, nil
}

// InsertUser creates a user with a bcrypt-hashed password.
func (s *SqliteRepo) InsertUser(ctx context.Context, username, password, role string) (*model.User, error) {
	if _, err := s.GetUser(ctx, username); err == nil {
		return nil, model.ErrUserExists
	}
	if role != model.RoleAdmin {
		role = model.RoleUser
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password, role, created) VALUES (?, ?, ?, ?)`,
		username, string(hashedPassword), role, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// DeleteUser removes a user by username. Admin accounts are refused so
// that at least one admin always remains.
func (s *SqliteRepo) DeleteUser(ctx context.Context, username string) error {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if user.Role == model.RoleAdmin {
		return model.ErrAdminUndeletable
	}

	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, user.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM saved WHERE userid = ?`, user.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accesstokens WHERE userid = ?`, user.ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.mu.Lock()
	for key := range s.savedEntries {
		if key.userID == user.ID {
			delete(s.savedEntries, key)
		}
	}
	for token, at := range s.accessTokenCache {
		if at.UserID == user.ID {
			delete(s.accessTokenCache, token)
		}
	}
	s.mu.Unlock()
	return nil
}
