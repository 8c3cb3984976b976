package service

import (
	"context"
	"errors"
	"strings"

	"hisabkitab/backend/internal/domain"
	"hisabkitab/backend/internal/store"
	"hisabkitab/backend/internal/xid"
)

const usersStore = "app_users"

// LocalUsers keeps login accounts in the device store. They are never
// mirrored to the cloud.
type LocalUsers struct {
	local store.LocalStore
}

func NewLocalUsers(local store.LocalStore) *LocalUsers {
	return &LocalUsers{local: local}
}

func (u *LocalUsers) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" {
		return store.ErrInvalidInput
	}
	if _, err := u.find(ctx, user.Username); err == nil {
		return errors.New("username already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if user.ID == 0 {
		user.ID = xid.LocalID()
	}
	return store.Save(ctx, u.local, usersStore, user.ID, user)
}

func (u *LocalUsers) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	return store.All[domain.UserAccount](ctx, u.local, usersStore)
}

func (u *LocalUsers) UpdateUserPassword(ctx context.Context, username string, password string) error {
	user, err := u.find(ctx, username)
	if err != nil {
		return err
	}
	user.Password = password
	return store.Save(ctx, u.local, usersStore, user.ID, user)
}

func (u *LocalUsers) find(ctx context.Context, username string) (domain.UserAccount, error) {
	users, err := u.ListUsers(ctx)
	if err != nil {
		return domain.UserAccount{}, err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	for _, user := range users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.UserAccount{}, store.ErrNotFound
}
