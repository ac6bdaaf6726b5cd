package core

import (
	"fmt"
	"prism/entity"
	"time"
)

func (c *Core) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if c.authService == nil {
		return nil, fmt.Errorf("authService is not set")
	}
	return c.authService.AuthenticateByToken(token)
}

func (c *Core) ValidateToken(token string) (*entity.UserAuth, error) {
	return c.AuthenticateByToken(token)
}

// IssueToken mints a user token. Only service keys may call it.
func (c *Core) IssueToken(caller *entity.UserAuth, user entity.UserAuth) (string, time.Time, error) {
	if err := requireUser(caller); err != nil {
		return "", time.Time{}, err
	}
	if caller.Role != entity.RoleService {
		return "", time.Time{}, forbidden("token minting needs a service key")
	}
	return c.authService.IssueToken(user)
}

// GenerateApiKey creates a service key for username. Only service keys may call it.
func (c *Core) GenerateApiKey(caller *entity.UserAuth, username string) (string, error) {
	if err := requireUser(caller); err != nil {
		return "", err
	}
	if caller.Role != entity.RoleService {
		return "", forbidden("key generation needs a service key")
	}
	if username == "" {
		return "", fmt.Errorf("%w: username is required", entity.ErrInvalidInput)
	}
	key, err := c.repo.GenerateApiKey(username)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return key, nil
}
