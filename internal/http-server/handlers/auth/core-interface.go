package auth

import (
	"prism/entity"
	"time"
)

type Core interface {
	IssueToken(caller *entity.UserAuth, user entity.UserAuth) (string, time.Time, error)
	GenerateApiKey(caller *entity.UserAuth, username string) (string, error)
}
