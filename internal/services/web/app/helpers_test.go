package app

import (
	"time"

	"github.com/louisbranch/daybook/internal/services/auth/user"
)

func testUser(id string, now time.Time) user.User {
	return user.User{
		ID:          id,
		Email:       id + "@daybook.test",
		DisplayName: id,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
