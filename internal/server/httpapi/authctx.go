package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
)

const userIDKey = "otu.userID"

// WithUserID stores the authenticated user id on the request.
func WithUserID(c *gin.Context, id uuid.UUID) {
	c.Set(userIDKey, id)
}

// UserIDFromContext fetches the user id set by Authenticate.
func UserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
