package response

import (
	"net/http"

	reqctx "github.com/icritic/users-service/internal/pkg/context"
)

func RequestIDFromContext(r *http.Request) string {
	return reqctx.GetRequestID(r.Context())
}
